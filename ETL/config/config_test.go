package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
sink:
  driver: postgres
  host: db.internal
  port: 5432
  user: etl
  dbname: warehouse
api:
  base_url: http://localhost:9000/api
  indicator_codes: [MH_9, MH_6]
  timeout: 5s
  concurrency: 8
survey_path: /data/survey.csv
load:
  chunk_size: 500
  create_tables: false
run_interval: 6h
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Sink.Driver)
	assert.Equal(t, "db.internal", cfg.Sink.Host)
	assert.Equal(t, []string{"MH_9", "MH_6"}, cfg.API.IndicatorCodes)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 8, cfg.API.Concurrency)
	assert.Equal(t, 500, cfg.Load.ChunkSize)
	assert.False(t, cfg.Load.CreateTables)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)

	// Не указанные в файле параметры берутся по умолчанию
	assert.Equal(t, "data", cfg.CheckpointDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadConfigFileEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultIndicatorCodes, cfg.API.IndicatorCodes)
	assert.Equal(t, DriverMySQL, cfg.Sink.Driver)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "survey_path: /from/file.csv\n")
	t.Setenv("ETL_SURVEY_PATH", "/from/env.csv")
	t.Setenv("ETL_SINK_PORT", "3307")
	t.Setenv("ETL_DETAILED_LOGGING", "off")
	t.Setenv("ETL_CHECKPOINT_OVERWRITE_PARTIAL", "yes")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.csv", cfg.SurveyPath)
	assert.Equal(t, 3307, cfg.Sink.Port)
	assert.False(t, cfg.EnableDetailedLogging)
	assert.True(t, cfg.CheckpointOverwritePartial)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFile(writeConfig(t, "sink: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := GetConfig()
	require.NoError(t, cfg.Validate())

	cfg.Sink.Driver = DriverSQLite
	cfg.API.IndicatorCodes = nil
	cfg.Load.ChunkSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink.path")
	assert.Contains(t, err.Error(), "indicator_codes")
	assert.Contains(t, err.Error(), "chunk_size")

	cfg = GetConfig()
	cfg.Sink.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	dsn, err := DatabaseConfig{Driver: DriverMySQL, Host: "localhost", Port: 3306, User: "root", Password: "secret", DBName: "dw"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "root:secret@tcp(localhost:3306)/dw")
	assert.Contains(t, dsn, "parseTime=true")

	dsn, err = DatabaseConfig{Driver: DriverPostgres, Host: "pg", Port: 5432, User: "etl", DBName: "dw"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "host=pg port=5432")
	assert.Contains(t, dsn, "sslmode=disable")

	_, err = DatabaseConfig{Driver: DriverSQLite}.DSN()
	assert.Error(t, err)
}

func TestDialect(t *testing.T) {
	postgres, err := DialectFor(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2)", postgres.Rebind("INSERT INTO t VALUES (?, ?)"))
	assert.Equal(t, `"Region"`, postgres.QuoteIdent("Region"))
	assert.True(t, postgres.UsesSavepoints())

	mysqlDialect, err := DialectFor(DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t VALUES (?, ?)", mysqlDialect.Rebind("INSERT INTO t VALUES (?, ?)"))
	assert.Equal(t, "`a``b`", mysqlDialect.QuoteIdent("a`b"))
	assert.Equal(t, "DATETIME(6)", mysqlDialect.ColumnType("timestamp"))

	sqlite, err := DialectFor(DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t VALUES (?)", sqlite.Rebind("INSERT INTO t VALUES (?)"))
	assert.Equal(t, "REAL", sqlite.ColumnType("float"))

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
