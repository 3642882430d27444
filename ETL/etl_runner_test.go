package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/api"
	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

const surveyCSV = "Employee_ID,Age,Gender,Job_Role,Industry,Years_of_Experience,Work_Location," +
	"Hours_Worked_Per_Week,Number_of_Virtual_Meetings,Work_Life_Balance_Rating,Stress_Level," +
	"Mental_Health_Condition,Access_to_Mental_Health_Resources,Productivity_Change," +
	"Social_Isolation_Rating,Satisfaction_with_Remote_Work,Company_Support_for_Remote_Work," +
	"Physical_Activity,Sleep_Quality,Region\n" +
	"EMP0001,32,Female,HR,Healthcare,13,Hybrid,47,7,2,Medium,Depression,No,Decrease,1,Unsatisfied,1,Weekly,Good,Europe\n" +
	"EMP0003,22,Male,Data Scientist,IT,3,Remote,52,4,1,Medium,None,Yes,Increase,3,Satisfied,2,None,Poor,Asia\n"

const mh9Payload = `{"value":[
	{"SpatialDim":"FRA","TimeDim":2019,"Dim1":"SEX_BTSX","Value":"10.0","FactValueNumeric":10.0},
	{"SpatialDim":"JPN","TimeDim":2019,"Dim1":"SEX_BTSX","Value":"20.0","FactValueNumeric":20.0}
]}`

// recordingPublisher собирает события хода выполнения
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (p *recordingPublisher) Publish(event models.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Stage+":"+e.Status)
	}
	return out
}

func indicatorAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/") {
		case "MH_9":
			fmt.Fprint(w, mh9Payload)
		case "MH_1":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{"value":[]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRunner(t *testing.T, apiURL string) (*ETLRunner, *sql.DB, config.ETLConfig) {
	t.Helper()
	runner, db, etlConfig, _ := newLoggedTestRunner(t, apiURL, "survey.csv")
	return runner, db, etlConfig
}

func newLoggedTestRunner(t *testing.T, apiURL, surveyName string) (*ETLRunner, *sql.DB, config.ETLConfig, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	surveyPath := filepath.Join(dir, surveyName)
	require.NoError(t, os.WriteFile(surveyPath, []byte(surveyCSV), 0o644))

	etlConfig := config.GetConfig()
	etlConfig.Sink = config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "dw.db")}
	etlConfig.SurveyPath = surveyPath
	etlConfig.CheckpointDir = filepath.Join(dir, "data")
	etlConfig.WriteArtifacts = true
	etlConfig.API = config.APIConfig{
		BaseURL:        apiURL,
		IndicatorCodes: []string{"MH_1", "MH_9", "MH_6"},
		Timeout:        2 * time.Second,
		Concurrency:    2,
	}
	etlConfig.Load = config.LoadConfig{ChunkSize: 2, CreateTables: true}

	db, err := sql.Open(config.DriverSQLite, etlConfig.Sink.Path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	var logs bytes.Buffer
	logger := utils.NewETLLoggerWithWriter(&logs, true)
	runner, err := newETLRunner(context.Background(), etlConfig, db, config.Dialect{Driver: config.DriverSQLite}, nil, logger)
	require.NoError(t, err)
	return runner, db, etlConfig, &logs
}

func TestExecuteETLEndToEnd(t *testing.T) {
	srv := indicatorAPI(t)
	runner, db, etlConfig := newTestRunner(t, srv.URL)
	publisher := &recordingPublisher{}
	runner.SetProgress(publisher)

	summary, err := runner.ExecuteETL(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.IndicatorRecords)
	assert.Equal(t, []string{"MH_1"}, summary.FailedCodes)
	assert.Equal(t, 2, summary.SurveyRows)
	assert.Empty(t, summary.UnresolvedCountries)
	require.Len(t, summary.Loads, 7)

	var regionRows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "indicadores_por_regiao"`).Scan(&regionRows))
	assert.Equal(t, 2, regionRows)

	var psychologists float64
	require.NoError(t, db.QueryRow(
		`SELECT "Avg_Psychologists_per_100k" FROM "dados_unificados_por_regiao" WHERE "Region" = 'Europe'`,
	).Scan(&psychologists))
	assert.Equal(t, 10.0, psychologists)

	inserted, failed := summary.Totals()
	assert.Positive(t, inserted)
	assert.Zero(t, failed)

	last, err := runner.etlLogRepo.GetLastSuccessfulRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, summary.RunID, last.ID)
	assert.Equal(t, 2, last.IndicatorRecords)
	assert.Equal(t, 1, last.IndicatorCodesFailed)
	assert.Equal(t, inserted, last.RowsInserted)

	assert.FileExists(t, filepath.Join(etlConfig.CheckpointDir, "mapa_regioes.csv"))
	assert.FileExists(t, filepath.Join(etlConfig.CheckpointDir, "indicadores_por_regiao.csv"))

	statuses := publisher.statuses()
	assert.Equal(t, "run:started", statuses[0])
	assert.Contains(t, statuses, "load:success")
	assert.Equal(t, "run:success", statuses[len(statuses)-1])
}

func TestExecuteETLFromCheckpointSkipLoad(t *testing.T) {
	srv := indicatorAPI(t)
	runner, db, _ := newTestRunner(t, srv.URL)

	_, err := runner.ExecuteETL(context.Background(), RunOptions{SkipLoad: true})
	require.NoError(t, err)
	srv.Close()

	summary, err := runner.ExecuteETL(context.Background(), RunOptions{FromCheckpoint: true, SkipLoad: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.IndicatorRecords)
	assert.Empty(t, summary.Loads)

	var tables int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'indicadores_por_regiao'`).Scan(&tables))
	assert.Zero(t, tables)
}

func TestExecuteETLMissingSurveyRecordsFailure(t *testing.T) {
	srv := indicatorAPI(t)
	runner, _, etlConfig := newTestRunner(t, srv.URL)
	require.NoError(t, os.Remove(etlConfig.SurveyPath))

	publisher := &recordingPublisher{}
	runner.SetProgress(publisher)

	_, err := runner.ExecuteETL(context.Background(), RunOptions{})
	var stageErr *models.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "extract", stageErr.Stage)
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)

	runs, err := runner.etlLogRepo.GetRecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].ErrorMessage, "extract")
	assert.Contains(t, publisher.statuses(), "extract:failed")
}

func TestExecuteETLFailureMessageKeepsPercentSigns(t *testing.T) {
	srv := indicatorAPI(t)
	runner, _, etlConfig, logs := newLoggedTestRunner(t, srv.URL, "survey%20100%d.csv")
	require.NoError(t, os.Remove(etlConfig.SurveyPath))

	_, err := runner.ExecuteETL(context.Background(), RunOptions{})
	require.Error(t, err)

	assert.Contains(t, logs.String(), "survey%20100%d.csv")
	assert.NotContains(t, logs.String(), "%!")

	runs, err := runner.etlLogRepo.GetRecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].ErrorMessage, "survey%20100%d.csv")
}

func TestExecuteETLRejectsConcurrentRun(t *testing.T) {
	srv := indicatorAPI(t)
	runner, _, _ := newTestRunner(t, srv.URL)

	runner.running.Store(true)
	_, err := runner.ExecuteETL(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, api.ErrRunInProgress)

	_, err = runner.Trigger()
	assert.ErrorIs(t, err, api.ErrRunInProgress)
}

func TestTriggerRunsInBackground(t *testing.T) {
	srv := indicatorAPI(t)
	runner, _, _ := newTestRunner(t, srv.URL)

	runID, err := runner.Trigger()
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		last, err := runner.etlLogRepo.GetLastSuccessfulRun(context.Background())
		return err == nil && last != nil && last.ID == runID
	}, 10*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return !runner.running.Load() }, time.Second, 10*time.Millisecond)
}
