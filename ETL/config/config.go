package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Конфигурация для подключения к целевой БД
	Sink DatabaseConfig `yaml:"sink"`

	// Параметры API статистики здравоохранения
	API APIConfig `yaml:"api"`

	// Путь к CSV-файлу опроса
	SurveyPath string `yaml:"survey_path"`

	// Каталог для контрольных точек и промежуточных артефактов (пусто - не сохранять)
	CheckpointDir string `yaml:"checkpoint_dir"`

	// Заменять контрольную точку выгрузкой, в которой часть кодов не получена
	CheckpointOverwritePartial bool `yaml:"checkpoint_overwrite_partial"`

	// Сохранять ли промежуточные таблицы в CSV
	WriteArtifacts bool `yaml:"write_artifacts"`

	// Параметры загрузки
	Load LoadConfig `yaml:"load"`

	// Интервал запуска ETL
	RunInterval time.Duration `yaml:"run_interval"`

	// Адрес HTTP-сервера в режиме serve
	HTTPAddr string `yaml:"http_addr"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `yaml:"enable_detailed_logging"`

	// Каталог для файлов журнала (пусто - только стандартный вывод)
	LogDir string `yaml:"log_dir"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Путь к файлу базы для драйвера sqlite
	Path string `yaml:"path"`
}

// APIConfig содержит настройки клиента API индикаторов
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	IndicatorCodes []string      `yaml:"indicator_codes"`
	Timeout        time.Duration `yaml:"timeout"`
	Concurrency    int           `yaml:"concurrency"`
}

// LoadConfig содержит настройки фазы загрузки
type LoadConfig struct {
	// Количество строк в одном INSERT (1 - построчная вставка)
	ChunkSize int `yaml:"chunk_size"`

	// Создавать выходные таблицы, если они отсутствуют
	CreateTables bool `yaml:"create_tables"`

	// Пропустить фазу загрузки (только расчёт и артефакты)
	Skip bool `yaml:"skip"`
}

// Коды индикаторов WHO GHO, извлекаемые по умолчанию
var DefaultIndicatorCodes = []string{
	"WHOSIS_000015", // ожидаемая продолжительность жизни в 60 лет
	"MH_1",          // политика в области психического здоровья
	"MH_3",          // законодательство о психическом здоровье
	"MH_6",          // психиатры в психиатрических больницах
	"MH_7",          // медсёстры в психиатрических больницах
	"MH_9",          // психологи в психиатрических больницах
	"MH_16",         // койки в психиатрических больницах
	"MH_19",         // госпитализации
}

// Значения конфигурации по умолчанию
var (
	DefaultSinkConfig = DatabaseConfig{
		Driver: DriverMySQL,
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		DBName: "mental_health_dw",
	}

	DefaultAPIConfig = APIConfig{
		BaseURL:        "https://ghoapi.azureedge.net/api",
		IndicatorCodes: DefaultIndicatorCodes,
		Timeout:        30 * time.Second,
		Concurrency:    4,
	}

	DefaultETLConfig = ETLConfig{
		Sink:                  DefaultSinkConfig,
		API:                   DefaultAPIConfig,
		SurveyPath:            "Impact_of_Remote_Work_on_Mental_Health.csv",
		CheckpointDir:         "data",
		Load:                  LoadConfig{ChunkSize: 1, CreateTables: true},
		RunInterval:           24 * time.Hour,
		HTTPAddr:              ":8080",
		EnableDetailedLogging: true,
	}
)

// GetConfig возвращает конфигурацию ETL по умолчанию с учётом переменных окружения
func GetConfig() ETLConfig {
	config := DefaultETLConfig
	config.API.IndicatorCodes = append([]string(nil), DefaultIndicatorCodes...)
	applyEnv(&config)
	return config
}

// LoadConfigFile читает YAML-файл поверх значений по умолчанию.
// Пустой путь означает конфигурацию по умолчанию.
func LoadConfigFile(path string) (ETLConfig, error) {
	config := DefaultETLConfig
	config.API.IndicatorCodes = append([]string(nil), DefaultIndicatorCodes...)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ETLConfig{}, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return ETLConfig{}, fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
		}
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return ETLConfig{}, err
	}
	return config, nil
}

// Validate проверяет согласованность конфигурации
func (c ETLConfig) Validate() error {
	var errs []error
	if _, err := DialectFor(c.Sink.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.Sink.Driver == DriverSQLite && c.Sink.Path == "" {
		errs = append(errs, errors.New("для драйвера sqlite требуется sink.path"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("не задан api.base_url"))
	}
	if len(c.API.IndicatorCodes) == 0 {
		errs = append(errs, errors.New("список api.indicator_codes пуст"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout должен быть положительным"))
	}
	if c.API.Concurrency <= 0 {
		errs = append(errs, errors.New("api.concurrency должен быть положительным"))
	}
	if c.Load.ChunkSize <= 0 {
		errs = append(errs, errors.New("load.chunk_size должен быть положительным"))
	}
	if c.RunInterval <= 0 {
		errs = append(errs, errors.New("run_interval должен быть положительным"))
	}
	return errors.Join(errs...)
}

// applyEnv переопределяет параметры из переменных окружения ETL_*
func applyEnv(c *ETLConfig) {
	c.Sink.Driver = GetEnv("ETL_SINK_DRIVER", c.Sink.Driver)
	c.Sink.Host = GetEnv("ETL_SINK_HOST", c.Sink.Host)
	c.Sink.Port = GetEnvInt("ETL_SINK_PORT", c.Sink.Port)
	c.Sink.User = GetEnv("ETL_SINK_USER", c.Sink.User)
	c.Sink.Password = GetEnv("ETL_SINK_PASSWORD", c.Sink.Password)
	c.Sink.DBName = GetEnv("ETL_SINK_DBNAME", c.Sink.DBName)
	c.Sink.Path = GetEnv("ETL_SINK_PATH", c.Sink.Path)
	c.API.BaseURL = GetEnv("ETL_API_BASE_URL", c.API.BaseURL)
	c.SurveyPath = GetEnv("ETL_SURVEY_PATH", c.SurveyPath)
	c.CheckpointDir = GetEnv("ETL_CHECKPOINT_DIR", c.CheckpointDir)
	c.CheckpointOverwritePartial = GetEnvBool("ETL_CHECKPOINT_OVERWRITE_PARTIAL", c.CheckpointOverwritePartial)
	c.HTTPAddr = GetEnv("ETL_HTTP_ADDR", c.HTTPAddr)
	c.EnableDetailedLogging = GetEnvBool("ETL_DETAILED_LOGGING", c.EnableDetailedLogging)
}
