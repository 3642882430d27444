package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DSN формирует строку подключения для драйвера целевой БД
func (c DatabaseConfig) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		cfg.DBName = c.DBName
		cfg.ParseTime = true
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN(), nil
	case DriverPostgres:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, sslMode), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("не задан путь к файлу sqlite")
		}
		return c.Path, nil
	default:
		return "", fmt.Errorf("неподдерживаемый драйвер базы данных: %q", c.Driver)
	}
}

// ConnectSink устанавливает подключение к целевой базе данных
func ConnectSink(ctx context.Context, config DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(config.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	dsn, err := config.DSN()
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("ошибка подключения к целевой базе данных: %w", err)
	}

	// Настройка параметров подключения
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if config.Driver == DriverSQLite {
		// SQLite сериализует запись, один писатель исключает SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	// Проверка подключения
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("не удалось установить соединение с целевой базой данных: %w", err)
	}

	log.Printf("Успешное подключение к целевой базе данных (%s)", config.Driver)
	return db, dialect, nil
}

// CloseDatabase закрывает подключение к базе данных
func CloseDatabase(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("Ошибка при закрытии соединения с базой данных: %v", err)
		return
	}
	log.Println("Соединение с базой данных закрыто")
}
