package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	isVerbose   bool
	file        *os.File
}

// NewETLLogger создает новый экземпляр логгера для ETL.
// Если logDir не пуст, сообщения дополнительно пишутся в файл etl_log_<дата>.log.
func NewETLLogger(verbose bool, logDir string) (*ETLLogger, error) {
	if logDir == "" {
		return NewETLLoggerWithWriter(os.Stdout, verbose), nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог журнала: %w", err)
	}

	// Создаем или открываем лог-файл для записи
	currentTime := time.Now().Format("2006-01-02")
	logFileName := filepath.Join(logDir, fmt.Sprintf("etl_log_%s.log", currentTime))

	file, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть или создать файл лога: %w", err)
	}

	logger := NewETLLoggerWithWriter(io.MultiWriter(os.Stdout, file), verbose)
	logger.file = file
	return logger, nil
}

// NewETLLoggerWithWriter создает логгер, пишущий в указанный поток
func NewETLLoggerWithWriter(w io.Writer, verbose bool) *ETLLogger {
	// Четыре логгера делят один поток, запись сериализуется
	w = &lockedWriter{w: w}
	flags := log.Ldate | log.Ltime
	return &ETLLogger{
		infoLogger:  log.New(w, "INFO: ", flags),
		warnLogger:  log.New(w, "WARN: ", flags),
		errorLogger: log.New(w, "ERROR: ", flags),
		debugLogger: log.New(w, "DEBUG: ", flags),
		isVerbose:   verbose,
	}
}

// Close закрывает файл журнала, если он был открыт
func (l *ETLLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.infoLogger.Println(fmt.Sprintf(format, v...))
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.warnLogger.Println(fmt.Sprintf(format, v...))
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.errorLogger.Println(fmt.Sprintf(format, v...))
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.debugLogger.Println(fmt.Sprintf(format, v...))
}

// LogStageStart логирует начало фазы
func (l *ETLLogger) LogStageStart(stage string) {
	l.Info("Начало фазы %s", stage)
}

// LogStageComplete логирует завершение фазы
func (l *ETLLogger) LogStageComplete(stage string, duration time.Duration) {
	l.Info("Фаза %s завершена. Длительность: %v", stage, duration)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
