package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrerequisite - обязательный артефакт предыдущей стадии отсутствует
	ErrMissingPrerequisite = errors.New("отсутствует обязательный артефакт")

	// ErrNoData - стадия не получила ни одной записи
	ErrNoData = errors.New("данные не извлечены")
)

// StageError описывает отказ целой стадии конвейера
type StageError struct {
	Stage string
	Err   error
}

// Error реализует интерфейс error
func (e *StageError) Error() string {
	return fmt.Sprintf("стадия %s: %v", e.Stage, e.Err)
}

// Unwrap поддерживает errors.Is/As
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError оборачивает ошибку стадии
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
