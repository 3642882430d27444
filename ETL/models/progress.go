package models

import "time"

// Статусы стадий и запусков
const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// ProgressEvent - событие хода выполнения ETL, рассылаемое подписчикам
type ProgressEvent struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}
