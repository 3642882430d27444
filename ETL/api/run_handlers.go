package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// ErrRunInProgress - запуск отклонён, так как предыдущий ещё выполняется
var ErrRunInProgress = errors.New("ETL уже выполняется")

// RunTrigger запускает ETL вне расписания
type RunTrigger interface {
	// Trigger запускает ETL в фоне и возвращает идентификатор запуска
	Trigger() (string, error)
}

// RunsResponse структура ответа API для списка запусков
type RunsResponse struct {
	Runs []models.ETLRunLog `json:"runs"`
}

// TriggerResponse структура ответа на ручной запуск
type TriggerResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

const maxRunsLimit = 100

// listRuns обрабатывает запросы на получение последних запусков
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "Неверный формат параметра limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := s.runs.GetRecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Ошибка при запросе журнала запусков: %v", err)
		http.Error(w, "Ошибка при получении журнала запусков", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.ETLRunLog{}
	}

	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

// latestRun возвращает последний успешный запуск
func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetLastSuccessfulRun(r.Context())
	if err != nil {
		s.logger.Error("Ошибка при запросе последнего запуска: %v", err)
		http.Error(w, "Ошибка при получении последнего запуска", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Успешных запусков нет", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

// triggerRun запускает ETL вне расписания
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		http.Error(w, "Ручной запуск недоступен", http.StatusServiceUnavailable)
		return
	}

	runID, err := s.trigger.Trigger()
	if errors.Is(err, ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("Ошибка при ручном запуске ETL: %v", err)
		http.Error(w, "Не удалось запустить ETL", http.StatusInternalServerError)
		return
	}

	s.logger.Info("ETL запущен вручную, идентификатор запуска: %s", runID)
	s.writeJSON(w, http.StatusAccepted, TriggerResponse{RunID: runID, Status: models.StatusStarted})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Ошибка при кодировании JSON: %v", err)
	}
}
