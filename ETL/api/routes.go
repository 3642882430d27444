package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// Server объединяет обработчики HTTP API ETL-сервиса
type Server struct {
	runs     models.ETLLogRepository
	trigger  RunTrigger
	progress http.Handler
	metrics  http.Handler
	logger   *utils.ETLLogger
}

// NewServer создает новый экземпляр Server.
// progress и metrics могут быть nil, тогда соответствующие маршруты не регистрируются.
func NewServer(runs models.ETLLogRepository, trigger RunTrigger, progress, metrics http.Handler, logger *utils.ETLLogger) *Server {
	return &Server{
		runs:     runs,
		trigger:  trigger,
		progress: progress,
		metrics:  metrics,
		logger:   logger,
	}
}

// Router настраивает все маршруты API и WebSocket
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	// Применяем CORS middleware
	router.Use(corsMiddleware)

	// API журнала запусков
	router.HandleFunc("/api/runs", s.listRuns).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/runs/latest", s.latestRun).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/runs", s.triggerRun).Methods(http.MethodPost, http.MethodOptions)

	// Ход выполнения в реальном времени
	if s.progress != nil {
		router.Handle("/ws/progress", s.progress)
	}

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
