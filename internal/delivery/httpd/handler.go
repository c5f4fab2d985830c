package httpd

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider exposes the wake-up worker counters.
type StatsProvider interface {
	GetStats() worker.WorkerStats
}

type Handler struct {
	verificationService service.VerificationService
	db                  Pinger
	stats               StatsProvider
	validate            *validator.Validate
	logger              zerolog.Logger
}

func NewHandler(
	verificationService service.VerificationService,
	db Pinger,
	stats StatsProvider,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		verificationService: verificationService,
		db:                  db,
		stats:               stats,
		validate:            validator.New(validator.WithRequiredStructEnabled()),
		logger:              logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/status", h.GetWorkerStatus)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/verifications", func(r chi.Router) {
			r.Post("/", h.Verify)
			r.Get("/{request_id}", h.GetVerification)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
