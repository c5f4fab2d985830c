package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/integration/urkund"
)

type verifyRequest struct {
	LearnerID string `json:"learner_id" validate:"required,max=255"`
	RequestID string `json:"request_id" validate:"omitempty,max=255"`
	Data      string `json:"data" validate:"required,startswith=data:"`
	Metadata  struct {
		Mimetype string               `json:"mimetype" validate:"required"`
		Filename string               `json:"filename" validate:"omitempty,max=1024"`
		Context  models.SampleContext `json:"context"`
	} `json:"metadata" validate:"required"`
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	smp := models.Sample{
		LearnerID: req.LearnerID,
		RequestID: req.RequestID,
		Data:      req.Data,
		Metadata: models.SampleMetadata{
			Mimetype: req.Metadata.Mimetype,
			Filename: req.Metadata.Filename,
			Context:  req.Metadata.Context,
		},
	}

	verdict, err := h.verificationService.Verify(r.Context(), smp)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", req.RequestID).
			Str("kind", urkund.KindOf(err).String()).
			Msg("Verification failed")
		writeError(w, http.StatusBadGateway, "Plagiarism service unavailable")
		return
	}

	if verdict.IsDelayed() {
		writeSuccess(w, http.StatusAccepted, map[string]interface{}{
			"delayed":    verdict.Delayed,
			"status_url": "/api/v1/verifications/" + req.RequestID,
		})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"request_id": req.RequestID,
		"result":     verdict.Immediate,
	})
}

func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	res, err := h.verificationService.GetResult(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			writeError(w, http.StatusNotFound, "Verification not found")
			return
		}
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to get verification")
		writeError(w, http.StatusInternalServerError, "Failed to get verification")
		return
	}

	writeSuccess(w, http.StatusOK, res)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return "Invalid fields: " + strings.Join(fields, ", ")
}
