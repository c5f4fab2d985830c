package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/repository"
)

// ResultService is the sink for verification outcomes.
type ResultService interface {
	MarkPending(ctx context.Context, learnerID, requestID string) error
	Publish(ctx context.Context, result models.DelayedResult) error
	// Get returns nil without error when the request is unknown.
	Get(ctx context.Context, requestID string) (*models.StoredResult, error)
}

type resultService struct {
	results  repository.ResultRepository
	evidence repository.EvidenceRepository
	logger   zerolog.Logger
}

func NewResultService(results repository.ResultRepository, evidence repository.EvidenceRepository, logger zerolog.Logger) ResultService {
	return &resultService{
		results:  results,
		evidence: evidence,
		logger:   logger,
	}
}

func (s *resultService) MarkPending(ctx context.Context, learnerID, requestID string) error {
	return s.results.MarkPending(ctx, learnerID, requestID)
}

// Publish moves the audit to the evidence store and records the result row.
// When the upload fails the audit stays inline in the row.
func (s *resultService) Publish(ctx context.Context, delayed models.DelayedResult) error {
	if delayed.Result == nil {
		return fmt.Errorf("empty result for request %s", delayed.RequestID)
	}

	stored := &models.StoredResult{
		RequestID: delayed.RequestID,
		LearnerID: delayed.LearnerID,
		Status:    models.ResultStatusCompleted,
	}

	result := *delayed.Result
	if result.Audit != nil {
		key, err := s.evidence.PutAudit(ctx, delayed.RequestID, result.Audit)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("request_id", delayed.RequestID).
				Msg("Failed to store audit evidence, keeping it inline")
		} else {
			stored.EvidenceKey = key
			result.Audit = nil
		}
	}
	stored.Result = &result

	if err := s.results.Save(ctx, stored); err != nil {
		return err
	}
	return nil
}

func (s *resultService) Get(ctx context.Context, requestID string) (*models.StoredResult, error) {
	stored, err := s.results.GetByRequestID(ctx, requestID)
	if err != nil || stored == nil {
		return stored, err
	}

	if stored.Result != nil && stored.Result.Audit == nil && stored.EvidenceKey != "" {
		a, err := s.evidence.GetAudit(ctx, stored.EvidenceKey)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("request_id", requestID).
				Str("key", stored.EvidenceKey).
				Msg("Failed to load audit evidence")
			return stored, nil
		}
		stored.Result.Audit = a
	}

	return stored, nil
}
