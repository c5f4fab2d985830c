package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

type ResultRepository interface {
	MarkPending(ctx context.Context, learnerID, requestID string) error
	Save(ctx context.Context, result *models.StoredResult) error
	GetByRequestID(ctx context.Context, requestID string) (*models.StoredResult, error)
	Ping(ctx context.Context) error
}

const pingTimeout = 5 * time.Second

type resultRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewResultRepository(db *sql.DB, logger zerolog.Logger) ResultRepository {
	return &resultRepository{
		db:     db,
		logger: logger,
	}
}

func (r *resultRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach results database: %w", err)
	}
	return nil
}

// MarkPending records an in-flight verification. A completed result is
// never reset by a later submission of the same request.

func (r *resultRepository) MarkPending(ctx context.Context, learnerID, requestID string) error {
	query := `
		INSERT INTO verification_results (request_id, learner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (request_id) DO UPDATE SET
			learner_id = EXCLUDED.learner_id,
			status = EXCLUDED.status,
			result = NULL,
			evidence_key = NULL,
			updated_at = EXCLUDED.updated_at
		WHERE verification_results.status <> 'completed'
	`

	res, err := r.db.ExecContext(ctx, query, requestID, learnerID, models.ResultStatusPending, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark verification pending: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.Debug().
			Str("request_id", requestID).
			Msg("Verification already completed, pending mark skipped")
	}
	return nil
}

func (r *resultRepository) Save(ctx context.Context, result *models.StoredResult) error {
	var payload []byte
	if result.Result != nil {
		var err error
		payload, err = json.Marshal(result.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	query := `
		INSERT INTO verification_results (request_id, learner_id, status, result, evidence_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (request_id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			evidence_key = EXCLUDED.evidence_key,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		result.RequestID,
		result.LearnerID,
		result.Status,
		payload,
		sql.NullString{String: result.EvidenceKey, Valid: result.EvidenceKey != ""},
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save verification result: %w", err)
	}

	r.logger.Debug().
		Str("request_id", result.RequestID).
		Str("status", string(result.Status)).
		Msg("Verification result saved")

	return nil
}

func (r *resultRepository) GetByRequestID(ctx context.Context, requestID string) (*models.StoredResult, error) {
	query := `
		SELECT request_id, learner_id, status, result, evidence_key, created_at, updated_at
		FROM verification_results
		WHERE request_id = $1
	`

	var (
		res         models.StoredResult
		payload     []byte
		evidenceKey sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&res.RequestID,
		&res.LearnerID,
		&res.Status,
		&payload,
		&evidenceKey,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification result: %w", err)
	}

	if len(payload) > 0 {
		res.Result = &models.VerificationResult{}
		if err := json.Unmarshal(payload, res.Result); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
	}
	res.EvidenceKey = evidenceKey.String

	return &res, nil
}
