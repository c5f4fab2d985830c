package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

func newMockRepo(t *testing.T) (ResultRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewResultRepository(db, zerolog.Nop()), mock
}

func TestMarkPending(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO verification_results").
		WithArgs("req-1", "learner-1", models.ResultStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPending(context.Background(), "learner-1", "req-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPendingKeepsCompleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`ON CONFLICT \(request_id\) DO UPDATE SET .+ WHERE verification_results\.status <> 'completed'`).
		WithArgs("req-1", "learner-1", models.ResultStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkPending(context.Background(), "learner-1", "req-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewResultRepository(db, zerolog.Nop())

	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = repo.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach results database")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO verification_results").
		WithArgs(
			"req-1",
			"learner-1",
			models.ResultStatusCompleted,
			sqlmock.AnyArg(),
			sql.NullString{String: "evidence/req-1.json", Valid: true},
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &models.StoredResult{
		RequestID:   "req-1",
		LearnerID:   "learner-1",
		Status:      models.ResultStatusCompleted,
		Result:      &models.VerificationResult{Success: true, AlertCode: models.AlertOK, Result: 0.0586},
		EvidenceKey: "evidence/req-1.json",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO verification_results").
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), &models.StoredResult{RequestID: "req-1", Status: models.ResultStatusCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save verification result")
}

func TestGetByRequestID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"request_id", "learner_id", "status", "result", "evidence_key", "created_at", "updated_at"}).
		AddRow("req-1", "learner-1", "completed", []byte(`{"success":true,"alert_code":"OK","result":0.0586}`), "evidence/req-1.json", now, now)

	mock.ExpectQuery("SELECT (.+) FROM verification_results").
		WithArgs("req-1").
		WillReturnRows(rows)

	res, err := repo.GetByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.ResultStatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	assert.True(t, res.Result.Success)
	assert.Equal(t, models.AlertOK, res.Result.AlertCode)
	assert.InDelta(t, 0.0586, res.Result.Result, 1e-9)
	assert.Equal(t, "evidence/req-1.json", res.EvidenceKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRequestIDPending(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"request_id", "learner_id", "status", "result", "evidence_key", "created_at", "updated_at"}).
		AddRow("req-2", "learner-1", "pending", nil, nil, now, now)

	mock.ExpectQuery("SELECT (.+) FROM verification_results").
		WithArgs("req-2").
		WillReturnRows(rows)

	res, err := repo.GetByRequestID(context.Background(), "req-2")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.ResultStatusPending, res.Status)
	assert.Nil(t, res.Result)
	assert.Empty(t, res.EvidenceKey)
}

func TestGetByRequestIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM verification_results").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	res, err := repo.GetByRequestID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, res)
}
