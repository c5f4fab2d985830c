package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/audit"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/integration/urkund"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/sample"
)

var ErrResultNotFound = errors.New("verification result not found")

// PlagiarismClient is the part of the Urkund client the verification flow uses.
type PlagiarismClient interface {
	Suffix() string
	EnsureReceiver(ctx context.Context, fullName, email string) (*urkund.Receiver, error)
	Submit(ctx context.Context, upload urkund.Upload) (*urkund.Submission, error)
	Status(ctx context.Context, analysisAddress, externalID string) ([]urkund.Submission, error)
}

type VerificationService interface {
	// Verify validates and submits a sample. The verdict is immediate when the
	// sample is rejected, delayed when documents are being analysed.
	Verify(ctx context.Context, s models.Sample) (*models.Verdict, error)
	// OnNotification polls the pending jobs of a tracked submission and either
	// publishes the final result or schedules the next wake-up.
	OnNotification(ctx context.Context, key string, state models.TrackingState) error
	GetResult(ctx context.Context, requestID string) (*models.StoredResult, error)
}

type VerificationConfig struct {
	DefaultReceiver     string
	ReceiverName        string
	MaxTimeoutRetries   int
	RetryWait           time.Duration
	CountdownInitial    int
	CountdownMultiplier int
	NotificationPrefix  string
}

type verificationService struct {
	validator sample.Validator
	client    PlagiarismClient
	notifier  Notifier
	results   ResultService
	logger    zerolog.Logger
	config    VerificationConfig
}

func NewVerificationService(
	validator sample.Validator,
	client PlagiarismClient,
	notifier Notifier,
	results ResultService,
	logger zerolog.Logger,
	config VerificationConfig,
) VerificationService {
	return &verificationService{
		validator: validator,
		client:    client,
		notifier:  notifier,
		results:   results,
		logger:    logger,
		config:    config,
	}
}

// attempt is the state of one Verify call shared across submission restarts.
type attempt struct {
	timeouts int
}

func (s *verificationService) Verify(ctx context.Context, smp models.Sample) (*models.Verdict, error) {
	att := &attempt{}
	for {
		verdict, restart, err := s.submit(ctx, smp, att)
		if !restart {
			return verdict, err
		}

		s.logger.Warn().
			Str("request_id", smp.RequestID).
			Int("timeouts", att.timeouts).
			Dur("wait", s.config.RetryWait).
			Msg("Urkund timed out, restarting submission")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.RetryWait):
		}
	}
}

// submit runs one full submission pass. restart is true when a timeout below
// the retry bound requires the whole sample to be submitted again.
func (s *verificationService) submit(ctx context.Context, smp models.Sample, att *attempt) (*models.Verdict, bool, error) {
	check := s.validator.Validate(smp)
	if !check.Valid {
		s.logger.Info().
			Str("learner_id", smp.LearnerID).
			Str("request_id", smp.RequestID).
			Str("code", check.Code).
			Str("reason", check.Message).
			Msg("Sample rejected")
		return &models.Verdict{Immediate: &models.VerificationResult{
			Success:      false,
			ErrorMessage: check.Message,
			MessageCode:  check.Code,
		}}, false, nil
	}

	receiver, err := s.client.EnsureReceiver(ctx, s.config.ReceiverName, s.config.DefaultReceiver)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve default receiver: %w", err)
	}

	state := models.TrackingState{
		LearnerID:  smp.LearnerID,
		RequestID:  smp.RequestID,
		TotalFiles: models.CountAccepted(check.Tree),
		Countdown:  s.config.CountdownInitial,
	}
	submitter := smp.LearnerID + s.client.Suffix()

	idx := 0
	for _, record := range check.Tree {
		if !record.Accepted() {
			continue
		}

		externalID := fmt.Sprintf("%s_%d", smp.RequestID, idx)
		idx++

		sub, err := s.client.Submit(ctx, urkund.Upload{
			ExternalID:      externalID,
			AnalysisAddress: receiver.AnalysisAddress,
			Submitter:       submitter,
			Filename:        record.Filename,
			Mimetype:        record.Mimetype,
			Content:         record.Content,
		})
		if err != nil {
			outcome := models.ErrorOutcome{ExternalID: externalID, Filename: record.Filename}
			switch urkund.KindOf(err) {
			case urkund.KindTimeout:
				att.timeouts++
				if att.timeouts < s.config.MaxTimeoutRetries {
					return nil, true, nil
				}
				outcome.Code = models.CodeExternalServiceTimeout
			case urkund.KindMediaTypeNotSupported:
				outcome.Code = models.CodeInvalidMimetype
			default:
				outcome.Code = models.CodeInvalidSampleData
			}

			s.logger.Warn().
				Err(err).
				Str("external_id", externalID).
				Str("filename", record.Filename).
				Str("code", outcome.Code).
				Msg("Failed to submit document")

			state.Errors = append(state.Errors, outcome)
			continue
		}

		switch {
		case sub.Status.InProgress():
			state.Pending = append(state.Pending, models.ExternalJob{
				ExternalID:      externalID,
				AnalysisAddress: receiver.AnalysisAddress,
				Filename:        record.Filename,
			})
		case sub.Status.State == urkund.StateError:
			state.Errors = append(state.Errors, models.ErrorOutcome{
				Code:          models.CodeInvalidSampleData,
				ExternalID:    externalID,
				Filename:      record.Filename,
				UrkundCode:    urkund.ErrorMessage(sub.Status.ErrorCode),
				UrkundMessage: sub.Status.Message,
			})
		default:
			state.Errors = append(state.Errors, models.ErrorOutcome{
				Code:          models.CodeInvalidSampleData,
				ExternalID:    externalID,
				Filename:      record.Filename,
				UrkundMessage: sub.Status.Message,
			})
		}
	}

	if len(state.Pending) == 0 {
		s.logger.Info().
			Str("request_id", smp.RequestID).
			Int("total_files", state.TotalFiles).
			Int("errors", len(state.Errors)).
			Msg("No document accepted for analysis")
		return &models.Verdict{Immediate: &models.VerificationResult{
			Success:      false,
			ErrorMessage: "No document could be submitted for analysis",
			MessageCode:  models.CodeInvalidSampleData,
		}}, false, nil
	}

	// The row must exist before a wake-up can complete it.
	if err := s.results.MarkPending(ctx, smp.LearnerID, smp.RequestID); err != nil {
		s.logger.Error().Err(err).Str("request_id", smp.RequestID).Msg("Failed to record pending verification")
	}

	if err := s.schedule(ctx, state); err != nil {
		return nil, false, err
	}

	s.logger.Info().
		Str("learner_id", smp.LearnerID).
		Str("request_id", smp.RequestID).
		Int("pending", len(state.Pending)).
		Int("errors", len(state.Errors)).
		Int("countdown", state.Countdown).
		Msg("Sample submitted to Urkund")

	return &models.Verdict{Delayed: &models.DelayedResult{
		LearnerID: smp.LearnerID,
		RequestID: smp.RequestID,
	}}, false, nil
}

func (s *verificationService) schedule(ctx context.Context, state models.TrackingState) error {
	task := models.NotificationTask{
		Key:       s.config.NotificationPrefix + "_" + uuid.New().String(),
		Countdown: state.Countdown,
		Info:      state,
	}
	if err := s.notifier.Schedule(ctx, task); err != nil {
		return fmt.Errorf("failed to schedule notification: %w", err)
	}
	return nil
}

func (s *verificationService) OnNotification(ctx context.Context, key string, state models.TrackingState) error {
	if !strings.HasPrefix(key, s.config.NotificationPrefix) {
		s.logger.Debug().Str("key", key).Msg("Ignoring notification with foreign key")
		return nil
	}

	next := models.TrackingState{
		LearnerID:  state.LearnerID,
		RequestID:  state.RequestID,
		TotalFiles: state.TotalFiles,
		Corrects:   append([]models.CorrectOutcome(nil), state.Corrects...),
		Errors:     append([]models.ErrorOutcome(nil), state.Errors...),
		Countdown:  state.Countdown,
	}

	for _, job := range state.Pending {
		subs, err := s.client.Status(ctx, job.AnalysisAddress, job.ExternalID)
		if err != nil {
			if urkund.IsNotFound(err) {
				next.Errors = append(next.Errors, models.ErrorOutcome{
					Code:          models.CodeInvalidSampleData,
					ExternalID:    job.ExternalID,
					Filename:      job.Filename,
					UrkundMessage: "Submission not found",
				})
				continue
			}
			s.logger.Warn().
				Err(err).
				Str("external_id", job.ExternalID).
				Msg("Failed to poll submission, keeping it pending")
			next.Pending = append(next.Pending, job)
			continue
		}

		if !s.resolveJob(&next, job, subs) {
			next.Pending = append(next.Pending, job)
		}
	}

	if next.Done() {
		return s.publish(ctx, next)
	}

	next.Countdown = state.Countdown * s.config.CountdownMultiplier

	s.logger.Info().
		Str("request_id", next.RequestID).
		Int("pending", len(next.Pending)).
		Int("processed", next.Processed()).
		Int("total_files", next.TotalFiles).
		Int("countdown", next.Countdown).
		Msg("Analysis still running, rescheduling")

	return s.schedule(ctx, next)
}

// resolveJob applies the first terminal record of subs to state and reports
// whether the job is finished.
func (s *verificationService) resolveJob(state *models.TrackingState, job models.ExternalJob, subs []urkund.Submission) bool {
	for i, sub := range subs {
		switch sub.Status.State {
		case urkund.StateAnalyzed:
			if sub.Report == nil {
				s.logger.Warn().Str("external_id", job.ExternalID).Msg("Analyzed submission has no report yet")
				continue
			}
			state.Corrects = append(state.Corrects, models.CorrectOutcome{
				ExternalID:      job.ExternalID,
				AnalysisAddress: job.AnalysisAddress,
				Filename:        job.Filename,
				ReportURL:       sub.Report.ReportURL,
				Significance:    sub.Report.Significance,
				MatchCount:      sub.Report.MatchCount,
				SourceCount:     sub.Report.SourceCount,
				Warnings:        sub.Report.Warnings,
			})
		case urkund.StateError:
			state.Errors = append(state.Errors, models.ErrorOutcome{
				Code:          models.CodeInvalidSampleData,
				ExternalID:    job.ExternalID,
				Filename:      job.Filename,
				UrkundCode:    urkund.ErrorMessage(sub.Status.ErrorCode),
				UrkundMessage: sub.Status.Message,
			})
		default:
			continue
		}

		if extra := len(subs) - i - 1; extra > 0 {
			s.logger.Debug().
				Str("external_id", job.ExternalID).
				Int("ignored", extra).
				Msg("Ignoring extra submission records")
		}
		return true
	}
	return false
}

func (s *verificationService) publish(ctx context.Context, state models.TrackingState) error {
	a := audit.Build(state.Corrects, state.Errors, state.TotalFiles)
	result := &models.VerificationResult{
		Success:   true,
		AlertCode: audit.Alert(len(state.Corrects), len(state.Errors)),
		Result:    audit.MaxRatio(state.Corrects),
		Audit:     &a,
	}

	delayed := models.DelayedResult{
		LearnerID: state.LearnerID,
		RequestID: state.RequestID,
		Result:    result,
	}
	if err := s.results.Publish(ctx, delayed); err != nil {
		return fmt.Errorf("failed to publish verification result: %w", err)
	}

	s.logger.Info().
		Str("learner_id", state.LearnerID).
		Str("request_id", state.RequestID).
		Str("alert", string(result.AlertCode)).
		Float64("result", result.Result).
		Int("corrects", len(state.Corrects)).
		Int("errors", len(state.Errors)).
		Msg("Verification resolved")

	return nil
}

func (s *verificationService) GetResult(ctx context.Context, requestID string) (*models.StoredResult, error) {
	res, err := s.results.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if res == nil {
		return nil, ErrResultNotFound
	}
	return res, nil
}
