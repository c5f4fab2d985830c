package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

var ErrEvidenceNotFound = errors.New("evidence not found")

const auditPrefix = "audits"

// EvidenceRepository keeps the full plagiarism audit of each resolved
// verification as a JSON object in the evidence bucket.
type EvidenceRepository interface {
	PutAudit(ctx context.Context, requestID string, audit *models.PlagiarismAudit) (string, error)
	GetAudit(ctx context.Context, key string) (*models.PlagiarismAudit, error)
}

type minioEvidenceRepository struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewEvidenceRepository(cfg config.MinIOConfig, logger zerolog.Logger) (EvidenceRepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	repo := &minioEvidenceRepository{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// A missing MinIO at startup is not fatal; the bucket is ensured again on first use.
	if err := repo.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup, will retry on demand")
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Bool("ssl", cfg.UseSSL).
		Msg("Connected to MinIO")

	return repo, nil
}

func (r *minioEvidenceRepository) ensureBucket(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.bucketEnsured {
		return nil
	}

	wait := 500 * time.Millisecond
	for {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err == nil && !exists {
			err = r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region})
			if err == nil {
				r.logger.Info().Str("bucket", r.bucket).Msg("Created new bucket")
			}
		}
		if err == nil {
			r.bucketEnsured = true
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("minio not ready: %w", err)
		case <-time.After(wait):
		}
	}
}

func auditKey(requestID string) string {
	return path.Join(auditPrefix, requestID+".json")
}

func (r *minioEvidenceRepository) PutAudit(ctx context.Context, requestID string, audit *models.PlagiarismAudit) (string, error) {
	if err := r.ensureBucket(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(audit)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit: %w", err)
	}

	key := auditKey(requestID)
	info, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audit: %w", err)
	}

	r.logger.Debug().
		Str("bucket", r.bucket).
		Str("key", key).
		Str("etag", info.ETag).
		Int("size", len(body)).
		Msg("Audit uploaded to MinIO")

	return key, nil
}

func (r *minioEvidenceRepository) GetAudit(ctx context.Context, key string) (*models.PlagiarismAudit, error) {
	if err := r.ensureBucket(ctx); err != nil {
		return nil, err
	}

	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	defer obj.Close()

	var audit models.PlagiarismAudit
	if err := json.NewDecoder(obj).Decode(&audit); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("failed to decode audit: %w", err)
	}

	return &audit, nil
}
