package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/delivery/httpd"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/classifier"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/integration/urkund"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/sample"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/walker"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker/queue"
)

type App struct {
	server             *http.Server
	logger             zerolog.Logger
	config             *config.Config
	db                 *sql.DB
	notificationWorker worker.NotificationWorker
	rabbitMQRepo       repository.RabbitMQRepository
	cancel             context.CancelFunc
}

// New wires the service. With serveHTTP false only the wake-up worker runs.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, db *sql.DB, serveHTTP bool) (*App, error) {
	rabbitMQRepo, err := repository.NewRabbitMQRepository(cfg.RabbitMQ, log)
	if err != nil {
		return nil, err
	}

	if err := rabbitMQRepo.SetupQueue(
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.RoutingKey,
	); err != nil {
		rabbitMQRepo.Close()
		return nil, err
	}

	publisher := queue.NewRabbitMQPublisher(rabbitMQRepo.Channel(), log)
	consumer := queue.NewRabbitMQConsumer(
		rabbitMQRepo.Channel(),
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		log,
	)

	evidenceRepo, err := repository.NewEvidenceRepository(cfg.MinIO, log)
	if err != nil {
		rabbitMQRepo.Close()
		return nil, err
	}
	resultRepo := repository.NewResultRepository(db, log)
	resultService := service.NewResultService(resultRepo, evidenceRepo, log)

	urkundClient, err := urkund.New(ctx, cfg.Urkund, log)
	if err != nil {
		rabbitMQRepo.Close()
		return nil, fmt.Errorf("failed to create Urkund client: %w", err)
	}

	provider := cfg.EffectiveProvider()

	cls := classifier.Default()
	sampleValidator := sample.NewValidator(
		cls,
		walker.NewWalker(cls, provider.MaxRecursionLevel, log, walker.WithMaxExtractSize(provider.MaxExtractSize)),
		log,
	)

	notifier := service.NewNotifier(publisher, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, log)

	verificationService := service.NewVerificationService(
		sampleValidator,
		urkundClient,
		notifier,
		resultService,
		log,
		service.VerificationConfig{
			DefaultReceiver:     cfg.Urkund.DefaultEmailReceiver,
			ReceiverName:        cfg.Urkund.DefaultReceiverName,
			MaxTimeoutRetries:   provider.MaxTimeoutRetries,
			RetryWait:           provider.RetryWait,
			CountdownInitial:    provider.CountdownInitial,
			CountdownMultiplier: provider.CountdownMultiplier,
			NotificationPrefix:  provider.NotificationPrefix,
		},
	)

	notificationWorker := worker.NewNotificationWorker(
		worker.NewWorkerPool(cfg.Worker.MaxWorkers, log),
		consumer,
		verificationService,
		notifier,
		log,
	)

	a := &App{
		logger:             log,
		config:             cfg,
		db:                 db,
		notificationWorker: notificationWorker,
		rabbitMQRepo:       rabbitMQRepo,
	}

	if serveHTTP {
		handler := httpd.NewHandler(verificationService, resultRepo, notificationWorker, log)
		a.server = &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      newRouter(cfg, handler),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
	}

	return a, nil
}

func newRouter(cfg *config.Config, handler *httpd.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Verify can wait out several Urkund retries before answering.
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)
	return router
}

// Run starts the worker and, when configured, blocks serving HTTP. Without an
// HTTP server it blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.notificationWorker.Start(workerCtx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start notification worker")
		return err
	}

	if a.server == nil {
		<-ctx.Done()
		return nil
	}

	a.logger.Info().Msgf("Starting urkund service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down urkund service...")

	var serverErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
			serverErr = err
		}
	}

	if a.cancel != nil {
		if err := a.notificationWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop notification worker")
		}
		a.cancel()
	}

	if a.rabbitMQRepo != nil {
		if err := a.rabbitMQRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Urkund service stopped")
	return serverErr
}
