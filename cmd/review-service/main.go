package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/matchgrid-ai/platform/pkg/common/config"
	"github.com/matchgrid-ai/platform/pkg/common/database"
	"github.com/matchgrid-ai/platform/pkg/common/kafka"
	"github.com/matchgrid-ai/platform/pkg/common/logger"
	"github.com/matchgrid-ai/platform/pkg/common/middleware"
	"github.com/matchgrid-ai/platform/pkg/observability/metrics"
	"github.com/matchgrid-ai/platform/pkg/review"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	mode := review.ParseMode(cfg.ReviewMode)

	repo := review.NewRepository(db, cfg.ReviewTable, mode)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate review table")
	}

	projection, err := review.LoadProjection(cfg.ProjectionPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ProjectionPath).Warn("falling back to default projection")
		projection = review.DefaultProjection()
	}

	var sessions review.SessionStore
	if cfg.SessionBackend == "redis" {
		sessions = review.NewRedisStore(database.GetRedis(), cfg.SessionTTL)
		defer database.CloseRedis()
	} else {
		sessions = review.NewMemoryStore(cfg.SessionTTL)
	}

	var producer *kafka.Producer
	if cfg.ReviewDecisionTopic != "" {
		producer = kafka.NewProducer(cfg.ReviewDecisionTopic)
		defer producer.Close()
	}

	var dlq *kafka.Producer
	if cfg.ReviewDLQTopic != "" {
		dlq = kafka.NewProducer(cfg.ReviewDLQTopic)
		defer dlq.Close()
	}

	validator := review.NewValidator(mode, cfg.MaxCommentLength)
	svc := review.NewService(repo, validator, sessions, producer, dlq)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.ReviewCandidateTopic != "" {
		consumer := kafka.NewConsumer(cfg.ReviewCandidateTopic, "review-service")
		defer consumer.Close()

		go func() {
			if err := consumer.Consume(ctx, svc.IngestCandidate); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Fatal("consumer error")
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	review.NewHTTPHandler(svc, projection).Register(api)
	review.NewPageHandler(svc, projection).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
			"mode": string(mode),
		}).Info("Review Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Review Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Review Service stopped")
}
