package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/buildmart/buildmart/internal/access"
	accesshttp "github.com/buildmart/buildmart/internal/access/http"
	"github.com/buildmart/buildmart/internal/app"
	"github.com/buildmart/buildmart/internal/audit"
	audithttp "github.com/buildmart/buildmart/internal/audit/http"
	"github.com/buildmart/buildmart/internal/identity"
	"github.com/buildmart/buildmart/internal/marketplace"
	"github.com/buildmart/buildmart/internal/observability"
	"github.com/buildmart/buildmart/internal/platform/cache"
	"github.com/buildmart/buildmart/internal/platform/db"
	"github.com/buildmart/buildmart/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	classifier, err := access.DefaultClassifier()
	if err != nil {
		var cfgErr *access.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Error("field classification incomplete", slog.Any("error", cfgErr))
		} else {
			logger.Error("load field classification", slog.Any("error", err))
		}
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        cfg.PGMaxConns,
		MaxConnIdleTime: cfg.PGMaxConnIdleTime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	marketRepo := marketplace.NewRepository(dbpool)
	identityMW := identity.Middleware{
		Resolver: identity.NewResolver(identity.NewSessionStore(redisClient), marketRepo, cfg.SessionCookie, logger),
		Logger:   logger,
	}

	auditRepo := audit.NewRepository(dbpool)
	auditLogger := audit.NewLogger(auditRepo, cfg.AuditWriteTimeout)

	accessService := access.NewService(access.ServiceDeps{
		Store:            marketRepo,
		Resolver:         access.NewResolver(marketRepo, classifier, cfg.RelationshipTimeout),
		Engine:           access.NewEngine(classifier),
		Projector:        access.NewProjector(classifier),
		Audit:            auditLogger,
		Metrics:          metrics,
		Logger:           logger,
		BatchConcurrency: cfg.BatchConcurrency,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Identity:        identityMW,
		ResourceHandler: accesshttp.NewHandler(logger, accessService),
		AuditHandler:    audithttp.NewHandler(logger, audit.NewService(auditRepo)),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
