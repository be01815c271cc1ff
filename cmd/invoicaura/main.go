package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/saurabhwebdev/invoicaura/internal/app"
	"github.com/saurabhwebdev/invoicaura/internal/auth"
	"github.com/saurabhwebdev/invoicaura/internal/invoice"
	"github.com/saurabhwebdev/invoicaura/internal/observability"
	"github.com/saurabhwebdev/invoicaura/internal/platform/cache"
	"github.com/saurabhwebdev/invoicaura/internal/platform/db"
	"github.com/saurabhwebdev/invoicaura/internal/profile"
	"github.com/saurabhwebdev/invoicaura/internal/project"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
	"github.com/saurabhwebdev/invoicaura/internal/vendor"
	"github.com/saurabhwebdev/invoicaura/internal/workspace"
	"github.com/saurabhwebdev/invoicaura/jobs"
)

// thirdPartyLines adapts the invoice repository to the vendor package's view
// of the third-party invoice set.
type thirdPartyLines struct {
	repo invoice.Repository
}

func (s thirdPartyLines) ListThirdParty(ctx context.Context, userID string) ([]vendor.ThirdPartyLine, error) {
	lines, err := s.repo.ListThirdParty(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]vendor.ThirdPartyLine, len(lines))
	for i, line := range lines {
		out[i] = vendor.ThirdPartyLine{Company: line.Company, Amount: line.Amount}
	}
	return out, nil
}

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

	dbpool, err := db.NewPool(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "invoicaura_session", cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	invoiceRepo := invoice.NewRepository(dbpool)
	vendorRepo := vendor.NewRepository(dbpool)
	profileRepo := profile.NewRepository(dbpool)
	projectRepo := project.NewRepository(dbpool)

	vendorService := vendor.NewService(vendorRepo, thirdPartyLines{repo: invoiceRepo}, logger)
	projectService := project.NewService(projectRepo, invoiceRepo, logger)
	invoiceService := invoice.NewService(invoiceRepo, projectService, vendorService, logger)
	profileService := profile.NewService(profileRepo, logger)

	workspaceService := workspace.NewService(redisClient, cfg.SnapshotTTL,
		projectService, invoiceService, vendorService, profileService, logger)

	projectHandler := project.NewHandler(logger, projectService)
	invoiceHandler := invoice.NewHandler(logger, invoiceService)
	vendorHandler := vendor.NewHandler(logger, vendorService)
	profileHandler := profile.NewHandler(logger, profileService)
	workspaceHandler := workspace.NewHandler(logger, workspaceService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		AuthHandler:      authHandler,
		ProjectHandler:   projectHandler,
		InvoiceHandler:   invoiceHandler,
		VendorHandler:    vendorHandler,
		ProfileHandler:   profileHandler,
		WorkspaceHandler: workspaceHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
