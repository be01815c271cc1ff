package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/saurabhwebdev/invoicaura/internal/app"
	"github.com/saurabhwebdev/invoicaura/internal/auth"
	"github.com/saurabhwebdev/invoicaura/internal/invoice"
	"github.com/saurabhwebdev/invoicaura/internal/platform/db"
	"github.com/saurabhwebdev/invoicaura/internal/project"
	"github.com/saurabhwebdev/invoicaura/internal/vendor"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.NewPool(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)

	invoiceRepo := invoice.NewRepository(pool)
	vendorRepo := vendor.NewRepository(pool)
	projectRepo := project.NewRepository(pool)

	vendorService := vendor.NewService(vendorRepo, thirdPartyLines{repo: invoiceRepo}, logger)
	projectService := project.NewService(projectRepo, invoiceRepo, logger)
	invoiceService := invoice.NewService(invoiceRepo, projectService, vendorService, logger)

	reconcileJob := jobs.NewVendorReconcileJob(vendorService, authService, logger, nil)
	ledgerJob := jobs.NewLedgerRecomputeJob(invoiceService, authService, logger, nil)

	reconcileTask, err := jobs.NewVendorReconcileTask("")
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	ledgerTask, err := jobs.NewLedgerRecomputeTask("")
	if err != nil {
		logger.Error("build ledger task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskVendorReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskLedgerRecompute, Handler: ledgerJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: ledgerTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
