package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/saurabhwebdev/invoicaura/internal/jobs"
	"github.com/saurabhwebdev/invoicaura/internal/vendor"
)

// VendorReconciler rebuilds one user's vendor totals.
type VendorReconciler interface {
	Reconcile(ctx context.Context, userID string) (vendor.ReconcileResult, error)
}

// UserDirectory enumerates the users a sweep fans out over.
type UserDirectory interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// VendorReconcileJob coordinates the vendor reconciliation sweep.
type VendorReconcileJob struct {
	Service VendorReconciler
	Users   UserDirectory
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewVendorReconcileJob constructs the job handler.
func NewVendorReconcileJob(service VendorReconciler, users UserDirectory, logger *slog.Logger, metrics *jobmetrics.Metrics) *VendorReconcileJob {
	return &VendorReconcileJob{Service: service, Users: users, Logger: logger, Metrics: metrics}
}

// Handle executes the vendor reconciliation job.
func (j *VendorReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil || j.Users == nil {
		return errors.New("vendor reconcile: dependencies not configured")
	}
	var payload ScopePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskVendorReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	userIDs, err := j.resolveUsers(ctx, payload.UserID)
	if err != nil {
		resultErr = err
		j.log().Error("resolve users", slog.Any("error", err))
		return resultErr
	}

	start := time.Now()
	created, updated := 0, 0
	for _, userID := range userIDs {
		result, err := j.Service.Reconcile(ctx, userID)
		if err != nil {
			resultErr = err
			j.log().Error("reconcile vendors", slog.String("user_id", userID), slog.Any("error", err))
			return resultErr
		}
		created += result.Created
		updated += result.Updated
	}

	j.metrics().AddCorrections(TaskVendorReconcile, created+updated)
	j.log().Info("vendor totals reconciled",
		slog.Int("users", len(userIDs)),
		slog.Int("created", created),
		slog.Int("updated", updated),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *VendorReconcileJob) resolveUsers(ctx context.Context, userID string) ([]string, error) {
	if userID != "" {
		return []string{userID}, nil
	}
	return j.Users.ListActiveUserIDs(ctx)
}

func (j *VendorReconcileJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *VendorReconcileJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskVendorReconcile))
	}
	return slog.Default().With(slog.String("job", TaskVendorReconcile))
}
