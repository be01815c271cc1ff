package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/saurabhwebdev/invoicaura/internal/jobs"
)

// LedgerRecomputer rebuilds one user's project running totals from the
// invoice set.
type LedgerRecomputer interface {
	RecomputeAggregates(ctx context.Context, userID string) (int, error)
}

// LedgerRecomputeJob coordinates the ledger integrity sweep. It is the
// backstop for the rare aggregate drift the transactional path cannot cover,
// such as a project row that disappeared mid-update.
type LedgerRecomputeJob struct {
	Service LedgerRecomputer
	Users   UserDirectory
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerRecomputeJob constructs the job handler.
func NewLedgerRecomputeJob(service LedgerRecomputer, users UserDirectory, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerRecomputeJob {
	return &LedgerRecomputeJob{Service: service, Users: users, Logger: logger, Metrics: metrics}
}

// Handle executes the ledger integrity sweep.
func (j *LedgerRecomputeJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil || j.Users == nil {
		return errors.New("ledger recompute: dependencies not configured")
	}
	var payload ScopePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLedgerRecompute)
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
	fixed := 0
	for _, userID := range userIDs {
		n, err := j.Service.RecomputeAggregates(ctx, userID)
		if err != nil {
			resultErr = err
			j.log().Error("recompute aggregates", slog.String("user_id", userID), slog.Any("error", err))
			return resultErr
		}
		fixed += n
	}

	j.metrics().AddCorrections(TaskLedgerRecompute, fixed)
	if fixed > 0 {
		j.log().Warn("aggregate drift corrected", slog.Int("projects", fixed))
	}
	j.log().Info("ledger integrity sweep finished",
		slog.Int("users", len(userIDs)),
		slog.Int("corrected", fixed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *LedgerRecomputeJob) resolveUsers(ctx context.Context, userID string) ([]string, error) {
	if userID != "" {
		return []string{userID}, nil
	}
	return j.Users.ListActiveUserIDs(ctx)
}

func (j *LedgerRecomputeJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *LedgerRecomputeJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerRecompute))
	}
	return slog.Default().With(slog.String("job", TaskLedgerRecompute))
}
