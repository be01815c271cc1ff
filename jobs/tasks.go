package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVendorReconcile rebuilds vendor totals from the third-party invoice set.
	TaskVendorReconcile = "vendor:reconcile"
	// TaskLedgerRecompute rebuilds project running totals from the invoice set.
	TaskLedgerRecompute = "ledger:recompute"
)

// ScopePayload bounds a maintenance sweep to one user. An empty UserID means
// every active user.
type ScopePayload struct {
	UserID string `json:"user_id"`
}

// NewVendorReconcileTask constructs a vendor reconciliation task.
func NewVendorReconcileTask(userID string) (*asynq.Task, error) {
	body, err := json.Marshal(ScopePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorReconcile, body, asynq.Queue(QueueDefault)), nil
}

// NewLedgerRecomputeTask constructs a ledger integrity sweep task.
func NewLedgerRecomputeTask(userID string) (*asynq.Task, error) {
	body, err := json.Marshal(ScopePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRecompute, body, asynq.Queue(QueueDefault)), nil
}
