package scheduler

import (
	"context"
	"time"

	"grimm.is/firegate/internal/clock"
)

// AuditPruneTaskID identifies the audit retention task.
const AuditPruneTaskID = "audit-prune"

// Pruner deletes history older than its retention window.
type Pruner interface {
	Prune(now time.Time) (int64, error)
}

// NewAuditPruneTask creates a task that trims the audit history daily at 03:30.
func NewAuditPruneTask(p Pruner) *Task {
	return &Task{
		ID:          AuditPruneTaskID,
		Name:        "Audit Prune",
		Description: "Delete audit events past the retention window",
		Schedule:    Daily(3, 30),
		Enabled:     true,
		Timeout:     time.Minute,
		Func: func(ctx context.Context) error {
			_, err := p.Prune(clock.Now())
			return err
		},
	}
}
