package allowlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/scheduler"
)

const (
	// DefaultSweepInterval is how often expired grants are revoked.
	DefaultSweepInterval = 10 * time.Minute
	// SweepTaskID identifies the sweep in the scheduler.
	SweepTaskID = "allowlist-expiry"
)

// SweepResult summarizes one expiry cycle.
type SweepResult struct {
	Expired  int
	Revoked  int
	Failed   int
	Duration time.Duration
}

// Sweep revokes every expired grant as a single coordinator job. Pairs whose
// revocation fails stay in the table and are retried on the next cycle.
func (c *Coordinator) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := c.submit(ctx, func(ctx context.Context) error {
		res = c.sweepExpired(ctx)
		return nil
	})
	return res, err
}

func (c *Coordinator) sweepExpired(ctx context.Context) SweepResult {
	start := time.Now()
	now := c.clock.Now()
	opID := "sweep-" + uuid.NewString()

	expired := c.table.ListExpired(now)
	res := SweepResult{Expired: len(expired)}

	for _, p := range expired {
		evt := audit.Event{OpID: opID, Action: audit.ActionExpire, Zone: p.Zone, Source: p.Source}
		err := c.gateway.Revoke(ctx, p.Zone, p.Source)
		c.metrics.RecordRevoke(p.Zone, err)
		c.record(evt, err)
		if err != nil {
			res.Failed++
			c.logger.Warn("failed to revoke expired source", "zone", p.Zone, "source", p.Source, "error", err)
			continue
		}
		c.table.Remove(p.Zone, p.Source)
		res.Revoked++
		c.logger.Info("expired source revoked", "zone", p.Zone, "source", p.Source)
	}

	c.persist(opID)

	res.Duration = time.Since(start)
	c.metrics.ObserveSweep(res.Duration)
	return res
}

// Sweeper drives Coordinator.Sweep on a fixed interval.
type Sweeper struct {
	coord    *Coordinator
	interval time.Duration
	logger   *logging.Logger
}

// NewSweeper creates a sweeper. interval <= 0 uses DefaultSweepInterval.
func NewSweeper(coord *Coordinator, interval time.Duration, logger *logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		coord:    coord,
		interval: interval,
		logger:   logger.WithComponent("sweeper"),
	}
}

// Task returns the scheduler task for the sweep. It runs once at startup.
func (s *Sweeper) Task() *scheduler.Task {
	return &scheduler.Task{
		ID:          SweepTaskID,
		Name:        "Allowlist Expiry",
		Description: "Revoke grants whose access window has elapsed",
		Schedule:    scheduler.Every(s.interval),
		Func:        s.Run,
		Enabled:     true,
		RunOnStart:  true,
	}
}

// Run performs one sweep. It returns an error when any revocation failed so
// the scheduler records the cycle as failed.
func (s *Sweeper) Run(ctx context.Context) error {
	res, err := s.coord.Sweep(ctx)
	if err != nil {
		return err
	}
	if res.Expired > 0 || res.Failed > 0 {
		s.logger.Info("sweep finished", "expired", res.Expired, "revoked", res.Revoked,
			"failed", res.Failed, "duration", res.Duration)
	} else {
		s.logger.Debug("sweep finished", "duration", res.Duration)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d expired grants could not be revoked", res.Failed, res.Expired)
	}
	return nil
}
