package allowlist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/clock"
	"grimm.is/firegate/internal/firewall"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/metrics"
)

// DefaultQueueSize is the capacity of the coordinator job queue.
const DefaultQueueSize = 64

// Store persists the whole allowlist.
type Store interface {
	Load() (Allowlist, error)
	Save(Allowlist) error
}

// Recorder receives one event per applied or failed change.
type Recorder interface {
	Record(audit.Event) error
}

// Options configures a Coordinator. Table and Gateway are required.
type Options struct {
	Table     *Table
	Gateway   firewall.Gateway
	Store     Store
	Recorder  Recorder
	Clock     clock.Clock
	Logger    *logging.Logger
	Metrics   *metrics.Registry
	QueueSize int
}

// GrantRequest asks for source to be allowed in zone.
type GrantRequest struct {
	Zone   string
	Source string
	// Client is the address of the requester, kept for the audit trail.
	Client string
}

// GrantResult describes an applied grant.
type GrantResult struct {
	Zone      string
	Source    string
	ExpiresAt time.Time
	OpID      string
}

// Coordinator serializes every allowlist mutation. Each job runs the
// firewall change, the table update, the save and the audit record before
// the next job starts.
type Coordinator struct {
	table    *Table
	gateway  firewall.Gateway
	store    Store
	recorder Recorder
	clock    clock.Clock
	logger   *logging.Logger
	metrics  *metrics.Registry

	jobs    chan *job
	stopped chan struct{}
	started atomic.Bool
}

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	err  error
	done chan struct{}
}

// NewCoordinator creates a coordinator. Run must be called before any job
// can complete.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Table == nil {
		opts.Table = NewTable(DefaultDuration)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Coordinator{
		table:    opts.Table,
		gateway:  opts.Gateway,
		store:    opts.Store,
		recorder: opts.Recorder,
		clock:    clock.OrReal(opts.Clock),
		logger:   opts.Logger.WithComponent("coordinator"),
		metrics:  opts.Metrics,
		jobs:     make(chan *job, opts.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// Table returns the table owned by this coordinator.
func (c *Coordinator) Table() *Table {
	return c.table
}

// Restore seeds the table from the store.
func (c *Coordinator) Restore() error {
	if c.store == nil {
		return nil
	}
	a, err := c.store.Load()
	if err != nil {
		return err
	}
	c.table.Replace(a)
	c.metrics.SetActiveGrants(c.table.Counts())
	c.logger.Info("allowlist restored", "grants", c.table.Len(), "zones", len(c.table.Zones()))
	return nil
}

// Run consumes jobs until ctx is cancelled. The job in progress when ctx is
// cancelled is completed first. Run may only be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	defer close(c.stopped)
	defer c.metrics.SetQueueDepth(0)

	c.logger.Info("coordinator started", "queue", cap(c.jobs))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped", "pending", len(c.jobs))
			return nil
		case j := <-c.jobs:
			c.metrics.SetQueueDepth(len(c.jobs))
			c.execute(j)
		}
	}
}

func (c *Coordinator) execute(j *job) {
	defer close(j.done)

	// Nobody is waiting for this result anymore and nothing has been applied.
	if err := j.ctx.Err(); err != nil {
		j.err = err
		return
	}
	j.err = j.fn(context.WithoutCancel(j.ctx))
}

// submit queues fn and waits for it. The caller stops waiting when ctx is
// done; a job that already started still finishes.
func (c *Coordinator) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	j := &job{ctx: ctx, fn: fn, done: make(chan struct{})}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	case c.jobs <- j:
		c.metrics.SetQueueDepth(len(c.jobs))
	}

	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		select {
		case <-j.done:
			return j.err
		default:
			return ErrStopped
		}
	}
}

// Grant allows req.Source in req.Zone for the table's duration. A repeated
// grant resets the expiry.
func (c *Coordinator) Grant(ctx context.Context, req GrantRequest) (GrantResult, error) {
	if err := firewall.CheckZone(req.Zone); err != nil {
		return GrantResult{}, err
	}
	if err := firewall.CheckSource(req.Source); err != nil {
		return GrantResult{}, err
	}

	res := GrantResult{Zone: req.Zone, Source: req.Source, OpID: uuid.NewString()}
	err := c.submit(ctx, func(ctx context.Context) error {
		evt := audit.Event{
			OpID:   res.OpID,
			Action: audit.ActionGrant,
			Zone:   req.Zone,
			Source: req.Source,
			Client: req.Client,
		}

		if err := c.gateway.Grant(ctx, req.Zone, req.Source); err != nil {
			c.metrics.RecordGrant(req.Zone, err)
			c.record(evt, err)
			return err
		}

		expiresAt, err := c.table.Upsert(req.Zone, req.Source, c.clock.Now())
		if err != nil {
			return err
		}
		res.ExpiresAt = expiresAt
		c.persist(res.OpID)

		c.metrics.RecordGrant(req.Zone, nil)
		evt.ExpiresAt = expiresAt
		c.record(evt, nil)
		return nil
	})
	if err != nil {
		c.logger.Warn("grant failed", "op", res.OpID, "zone", req.Zone, "source", req.Source, "error", err)
		return GrantResult{}, err
	}

	c.logger.Info("source granted", "op", res.OpID, "zone", req.Zone, "source", req.Source,
		"client", req.Client, "expires", res.ExpiresAt.Format(time.RFC3339))
	return res, nil
}

// Revoke removes source from zone in the firewall and then from the table.
// Revoking a pair the table does not hold still reaches the firewall.
func (c *Coordinator) Revoke(ctx context.Context, zone, source string) error {
	if err := firewall.CheckZone(zone); err != nil {
		return err
	}
	if err := firewall.CheckSource(source); err != nil {
		return err
	}

	opID := uuid.NewString()
	err := c.submit(ctx, func(ctx context.Context) error {
		evt := audit.Event{OpID: opID, Action: audit.ActionRevoke, Zone: zone, Source: source}

		err := c.gateway.Revoke(ctx, zone, source)
		c.metrics.RecordRevoke(zone, err)
		c.record(evt, err)
		if err != nil {
			return err
		}

		if c.table.Remove(zone, source) {
			c.persist(opID)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("revoke failed", "op", opID, "zone", zone, "source", source, "error", err)
		return err
	}

	c.logger.Info("source revoked", "op", opID, "zone", zone, "source", source)
	return nil
}

// persist saves the current table. A failed save keeps the in-memory
// change; the next successful save writes it.
func (c *Coordinator) persist(opID string) {
	c.metrics.SetActiveGrants(c.table.Counts())
	if c.store == nil {
		return
	}
	if err := c.store.Save(c.table.Snapshot()); err != nil {
		if !errors.Is(err, ErrPersistence) {
			err = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		c.logger.Error("failed to persist allowlist", "op", opID, "error", err)
	}
}

func (c *Coordinator) record(evt audit.Event, err error) {
	if c.recorder == nil {
		return
	}
	evt.Time = c.clock.Now()
	evt.Success = err == nil
	if err != nil {
		evt.Error = firewall.Diagnostic(err)
	}
	if rerr := c.recorder.Record(evt); rerr != nil {
		c.logger.Warn("failed to record audit event", "op", evt.OpID, "error", rerr)
	}
}
