package firewall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/metrics"
	"grimm.is/firegate/internal/validation"
)

const (
	// DefaultBinary is the firewalld control tool.
	DefaultBinary = "firewall-cmd"
	// DefaultTimeout bounds every single tool invocation.
	DefaultTimeout = 5 * time.Second
)

// Gateway applies allowlist changes to the external firewall.
// Grant and Revoke only report success once the permanent rule change and
// the following reload both succeeded.
type Gateway interface {
	Grant(ctx context.Context, zone, source string) error
	Revoke(ctx context.Context, zone, source string) error
	ListZone(ctx context.Context, zone string) (*ZoneInfo, error)
}

// Options configures a FirewallCmd gateway.
type Options struct {
	Binary  string
	Timeout time.Duration
	Runner  CommandRunner
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// FirewallCmd drives firewalld through its command-line tool.
type FirewallCmd struct {
	binary  string
	timeout time.Duration
	runner  CommandRunner
	logger  *logging.Logger
	metrics *metrics.Registry
}

// NewFirewallCmd creates a gateway backed by firewall-cmd.
func NewFirewallCmd(opts Options) *FirewallCmd {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = DefaultCommandRunner
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &FirewallCmd{
		binary:  opts.Binary,
		timeout: opts.Timeout,
		runner:  opts.Runner,
		logger:  opts.Logger.WithComponent("gateway"),
		metrics: opts.Metrics,
	}
}

// SetRunner swaps the command runner (tests, dry-run).
func (g *FirewallCmd) SetRunner(r CommandRunner) {
	g.runner = r
}

// Grant adds source to the zone's permanent configuration and reloads.
func (g *FirewallCmd) Grant(ctx context.Context, zone, source string) error {
	return g.changeSource(ctx, "add", zone, source)
}

// Revoke removes source from the zone's permanent configuration and reloads.
func (g *FirewallCmd) Revoke(ctx context.Context, zone, source string) error {
	return g.changeSource(ctx, "remove", zone, source)
}

// Reload makes the permanent configuration live.
func (g *FirewallCmd) Reload(ctx context.Context) error {
	_, err := g.exec(ctx, "reload", "--reload")
	return err
}

// ListZone queries the live zone configuration. Nothing is cached.
func (g *FirewallCmd) ListZone(ctx context.Context, zone string) (*ZoneInfo, error) {
	if err := CheckZone(zone); err != nil {
		return nil, err
	}
	out, err := g.exec(ctx, "list-all", "--zone="+zone, "--list-all")
	if err != nil {
		return nil, err
	}
	return ParseListAll(string(out)), nil
}

func (g *FirewallCmd) changeSource(ctx context.Context, action, zone, source string) error {
	if err := CheckZone(zone); err != nil {
		return err
	}
	if err := CheckSource(source); err != nil {
		return err
	}

	op := action + "-source"
	if _, err := g.exec(ctx, op, "--permanent", "--zone="+zone, "--"+op+"="+source); err != nil {
		return err
	}
	if err := g.Reload(ctx); err != nil {
		return err
	}

	g.logger.Debug("source changed", "action", action, "zone", zone, "source", source)
	return nil
}

// exec runs one tool invocation under its own timeout. The caller's
// cancellation is deliberately not propagated: a started firewall-cmd
// is allowed to finish.
func (g *FirewallCmd) exec(ctx context.Context, op string, args ...string) ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	start := time.Now()
	out, err := g.runner.Run(stepCtx, g.binary, args...)
	g.metrics.ObserveGateway(op, time.Since(start))
	if err == nil {
		return out, nil
	}

	te := &ToolError{Op: g.binary + " " + op, Args: args, Err: err}
	var ce *CommandError
	if errors.As(err, &ce) {
		te.Output = ce.Stderr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		te.Output = fmt.Sprintf("timed out after %s", g.timeout)
	}
	g.logger.Warn("firewall tool failed", "op", op, "args", args, "error", te.Error())
	return nil, te
}

// CheckZone enforces the zone precondition before any tool invocation.
func CheckZone(zone string) error {
	if zone == "" {
		return fmt.Errorf("%w: zone not provided", ErrInvalidArgument)
	}
	if err := validation.ValidateZone(zone); err != nil {
		return fmt.Errorf("%w: %v", ErrSanitizationRejected, err)
	}
	return nil
}

// CheckSource enforces the source precondition before any tool invocation.
func CheckSource(source string) error {
	if source == "" {
		return fmt.Errorf("%w: source not provided", ErrInvalidArgument)
	}
	if err := validation.ValidateSource(source); err != nil {
		return fmt.Errorf("%w: %v", ErrSanitizationRejected, err)
	}
	return nil
}
