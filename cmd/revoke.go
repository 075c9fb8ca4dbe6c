package cmd

import (
	"context"
	"fmt"
	"io"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/storage"
)

// RunRevoke removes one grant from firewalld and from the state file. It is
// meant for a stopped daemon; a running one would overwrite the file.
func RunRevoke(ctx context.Context, w io.Writer, configFile, zone, source string) error {
	if zone == "" || source == "" {
		return fmt.Errorf("usage: revoke [-c file] <zone> <source>")
	}
	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cfg)

	opts := allowlist.Options{
		Table:   allowlist.NewTable(cfg.GrantWindow()),
		Gateway: newGateway(cfg, logger, nil),
		Store:   storage.NewFileStore(cfg.Folder, logger),
		Logger:  logger,
	}
	if cfg.AuditEnabled() {
		h, err := audit.NewStore(cfg.Audit.Path, cfg.Audit.RetentionDays)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer h.Close()
		opts.Recorder = h
	}

	coord := allowlist.NewCoordinator(opts)
	if err := coord.Restore(); err != nil {
		return fmt.Errorf("failed to restore allowlist: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := coord.Revoke(ctx, zone, source); err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}
	Printer.Fprintf(w, i18n.MsgRevoked, source, zone)
	return nil
}
