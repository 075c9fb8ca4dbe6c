// Package cmd implements the firegate subcommands.
package cmd

import (
	"os"

	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/firewall"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/metrics"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter()

// newGateway builds the firewall gateway for cfg. Tests replace it.
var newGateway = func(cfg *config.Config, logger *logging.Logger, reg *metrics.Registry) firewall.Gateway {
	gw := firewall.NewFirewallCmd(firewall.Options{
		Binary:  cfg.FirewallCmd,
		Timeout: cfg.ToolTimeout(),
		Logger:  logger,
		Metrics: reg,
	})
	if cfg.DryRun {
		gw.SetRunner(&firewall.DryRunRunner{})
	}
	return gw
}

// newLogger configures the process logger from cfg and installs it as the
// default.
func newLogger(cfg *config.Config) *logging.Logger {
	lc := logging.DefaultConfig()
	lc.Output = os.Stderr
	lc.JSON = cfg.LogJSON
	if cfg.Logs {
		lc.Level = logging.LevelDebug
	}
	logger := logging.New(lc)
	logging.SetDefault(logger)
	return logger
}
