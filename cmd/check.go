package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"grimm.is/firegate/internal/brand"
	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/i18n"
)

// RunCheck validates the configuration file syntax and semantics.
func RunCheck(w io.Writer, configFile string, verbose bool) error {
	if len(configFile) == 0 {
		return fmt.Errorf("usage: %s check [-v] <config-file>\nExample: %s check -v %s", brand.BinaryName, brand.BinaryName, brand.DefaultConfigPath())
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	Printer.Fprintf(w, i18n.MsgConfigValid, configFile)
	if verbose {
		Printer.Fprintln(w)
		printSummary(w, cfg)
	}
	return nil
}

func printSummary(out io.Writer, cfg *config.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	auth := "none"
	switch {
	case cfg.Secret != "" && cfg.Plain:
		auth = "plain secret"
	case cfg.Secret != "":
		auth = "X-Hub-Signature"
	}
	audit := "off"
	if cfg.AuditEnabled() {
		audit = fmt.Sprintf("%s (%d days)", cfg.Audit.Path, cfg.Audit.RetentionDays)
	}
	zone := cfg.Zone
	if zone == "" {
		zone = "-"
	}

	Printer.Fprintln(w, "SETTING\tVALUE")
	Printer.Fprintf(w, "port\t%d\n", cfg.Port)
	Printer.Fprintf(w, "endpoint\t%s/add\n", cfg.Endpoint)
	Printer.Fprintf(w, "default zone\t%s\n", zone)
	Printer.Fprintf(w, "state\t%s\n", cfg.Folder)
	Printer.Fprintf(w, "grant duration\t%s\n", cfg.GrantWindow())
	Printer.Fprintf(w, "sweep interval\t%s\n", cfg.SweepEvery())
	Printer.Fprintf(w, "command timeout\t%s\n", cfg.ToolTimeout())
	Printer.Fprintf(w, "auth\t%s\n", auth)
	Printer.Fprintf(w, "rate limit\t%d/min\n", cfg.RateLimit)
	Printer.Fprintf(w, "audit\t%s\n", audit)
	Printer.Fprintf(w, "metrics\t%t\n", cfg.Metrics)
	Printer.Fprintf(w, "dry run\t%t\n", cfg.DryRun)
	w.Flush()
}
