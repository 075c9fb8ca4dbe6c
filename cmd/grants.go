package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/clock"
	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/storage"
)

// loadTable reads the persisted allowlist into a table. The state file is
// never modified; a corrupt one is reported, not repaired.
func loadTable(cfg *config.Config, logger *logging.Logger) (*allowlist.Table, error) {
	list, err := storage.NewFileStore(cfg.Folder, logger).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to load allowlist: %w", err)
	}
	table := allowlist.NewTable(cfg.GrantWindow())
	table.Replace(list)
	return table, nil
}

// RunGrants prints the persisted grants, optionally for one zone.
func RunGrants(w io.Writer, configFile, zone string) error {
	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	table, err := loadTable(cfg, logging.Discard())
	if err != nil {
		return err
	}

	now := clock.Now()
	snap := table.Snapshot()
	lang := i18n.CLILanguage()

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	Printer.Fprintln(tw, "ZONE\tSOURCE\tGRANTED\tEXPIRES\tREMAINING")
	grants, zones := 0, 0
	for _, z := range table.Zones() {
		if zone != "" && z != zone {
			continue
		}
		zones++
		for _, g := range snap[z] {
			grants++
			remaining := "expired"
			if !g.Expired(now) {
				remaining = g.ExpiresAt().Sub(now).Round(time.Second).String()
			}
			Printer.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", z, g.Source,
				i18n.FormatTime(lang, g.GrantedAt), i18n.FormatTime(lang, g.ExpiresAt()), remaining)
		}
	}
	tw.Flush()

	Printer.Fprintf(w, i18n.MsgGrantCount, grants, zones)
	return nil
}
