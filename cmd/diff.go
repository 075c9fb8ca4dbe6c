package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/logging"
)

// ErrDrift is returned by RunDiff when firewalld and the state file disagree.
var ErrDrift = errors.New("allowlist differs from firewalld")

// RunDiff compares the persisted sources of each zone with the sources
// firewalld reports. It changes nothing.
func RunDiff(ctx context.Context, w io.Writer, configFile, zone string) error {
	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := logging.Discard()

	table, err := loadTable(cfg, logger)
	if err != nil {
		return err
	}

	zones := table.Zones()
	switch {
	case zone != "":
		zones = []string{zone}
	case len(zones) == 0 && cfg.Zone != "":
		zones = []string{cfg.Zone}
	}

	gw := newGateway(cfg, logger, nil)
	snap := table.Snapshot()
	drift := false

	for _, z := range zones {
		info, err := gw.ListZone(ctx, z)
		if err != nil {
			return fmt.Errorf("failed to list zone %s: %w", z, err)
		}

		persisted := make([]string, 0, len(snap[z]))
		for _, g := range snap[z] {
			persisted = append(persisted, g.Source)
		}
		live := append([]string(nil), info.Sources()...)

		a, b := sourceLines(persisted), sourceLines(live)
		if a == b {
			Printer.Fprintf(w, i18n.MsgNoDrift, z)
			continue
		}

		drift = true
		text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: "persisted/" + z,
			ToFile:   "firewalld/" + z,
			Context:  3,
		})
		fmt.Fprint(w, text)
	}

	if drift {
		return ErrDrift
	}
	return nil
}

func sourceLines(sources []string) string {
	sort.Strings(sources)
	if len(sources) == 0 {
		return ""
	}
	return strings.Join(sources, "\n") + "\n"
}
