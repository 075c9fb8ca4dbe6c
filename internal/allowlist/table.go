package allowlist

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Table is the in-memory authoritative allowlist.
//
// Reads are safe from any goroutine. Mutations are only issued by the
// Coordinator, which pairs each of them with a firewall change.
type Table struct {
	mu       sync.RWMutex
	zones    map[string][]Grant
	duration time.Duration
}

// NewTable creates an empty table whose grants last duration
// (DefaultDuration when duration <= 0).
func NewTable(duration time.Duration) *Table {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Table{
		zones:    make(map[string][]Grant),
		duration: duration,
	}
}

// Duration returns the window applied to new grants.
func (t *Table) Duration() time.Duration {
	return t.duration
}

// Upsert records a grant for (zone, source) at now, replacing any existing
// one for the same pair, and returns its expiry. Re-granting resets the
// window; it does not extend it.
func (t *Table) Upsert(zone, source string, now time.Time) (time.Time, error) {
	if zone == "" {
		return time.Time{}, fmt.Errorf("%w: zone not provided", ErrInvalidArgument)
	}
	if source == "" {
		return time.Time{}, fmt.Errorf("%w: source not provided", ErrInvalidArgument)
	}

	g := Grant{
		Source:    source,
		GrantedAt: time.UnixMilli(now.UnixMilli()),
		Duration:  t.duration,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	list := removeSource(t.zones[zone], source)
	t.zones[zone] = append(list, g)
	return g.ExpiresAt(), nil
}

// ListExpired returns every pair whose grant expires at or before now,
// ordered by zone name then insertion order.
func (t *Table) ListExpired(now time.Time) []Pair {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Pair
	for _, zone := range t.sortedZonesLocked() {
		for _, g := range t.zones[zone] {
			if g.Expired(now) {
				out = append(out, Pair{Zone: zone, Source: g.Source})
			}
		}
	}
	return out
}

// Remove deletes the grant for (zone, source). Removing an absent pair is
// not an error; the return value reports whether anything was deleted.
func (t *Table) Remove(zone, source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, ok := t.zones[zone]
	if !ok {
		return false
	}
	trimmed := removeSource(list, source)
	if len(trimmed) == len(list) {
		return false
	}
	if len(trimmed) == 0 {
		delete(t.zones, zone)
	} else {
		t.zones[zone] = trimmed
	}
	return true
}

// Get returns the grant for (zone, source).
func (t *Table) Get(zone, source string) (Grant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, g := range t.zones[zone] {
		if g.Source == source {
			return g, true
		}
	}
	return Grant{}, false
}

// Snapshot returns a deep copy safe to hand to the store.
func (t *Table) Snapshot() Allowlist {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Allowlist(t.zones).Clone()
}

// Replace seeds the table from a loaded allowlist. Empty zones and sources
// are dropped; when a source repeats within a zone the last entry wins.
func (t *Table) Replace(a Allowlist) {
	zones := make(map[string][]Grant, len(a))
	for zone, grants := range a {
		if zone == "" {
			continue
		}
		var list []Grant
		for _, g := range grants {
			if g.Source == "" {
				continue
			}
			list = append(removeSource(list, g.Source), g)
		}
		if len(list) > 0 {
			zones[zone] = list
		}
	}

	t.mu.Lock()
	t.zones = zones
	t.mu.Unlock()
}

// Len returns the total number of grants.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Allowlist(t.zones).Len()
}

// Counts returns the number of grants per zone.
func (t *Table) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]int, len(t.zones))
	for zone, grants := range t.zones {
		out[zone] = len(grants)
	}
	return out
}

// Zones returns the zone names in sorted order.
func (t *Table) Zones() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedZonesLocked()
}

func (t *Table) sortedZonesLocked() []string {
	zones := make([]string, 0, len(t.zones))
	for zone := range t.zones {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// removeSource returns list without source, preserving order. It never
// mutates the backing array of list, so earlier snapshots stay intact.
func removeSource(list []Grant, source string) []Grant {
	out := make([]Grant, 0, len(list))
	for _, g := range list {
		if g.Source != source {
			out = append(out, g)
		}
	}
	return out
}
