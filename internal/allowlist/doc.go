// Package allowlist owns the TTL-bounded record of granted (zone, source)
// pairs.
//
// Table is the authoritative in-memory map. Coordinator is the only path that
// mutates it together with the firewall: grants and expiry revocations are
// queued and executed one at a time as gateway call, table update, store save.
// Sweeper schedules the periodic expiry pass through the same queue.
//
// The firewall itself is treated as a write-only projection of Table and is
// never read back to reconcile.
package allowlist
