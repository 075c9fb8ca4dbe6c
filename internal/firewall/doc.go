// Package firewall drives firewalld through its firewall-cmd tool.
//
// [FirewallCmd] adds and removes zone sources as permanent rules and reloads
// firewalld after every change. A change only counts as applied when both
// steps succeed. Zone and source values are checked against a strict
// character set before any process is started; see [CheckZone] and
// [CheckSource].
//
// Every invocation runs with its own timeout and detached from the caller's
// cancellation, so a started change is never abandoned half way. Failures
// surface as [*ToolError], which carries the tool's diagnostic output.
//
// [ParseListAll] turns `firewall-cmd --list-all` output into a [ZoneInfo].
package firewall
