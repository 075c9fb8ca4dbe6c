// Package api implements the firegate HTTP surface.
//
// # Routes
//
// Every route is mounted below the configured endpoint prefix:
//
//	/add      grant a source in a zone (GET or POST)
//	/list     live firewalld configuration of a zone
//	/grants   the in-memory allowlist
//	/history  audit events (when the audit store is enabled)
//	/metrics  Prometheus exposition (when metrics are enabled)
//
// Parameters come from the query string and the body (JSON or form encoded);
// body values win. When a secret is configured, requests must carry either
// the secret itself (plain mode) or an X-Hub-Signature HMAC-SHA1 of the raw
// body.
//
// Every response is JSON with a boolean status and either a message or an
// error, except the smoke-test root route.
package api
