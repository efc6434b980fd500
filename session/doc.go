// Package session provides a Redis-backed realm and session directory used to
// refresh the active-session gauges.
//
// # Layout
//
// All keys live under a caller-supplied prefix:
//
//	{prefix}:realms              hash realmID -> realm name
//	{prefix}:clients:{realmID}   hash clientID -> internal client ID
//	{prefix}:sessions:{realmID}  hash internal client ID -> active count
//	{prefix}:live:{realmID}      zset session ID scored by expiry (ms, +inf without TTL)
//	{prefix}:owners:{realmID}    hash session ID -> internal client ID
//
// Session start, end and stats run as Lua scripts that first release expired
// sessions, so the counter, the live set and the owners hash always change
// together. Ending an unknown or already-ended session is a no-op and counters
// never go negative.
//
// # Architecture boundaries
//
// [Store] implements iammetrics.RealmDirectory and iammetrics.SessionDirectory.
// It does NOT touch Prometheus collectors; the registry reads from it during
// ExportSessions.
//
// # What this package must NOT do
//
//   - Block on Redis without honoring the caller's context.
//   - Return negative session counts.
package session
