// Package cache implements the persistence fallback of the alert agent.
//
// A KV backend (sqlite, redis or memory) stores two JSON records: the most
// recent alerts and the notification preferences. Fallback wraps a backend
// with a lossy, never-failing API: corrupt or missing data reads as empty,
// and storage failures are logged rather than returned.
package cache
