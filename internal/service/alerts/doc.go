// Package alerts holds the authoritative in-memory alert list of the agent.
//
// The Store polls the declarations feed, reconciles every fetch into the
// list, raises notifications for newly arrived alerts, mirrors the list to
// the local cache and syncs read state back to the backend on a best-effort
// basis. Local read and dismissed states are never regressed by a fetch.
package alerts
