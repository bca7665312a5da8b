// Package reconciler turns the remote alert feed into domain alerts and
// computes the delta between two successive snapshots.
//
// The feed uses inconsistent field names across endpoints, so normalization
// is driven by an explicit alias table: each field lists the keys (dotted
// paths for nested objects) tried in order. Reconcile is a pure function of
// the previous and freshly fetched lists.
package reconciler
