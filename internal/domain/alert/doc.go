// Package alert contains the core domain types of the downtime alert engine.
//
// It defines Alert (one notable event in the lifecycle of a downtime
// declaration), the classification enums, notification Preferences and the
// PushState snapshot, with Clone helpers to avoid leaking internal references.
package alert
