// Package poller runs the alert feed fetch on a fixed cadence: once
// immediately on start, then every interval until stopped.
//
// Each start begins a new generation. Results of a fetch that finishes
// after its generation was stopped or restarted are discarded.
package poller
