// Package metrics declares the Prometheus instruments of the alert agent and
// serves them over HTTP when a metrics address is configured.
package metrics
