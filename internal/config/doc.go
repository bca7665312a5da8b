// Package config defines the agent settings and provides helpers to load,
// validate and save them in YAML format.
//
// Validate fills defaults for optional fields (timeouts, cache backend,
// control address, service-worker path) so callers can rely on them.
package config
