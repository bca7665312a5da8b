// Package common holds helpers shared by several services.
//
// It provides the REST client of the maintenance backend (alert feed, read
// sync, fan-out and push registration endpoints) with call timeouts, the
// APIError type, and actor detection used to name this device.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
