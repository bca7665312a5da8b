// Package agent assembles the downtime alert agent: REST client, local
// cache, preferences, push subscription, notification dispatcher, alert
// store and the gRPC control surface, with one lifecycle for all of them.
package agent
