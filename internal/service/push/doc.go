// Package push manages the push subscription of this device: capability
// probing, VAPID key retrieval, service worker registration and the
// subscribe/unsubscribe lifecycle against the declarations backend.
//
// Every operation resolves to a result value. Failures are recorded in the
// state's Error field and logged, never returned.
package push
