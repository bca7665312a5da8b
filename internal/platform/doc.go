// Package platform abstracts the host capabilities the alert agent relies
// on: notification permission, push registration, audible cues and desktop
// notifications.
//
// Native implementations target a headless console: beeep raises desktop
// notifications and tones, and NativePush registers this device against a
// configured push-service endpoint.
package platform
