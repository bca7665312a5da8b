// Package dispatcher turns a newly arrived alert into local side effects:
// an audible cue and a desktop notification, both gated by preferences.
package dispatcher
