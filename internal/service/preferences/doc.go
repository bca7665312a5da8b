// Package preferences keeps the user's notification preferences, persists
// every change through the local cache and notifies listeners of updates.
package preferences
