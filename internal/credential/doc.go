// Package credential keeps the backend API token in the operating system
// keyring.
package credential
