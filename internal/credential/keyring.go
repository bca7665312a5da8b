package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// Keyring identifiers.
const (
	serviceName = "downtime-alerts"
	tokenKey    = "api-token"
)

// ErrNoToken is returned when no token is stored.
var ErrNoToken = errors.New("no api token stored")

// Opener opens the keyring.
type Opener func() (keyring.Keyring, error)

// Store reads and writes the API token.
type Store struct {
	// open opens the keyring on every call, so the OS session is consulted lazily.
	open Opener
}

// NewStore returns a store over the system keyring.
func NewStore() *Store {
	return &Store{open: openSystem}
}

// NewStoreWith returns a store over a custom keyring.
func NewStoreWith(open Opener) *Store {
	return &Store{open: open}
}

// openSystem opens the platform keyring with a file fallback.
func openSystem() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/downtime-alerts/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("downtime-alerts-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return ring, nil
}

// Token returns the stored token.
func (s *Store) Token() (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}

	if err != nil {
		return "", fmt.Errorf("get api token: %w", err)
	}

	return string(item.Data), nil
}

// SetToken stores the token.
func (s *Store) SetToken(token string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   tokenKey,
		Data:  []byte(token),
		Label: "Downtime alerts API token",
	})
	if err != nil {
		return fmt.Errorf("set api token: %w", err)
	}

	return nil
}

// DeleteToken removes the token. Removing a missing token is not an error.
func (s *Store) DeleteToken() error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(tokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("delete api token: %w", err)
	}

	return nil
}
