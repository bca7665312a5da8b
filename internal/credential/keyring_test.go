package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

// TestStore_TokenLifecycle stores, reads and removes the token.
func TestStore_TokenLifecycle(t *testing.T) {
	t.Parallel()

	ring := keyring.NewArrayKeyring(nil)
	s := NewStoreWith(func() (keyring.Keyring, error) { return ring, nil })

	_, err := s.Token()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.SetToken("secret"))

	token, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, "secret", token)

	require.NoError(t, s.DeleteToken())
	require.NoError(t, s.DeleteToken())

	_, err = s.Token()
	require.ErrorIs(t, err, ErrNoToken)
}

// TestStore_OpenFailure surfaces keyring errors.
func TestStore_OpenFailure(t *testing.T) {
	t.Parallel()

	locked := errors.New("keyring locked")
	s := NewStoreWith(func() (keyring.Keyring, error) { return nil, locked })

	_, err := s.Token()
	require.ErrorIs(t, err, locked)
	require.ErrorIs(t, s.SetToken("x"), locked)
	require.ErrorIs(t, s.DeleteToken(), locked)
}
