package platform

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// memoryStore is an in-memory SubscriptionStore.
type memoryStore struct {
	sub *domain.Subscription
}

func (m *memoryStore) LoadSubscription(context.Context) *domain.Subscription { return m.sub }

func (m *memoryStore) SaveSubscription(_ context.Context, sub *domain.Subscription) { m.sub = sub }

func (m *memoryStore) DeleteSubscription(context.Context) { m.sub = nil }

// TestNativePush_Unsupported reports no push without an endpoint.
func TestNativePush_Unsupported(t *testing.T) {
	t.Parallel()

	p := NewNativePush("", domain.PermissionDefault, nil)
	require.False(t, p.Capabilities().PushManager)

	_, err := p.Register(context.Background(), "/sw.js", "/")
	require.ErrorIs(t, err, ErrUnsupported)
}

// TestNativePush_Permission promotes default to granted and keeps denials.
func TestNativePush_Permission(t *testing.T) {
	t.Parallel()

	p := NewNativePush("https://push.local/1", domain.PermissionDefault, nil)
	got, err := p.RequestPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.PermissionGranted, got)

	p = NewNativePush("https://push.local/1", domain.PermissionDenied, nil)
	got, err = p.RequestPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.PermissionDenied, got)
}

// TestNativeRegistration_Lifecycle subscribes, recovers from the store and unsubscribes.
func TestNativeRegistration_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := new(memoryStore)
	p := NewNativePush("https://push.local/1", domain.PermissionGranted, store)

	reg, err := p.Register(ctx, "/sw.js", "/")
	require.NoError(t, err)

	existing, err := reg.Subscription(ctx)
	require.NoError(t, err)
	require.Nil(t, existing)

	_, err = reg.Subscribe(ctx, nil)
	require.Error(t, err)

	sub, err := reg.Subscribe(ctx, []byte{4, 1, 2})
	require.NoError(t, err)
	require.Equal(t, "https://push.local/1", sub.Endpoint)

	pub, err := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	require.NoError(t, err)
	require.Len(t, pub, 65)

	secret, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
	require.NoError(t, err)
	require.Len(t, secret, authSecretSize)

	// A new process recovers the subscription from the store.
	reg2, err := p.Register(ctx, "/sw.js", "/")
	require.NoError(t, err)

	recovered, err := reg2.Subscription(ctx)
	require.NoError(t, err)
	require.Equal(t, sub, recovered)

	require.NoError(t, reg2.Unsubscribe(ctx))
	require.Nil(t, store.sub)
	reg2.Release()
}
