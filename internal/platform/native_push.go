package platform

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// authSecretSize is the size of the push authentication secret.
const authSecretSize = 16

// SubscriptionStore keeps the subscription of this device across restarts.
type SubscriptionStore interface {
	LoadSubscription(ctx context.Context) *domain.Subscription
	SaveSubscription(ctx context.Context, sub *domain.Subscription)
	DeleteSubscription(ctx context.Context)
}

// NativePush registers this device against a configured push-service endpoint.
// Without an endpoint the host reports push as unsupported.
type NativePush struct {
	// endpoint is the push-service URL of this device.
	endpoint string
	// store persists the subscription, may be nil.
	store SubscriptionStore
	// permission is the current notification permission.
	permission domain.Permission
	// mu protects permission.
	mu sync.Mutex
}

// NewNativePush creates the native push host.
func NewNativePush(endpoint string, permission domain.Permission, store SubscriptionStore) *NativePush {
	return &NativePush{
		endpoint:   endpoint,
		store:      store,
		permission: permission,
	}
}

// Capabilities reports push support when an endpoint is configured.
func (p *NativePush) Capabilities() Capabilities {
	return Capabilities{
		ServiceWorker: p.endpoint != "",
		PushManager:   p.endpoint != "",
		Notification:  true,
	}
}

// Permission returns the current permission.
func (p *NativePush) Permission() domain.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.permission
}

// RequestPermission grants an undecided permission. Running the subscribe
// command is the user's gesture; an explicit denial is kept.
func (p *NativePush) RequestPermission(context.Context) (domain.Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.permission == domain.PermissionDefault {
		p.permission = domain.PermissionGranted
	}

	return p.permission, nil
}

// Register returns a registration bound to the configured endpoint.
func (p *NativePush) Register(context.Context, string, string) (Registration, error) {
	if p.endpoint == "" {
		return nil, ErrUnsupported
	}

	return &nativeRegistration{
		endpoint: p.endpoint,
		store:    p.store,
	}, nil
}

// nativeRegistration is the registration handle of NativePush.
type nativeRegistration struct {
	// endpoint is the push-service URL.
	endpoint string
	// store persists the subscription, may be nil.
	store SubscriptionStore
	// current is the active subscription.
	current *domain.Subscription
	// mu protects current.
	mu sync.Mutex
}

// Subscription returns the in-memory or persisted subscription.
func (r *nativeRegistration) Subscription(ctx context.Context) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil && r.store != nil {
		if sub := r.store.LoadSubscription(ctx); sub != nil && sub.Endpoint == r.endpoint {
			r.current = sub
		}
	}

	if r.current == nil {
		return nil, nil
	}

	sub := *r.current

	return &sub, nil
}

// Subscribe generates fresh client keys for the endpoint.
func (r *nativeRegistration) Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.Subscription, error) {
	if len(applicationServerKey) == 0 {
		return nil, fmt.Errorf("subscribe: empty application server key: %w", ErrUnsupported)
	}

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate client key: %w", err)
	}

	secret := make([]byte, authSecretSize)
	if _, err = rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate auth secret: %w", err)
	}

	sub := &domain.Subscription{
		Endpoint: r.endpoint,
		Keys: domain.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(secret),
		},
	}

	r.mu.Lock()
	r.current = sub
	r.mu.Unlock()

	if r.store != nil {
		r.store.SaveSubscription(ctx, sub)
	}

	result := *sub

	return &result, nil
}

// Unsubscribe forgets the subscription.
func (r *nativeRegistration) Unsubscribe(ctx context.Context) error {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	if r.store != nil {
		r.store.DeleteSubscription(ctx)
	}

	return nil
}

// Release is a no-op for the native host.
func (r *nativeRegistration) Release() {}
