package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oshokin/downtime-alerts/internal/config"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/metrics"
	"github.com/oshokin/downtime-alerts/internal/platform"
)

// FallbackVAPIDKey is used when the server key cannot be fetched. It keeps
// subscriptions working against the default deployment while the key
// endpoint is down and must not be relied on elsewhere.
const FallbackVAPIDKey = "BAzYC7JtV3pa1OlVpIGHbsZbOaeN52g001zog3amgm8XPzi_Zys0ej-wzz92bthKkegKT71s_GTXzaTjBgriGI8"

// RemoteAPI is the backend side of push subscriptions.
type RemoteAPI interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	RegisterSubscription(ctx context.Context, sub *domain.Subscription, employeeID, deviceName string) error
	UnregisterSubscription(ctx context.Context, endpoint string) error
	SendTestPush(ctx context.Context, endpoint string) (string, error)
}

var (
	// errPermissionDenied is recorded when the user refuses notifications.
	errPermissionDenied = errors.New("notification permission denied")
	// errNotSubscribed is recorded when an operation needs a subscription.
	errNotSubscribed = errors.New("no active push subscription")
	// errInvalidKey is recorded when the VAPID key cannot be decoded.
	errInvalidKey = errors.New("invalid vapid public key")
)

// Option customises a Manager.
type Option func(*Manager)

// WithServiceWorker sets the service worker script path and scope.
func WithServiceWorker(scriptPath, scope string) Option {
	return func(m *Manager) {
		if scriptPath != "" {
			m.scriptPath = scriptPath
		}

		if scope != "" {
			m.scope = scope
		}
	}
}

// WithFallbackKey overrides the key used when the server key cannot be fetched.
func WithFallbackKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.fallbackKey = key
		}
	}
}

// WithDeviceName labels the subscriptions of this device.
func WithDeviceName(name string) Option {
	return func(m *Manager) {
		m.deviceName = name
	}
}

// Manager owns the push subscription lifecycle.
type Manager struct {
	// host is the platform push surface.
	host platform.Push
	// remote is the backend, may be nil.
	remote RemoteAPI
	// scriptPath is the service worker script.
	scriptPath string
	// scope is the service worker scope.
	scope string
	// fallbackKey is used when the server key fetch fails.
	fallbackKey string
	// deviceName labels subscriptions on the backend.
	deviceName string

	// opMu serialises Init, Subscribe and Unsubscribe.
	opMu sync.Mutex
	// registration is the single service worker registration, guarded by opMu.
	registration platform.Registration
	// vapidKey is the decoded application server key, guarded by opMu.
	vapidKey []byte

	// state is the published snapshot.
	state domain.PushState
	// stateMu protects state.
	stateMu sync.RWMutex
}

// New probes platform support once and returns the manager.
func New(host platform.Push, remote RemoteAPI, opts ...Option) *Manager {
	m := &Manager{
		host:        host,
		remote:      remote,
		scriptPath:  config.DefaultServiceWorkerPath,
		scope:       config.DefaultScope,
		fallbackKey: FallbackVAPIDKey,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.checkSupport()

	return m
}

// checkSupport records capability and permission.
func (m *Manager) checkSupport() {
	caps := m.host.Capabilities()
	supported := caps.ServiceWorker && caps.PushManager && caps.Notification

	permission := domain.PermissionUnsupported
	if supported {
		permission = m.host.Permission()
	}

	m.stateMu.Lock()
	m.state = domain.PushState{
		IsSupported: supported,
		Permission:  permission,
	}
	m.stateMu.Unlock()
}

// State returns a snapshot of the push state.
func (m *Manager) State() domain.PushState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	return m.state.Clone()
}

// Init fetches the VAPID key, registers the service worker and restores an
// existing subscription. It reports false on any failure.
func (m *Manager) Init(ctx context.Context) bool {
	ctx = logger.WithName(ctx, "push")

	if !m.State().IsSupported {
		return false
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.prepare(ctx); err != nil {
		m.fail(ctx, "init", err)
		return false
	}

	sub, err := m.registration.Subscription(ctx)
	if err != nil {
		m.fail(ctx, "init", fmt.Errorf("lookup subscription: %w", err))
		return false
	}

	m.stateMu.Lock()
	m.state.Subscription = sub
	m.state.IsSubscribed = sub != nil
	m.state.Error = ""
	m.stateMu.Unlock()

	if sub != nil {
		logger.InfoKV(ctx, "Restored push subscription", "endpoint", sub.Endpoint)
	}

	metrics.PushOperationsTotal.WithLabelValues("init", metrics.ResultSuccess).Inc()

	return true
}

// Subscribe asks for permission, subscribes through the platform and
// registers the subscription with the backend. The state only becomes
// subscribed once every step succeeded. It returns nil on failure.
func (m *Manager) Subscribe(ctx context.Context, employeeID string) *domain.Subscription {
	ctx = logger.WithName(ctx, "push")

	if !m.State().IsSupported {
		metrics.PushOperationsTotal.WithLabelValues("subscribe", metrics.ResultSkipped).Inc()
		return nil
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if current := m.State(); current.IsSubscribed && current.Subscription != nil {
		return current.Subscription
	}

	permission, err := m.host.RequestPermission(ctx)
	if err != nil {
		m.fail(ctx, "subscribe", fmt.Errorf("request permission: %w", err))
		return nil
	}

	m.stateMu.Lock()
	m.state.Permission = permission
	m.stateMu.Unlock()

	if permission != domain.PermissionGranted {
		m.fail(ctx, "subscribe", errPermissionDenied)
		return nil
	}

	if err = m.prepare(ctx); err != nil {
		m.fail(ctx, "subscribe", err)
		return nil
	}

	sub, err := m.registration.Subscribe(ctx, m.vapidKey)
	if err != nil {
		m.fail(ctx, "subscribe", fmt.Errorf("platform subscribe: %w", err))
		return nil
	}

	if err = m.register(ctx, sub, employeeID); err != nil {
		if rollbackErr := m.registration.Unsubscribe(ctx); rollbackErr != nil {
			logger.WarnKV(ctx, "Failed to roll back platform subscription", "error", rollbackErr)
		}

		m.fail(ctx, "subscribe", err)

		return nil
	}

	m.stateMu.Lock()
	m.state.Subscription = sub
	m.state.IsSubscribed = true
	m.state.Error = ""
	m.stateMu.Unlock()

	logger.InfoKV(ctx, "Subscribed to push notifications", "endpoint", sub.Endpoint, "employee_id", employeeID)
	metrics.PushOperationsTotal.WithLabelValues("subscribe", metrics.ResultSuccess).Inc()

	result := *sub

	return &result
}

// Unsubscribe drops the subscription locally, then tells the backend. A
// backend failure is logged and does not undo the local unsubscribe.
func (m *Manager) Unsubscribe(ctx context.Context) bool {
	ctx = logger.WithName(ctx, "push")

	m.opMu.Lock()
	defer m.opMu.Unlock()

	sub := m.State().Subscription
	if sub == nil || m.registration == nil {
		m.fail(ctx, "unsubscribe", errNotSubscribed)
		return false
	}

	if err := m.registration.Unsubscribe(ctx); err != nil {
		m.fail(ctx, "unsubscribe", fmt.Errorf("platform unsubscribe: %w", err))
		return false
	}

	m.stateMu.Lock()
	m.state.Subscription = nil
	m.state.IsSubscribed = false
	m.state.Error = ""
	m.stateMu.Unlock()

	if m.remote != nil {
		if err := m.remote.UnregisterSubscription(ctx, sub.Endpoint); err != nil {
			logger.WarnKV(ctx, "Backend did not acknowledge unsubscribe", "endpoint", sub.Endpoint, "error", err)
		}
	}

	logger.InfoKV(ctx, "Unsubscribed from push notifications", "endpoint", sub.Endpoint)
	metrics.PushOperationsTotal.WithLabelValues("unsubscribe", metrics.ResultSuccess).Inc()

	return true
}

// SendTestNotification asks the backend to push a test message to this device.
func (m *Manager) SendTestNotification(ctx context.Context) bool {
	ctx = logger.WithName(ctx, "push")

	sub := m.State().Subscription
	if sub == nil || m.remote == nil {
		m.fail(ctx, "test", errNotSubscribed)
		return false
	}

	status, err := m.remote.SendTestPush(ctx, sub.Endpoint)
	if err != nil {
		m.fail(ctx, "test", err)
		return false
	}

	logger.InfoKV(ctx, "Test push sent", "endpoint", sub.Endpoint, "status", status)
	metrics.PushOperationsTotal.WithLabelValues("test", metrics.ResultSuccess).Inc()

	return true
}

// Close releases the service worker registration.
func (m *Manager) Close() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.registration != nil {
		m.registration.Release()
		m.registration = nil
	}
}

// prepare resolves the VAPID key and registers the service worker at most
// once. Callers hold opMu.
func (m *Manager) prepare(ctx context.Context) error {
	if m.vapidKey == nil {
		key, err := m.fetchKey(ctx)
		if err != nil {
			return err
		}

		m.vapidKey = key
	}

	if m.registration != nil {
		return nil
	}

	registration, err := m.host.Register(ctx, m.scriptPath, m.scope)
	if err != nil {
		return fmt.Errorf("register service worker: %w", err)
	}

	m.registration = registration

	logger.DebugKV(ctx, "Service worker registered", "script", m.scriptPath, "scope", m.scope)

	return nil
}

// fetchKey returns the decoded server key, or the fallback key when the
// server key cannot be fetched or decoded.
func (m *Manager) fetchKey(ctx context.Context) ([]byte, error) {
	if m.remote != nil {
		encoded, err := m.remote.VAPIDPublicKey(ctx)
		if err == nil {
			key, decodeErr := decodeKey(encoded)
			if decodeErr == nil {
				return key, nil
			}

			err = decodeErr
		}

		logger.WarnKV(ctx, "Using fallback VAPID key", "error", err)
	}

	return decodeKey(m.fallbackKey)
}

// register announces the subscription to the backend.
func (m *Manager) register(ctx context.Context, sub *domain.Subscription, employeeID string) error {
	if m.remote == nil {
		return nil
	}

	return m.remote.RegisterSubscription(ctx, sub, employeeID, m.deviceName)
}

// fail records err in the state and logs it.
func (m *Manager) fail(ctx context.Context, operation string, err error) {
	m.stateMu.Lock()
	m.state.Error = err.Error()
	m.stateMu.Unlock()

	logger.WarnKV(ctx, "Push operation failed", "operation", operation, "error", err)
	metrics.PushOperationsTotal.WithLabelValues(operation, metrics.ResultFailure).Inc()
}

// decodeKey decodes a base64url VAPID key, padded or not.
func decodeKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)

	for _, encoding := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding} {
		if decoded, err := encoding.DecodeString(key); err == nil && len(decoded) > 0 {
			return decoded, nil
		}
	}

	return nil, errInvalidKey
}
