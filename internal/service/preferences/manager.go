package preferences

import (
	"context"
	"sync"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
)

// Store persists preferences. Implementations never fail loudly.
type Store interface {
	LoadPreferences(ctx context.Context) domain.Preferences
	SavePreferences(ctx context.Context, prefs domain.Preferences)
}

// ChangeFunc observes a preference update.
type ChangeFunc func(ctx context.Context, previous, current domain.Preferences)

// Manager owns the current preferences.
type Manager struct {
	// store persists every mutation, may be nil.
	store Store
	// prefs is the current value.
	prefs domain.Preferences
	// listeners observe updates in registration order.
	listeners []ChangeFunc
	// mu protects prefs and listeners.
	mu sync.RWMutex
	// deliverMu orders updates and their listener calls.
	deliverMu sync.Mutex
}

// New loads the persisted preferences, or the defaults without a store.
func New(ctx context.Context, store Store) *Manager {
	prefs := domain.DefaultPreferences()
	if store != nil {
		prefs = store.LoadPreferences(ctx)
	}

	prefs.Normalize()

	return &Manager{
		store: store,
		prefs: prefs,
	}
}

// Get returns a copy of the current preferences.
func (m *Manager) Get() domain.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.prefs.Clone()
}

// OnChange registers a listener invoked after every update.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, fn)
}

// Update applies fn to a copy of the preferences, normalises and persists
// the result, then notifies listeners outside the state lock. Listeners see
// updates in the order they were applied and must not call Update.
func (m *Manager) Update(ctx context.Context, fn func(*domain.Preferences)) domain.Preferences {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()

	previous := m.prefs.Clone()
	next := m.prefs.Clone()
	fn(&next)
	next.Normalize()
	m.prefs = next

	if m.store != nil {
		m.store.SavePreferences(ctx, next.Clone())
	}

	listeners := append([]ChangeFunc(nil), m.listeners...)

	m.mu.Unlock()

	logger.DebugKV(ctx, "Preferences updated",
		"sound", next.EnableSound,
		"desktop", next.EnableDesktop,
		"push", next.EnablePush,
		"interval", next.AutoRefreshInterval,
		"critical_only", next.ShowCriticalOnly)

	for _, listener := range listeners {
		listener(ctx, previous.Clone(), next.Clone())
	}

	return next.Clone()
}
