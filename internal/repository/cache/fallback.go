package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/oshokin/downtime-alerts/internal/config"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
)

// Keys of the persisted records.
const (
	AlertsKey       = "downtime_alerts"
	PreferencesKey  = "notification_preferences"
	SubscriptionKey = "push_subscription"
)

// Fallback is the lossy local mirror of alerts and preferences.
type Fallback struct {
	// kv is the durable backend.
	kv KV
	// maxAlerts caps the number of mirrored alerts.
	maxAlerts int
}

// NewFallback wraps kv. A non-positive maxAlerts uses the default cap.
func NewFallback(kv KV, maxAlerts int) *Fallback {
	if maxAlerts <= 0 {
		maxAlerts = config.DefaultMaxAlerts
	}

	return &Fallback{
		kv:        kv,
		maxAlerts: maxAlerts,
	}
}

// SaveAlerts mirrors the most recent alerts. Failures are logged.
func (f *Fallback) SaveAlerts(ctx context.Context, alerts []domain.Alert) {
	recent := domain.Clone(alerts)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})

	if len(recent) > f.maxAlerts {
		recent = recent[:f.maxAlerts]
	}

	if recent == nil {
		recent = []domain.Alert{}
	}

	f.save(ctx, AlertsKey, recent)
}

// LoadAlerts returns the mirrored alerts, or an empty list when the record
// is missing, unreadable or corrupt.
func (f *Fallback) LoadAlerts(ctx context.Context) []domain.Alert {
	var alerts []domain.Alert
	if !f.load(ctx, AlertsKey, &alerts) {
		return []domain.Alert{}
	}

	valid := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID == "" {
			continue
		}

		valid = append(valid, a)
	}

	return valid
}

// SavePreferences persists the preferences. Failures are logged.
func (f *Fallback) SavePreferences(ctx context.Context, prefs domain.Preferences) {
	f.save(ctx, PreferencesKey, prefs)
}

// LoadPreferences returns the persisted preferences, or the defaults when
// the record is missing, unreadable or corrupt.
func (f *Fallback) LoadPreferences(ctx context.Context) domain.Preferences {
	prefs := domain.DefaultPreferences()
	if !f.load(ctx, PreferencesKey, &prefs) {
		return domain.DefaultPreferences()
	}

	prefs.Normalize()

	return prefs
}

// SaveSubscription mirrors the push subscription of this device.
func (f *Fallback) SaveSubscription(ctx context.Context, sub *domain.Subscription) {
	if sub == nil {
		f.DeleteSubscription(ctx)
		return
	}

	f.save(ctx, SubscriptionKey, sub)
}

// LoadSubscription returns the mirrored push subscription, or nil.
func (f *Fallback) LoadSubscription(ctx context.Context) *domain.Subscription {
	var sub domain.Subscription
	if !f.load(ctx, SubscriptionKey, &sub) || sub.Endpoint == "" {
		return nil
	}

	return &sub
}

// DeleteSubscription forgets the mirrored push subscription.
func (f *Fallback) DeleteSubscription(ctx context.Context) {
	if err := f.kv.Delete(ctx, SubscriptionKey); err != nil {
		logger.WarnKV(ctx, "Failed to clear cached record", "key", SubscriptionKey, "error", err)
	}
}

// Clear removes the alert and preference records.
func (f *Fallback) Clear(ctx context.Context) {
	for _, key := range []string{AlertsKey, PreferencesKey} {
		if err := f.kv.Delete(ctx, key); err != nil {
			logger.WarnKV(ctx, "Failed to clear cached record", "key", key, "error", err)
		}
	}
}

// Close releases the backend.
func (f *Fallback) Close() error {
	return f.kv.Close()
}

func (f *Fallback) save(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.WarnKV(ctx, "Failed to encode cached record", "key", key, "error", err)
		return
	}

	if err = f.kv.Set(ctx, key, data); err != nil {
		logger.WarnKV(ctx, "Failed to write cached record", "key", key, "error", err)
	}
}

func (f *Fallback) load(ctx context.Context, key string, target any) bool {
	data, err := f.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WarnKV(ctx, "Failed to read cached record", "key", key, "error", err)
		}

		return false
	}

	if err = json.Unmarshal(data, target); err != nil {
		logger.WarnKV(ctx, "Discarding corrupt cached record", "key", key, "error", err)
		return false
	}

	return true
}
