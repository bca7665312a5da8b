package alerts

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/metrics"
	"github.com/oshokin/downtime-alerts/internal/service/poller"
	"github.com/oshokin/downtime-alerts/internal/service/preferences"
	"github.com/oshokin/downtime-alerts/internal/service/reconciler"
)

// DefaultEventBuffer is the capacity of each new-alert subscription.
const DefaultEventBuffer = 16

// RemoteAPI is the declarations backend.
type RemoteAPI interface {
	FetchAlerts(ctx context.Context) (json.RawMessage, error)
	MarkRead(ctx context.Context, alertID string) error
	MarkAllRead(ctx context.Context) error
	SendAlert(ctx context.Context, a *domain.Alert) error
}

// Cache mirrors the alert list locally.
type Cache interface {
	SaveAlerts(ctx context.Context, alerts []domain.Alert)
	LoadAlerts(ctx context.Context) []domain.Alert
}

// Notifier raises the side effects of a new alert.
type Notifier interface {
	Dispatch(ctx context.Context, a *domain.Alert, prefs *domain.Preferences)
}

// PushService exposes the push subscription of this device.
type PushService interface {
	State() domain.PushState
	Close()
}

// Options wires the store.
type Options struct {
	// Remote is the declarations backend.
	Remote RemoteAPI
	// Cache is the local mirror, may be nil.
	Cache Cache
	// Preferences gates notifications and the visible list.
	Preferences *preferences.Manager
	// Notifier raises notifications, may be nil.
	Notifier Notifier
	// Push is released on Close, may be nil.
	Push PushService
	// Normalizer decodes the feed, the default alias table when nil.
	Normalizer *reconciler.Normalizer
	// FailureThreshold is the number of failed polls that marks the feed disconnected.
	FailureThreshold int
	// EventBuffer is the capacity of each subscription channel.
	EventBuffer int
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// Store is the single owner of the alert list.
type Store struct {
	// remote is the declarations backend.
	remote RemoteAPI
	// cache mirrors the list.
	cache Cache
	// prefs gates side effects.
	prefs *preferences.Manager
	// notifier raises notifications.
	notifier Notifier
	// push is released on Close.
	push PushService
	// normalizer decodes the feed.
	normalizer *reconciler.Normalizer
	// scheduler polls the feed.
	scheduler *poller.Scheduler
	// now is the clock.
	now func() time.Time
	// eventBuffer is the capacity of subscription channels.
	eventBuffer int

	// alerts is the working set, in fetch order.
	alerts []domain.Alert
	// mu protects alerts.
	mu sync.RWMutex

	// subscribers receive newly arrived alerts.
	subscribers map[int]chan domain.Alert
	// nextSubscriber is the next subscription key.
	nextSubscriber int
	// closed reports that Close ran.
	closed bool
	// subMu protects subscribers, nextSubscriber and closed.
	subMu sync.Mutex

	// background tracks fire-and-forget backend calls.
	background sync.WaitGroup
}

// New creates the store. Polling starts with Start.
func New(ctx context.Context, opts *Options) *Store {
	s := &Store{
		remote:      opts.Remote,
		cache:       opts.Cache,
		prefs:       opts.Preferences,
		notifier:    opts.Notifier,
		push:        opts.Push,
		normalizer:  opts.Normalizer,
		now:         opts.Now,
		eventBuffer: opts.EventBuffer,
		alerts:      []domain.Alert{},
		subscribers: make(map[int]chan domain.Alert),
	}

	if s.prefs == nil {
		s.prefs = preferences.New(ctx, nil)
	}

	if s.normalizer == nil {
		s.normalizer = reconciler.NewNormalizer(nil)
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.eventBuffer <= 0 {
		s.eventBuffer = DefaultEventBuffer
	}

	s.scheduler = poller.New(s.fetch, s.apply,
		poller.WithFailureThreshold(opts.FailureThreshold),
		poller.WithOnFailure(s.fallback))

	s.prefs.OnChange(s.preferencesChanged)

	return s
}

// Start begins polling at the preferred refresh interval.
func (s *Store) Start(ctx context.Context) {
	s.scheduler.Start(ctx, s.interval())
}

// Refresh polls once, synchronously.
func (s *Store) Refresh(ctx context.Context) error {
	return s.scheduler.Poll(ctx)
}

// Close stops polling, waits for pending backend calls, ends every
// subscription and releases the push registration.
func (s *Store) Close() {
	s.scheduler.Stop()
	s.scheduler.Wait()
	s.background.Wait()

	s.subMu.Lock()
	s.closed = true

	for key, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, key)
	}
	s.subMu.Unlock()

	if s.push != nil {
		s.push.Close()
	}
}

// Connected reports whether the last polls reached the feed.
func (s *Store) Connected() bool {
	return s.scheduler.Connected()
}

// Polling reports whether the scheduler is running.
func (s *Store) Polling() bool {
	return s.scheduler.Running()
}

// PushState returns the push subscription snapshot.
func (s *Store) PushState() domain.PushState {
	if s.push == nil {
		return domain.PushState{Permission: domain.PermissionUnsupported}
	}

	return s.push.State()
}

// Preferences returns the preference manager.
func (s *Store) Preferences() *preferences.Manager {
	return s.prefs
}

func (s *Store) interval() time.Duration {
	return time.Duration(s.prefs.Get().AutoRefreshInterval) * time.Second
}

func (s *Store) preferencesChanged(ctx context.Context, previous, current domain.Preferences) {
	if previous.AutoRefreshInterval == current.AutoRefreshInterval {
		return
	}

	logger.InfoKV(ctx, "Refresh interval changed", "interval", current.AutoRefreshInterval)
	s.scheduler.Restart(time.Duration(current.AutoRefreshInterval) * time.Second)
}

// fetch retrieves and decodes the feed.
func (s *Store) fetch(ctx context.Context) ([]domain.Alert, error) {
	body, err := s.remote.FetchAlerts(ctx)
	if err != nil {
		return nil, err
	}

	return s.normalizer.DecodeFeed(body)
}

// apply reconciles a fetch, notifies about fresh alerts and persists.
func (s *Store) apply(ctx context.Context, fetched []domain.Alert) {
	s.mu.Lock()
	result := reconciler.Reconcile(s.alerts, fetched)
	s.alerts = result.Merged
	s.mu.Unlock()

	if len(result.Fresh) > 0 {
		logger.InfoKV(ctx, "New alerts arrived", "count", len(result.Fresh))
	}

	prefs := s.prefs.Get()
	for i := range result.Fresh {
		s.announce(ctx, &result.Fresh[i], &prefs)
	}

	// Mutations made while announcing must not be overwritten by an older list.
	s.mu.Lock()
	snapshot := domain.Clone(s.alerts)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
}

// fallback serves the cached list while the feed is unreachable and the
// working set is still empty.
func (s *Store) fallback(ctx context.Context, _ error) {
	if s.cache == nil {
		return
	}

	cached := s.cache.LoadAlerts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.alerts) > 0 || len(cached) == 0 {
		return
	}

	s.alerts = cached

	logger.InfoKV(ctx, "Serving cached alerts", "count", len(cached))
	updateGauges(cached)
}

// announce raises notifications and events for a newly arrived alert.
func (s *Store) announce(ctx context.Context, a *domain.Alert, prefs *domain.Preferences) {
	metrics.NewAlertsTotal.WithLabelValues(string(a.Type)).Inc()

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, a, prefs)
	}

	if prefs.Matches(a) {
		s.publish(ctx, a)
	}
}

// persist mirrors the snapshot and refreshes the gauges.
func (s *Store) persist(ctx context.Context, snapshot []domain.Alert) {
	if s.cache != nil {
		s.cache.SaveAlerts(ctx, snapshot)
	}

	updateGauges(snapshot)
}

// async runs a best-effort backend call detached from the caller's cancellation.
func (s *Store) async(ctx context.Context, operation string, call func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	s.background.Add(1)

	go func() {
		defer s.background.Done()

		if err := call(ctx); err != nil {
			logger.WarnKV(ctx, "Backend sync failed", "operation", operation, "error", err)
		}
	}()
}

// displayOrder sorts unread alerts first, then newest first.
func displayOrder(alerts []domain.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		iUnread := alerts[i].Status == domain.StatusUnread
		jUnread := alerts[j].Status == domain.StatusUnread

		if iUnread != jUnread {
			return iUnread
		}

		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}

func updateGauges(alerts []domain.Alert) {
	counts := map[domain.Status]int{
		domain.StatusUnread:    0,
		domain.StatusRead:      0,
		domain.StatusDismissed: 0,
	}

	for i := range alerts {
		counts[alerts[i].Status]++
	}

	for status, count := range counts {
		metrics.Alerts.WithLabelValues(string(status)).Set(float64(count))
	}
}
