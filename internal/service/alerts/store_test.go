package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/repository/cache"
	"github.com/oshokin/downtime-alerts/internal/service/common"
	"github.com/oshokin/downtime-alerts/internal/service/preferences"
)

var errFeedDown = errors.New("feed down")

// fakeRemote serves a scripted feed and records sync calls.
type fakeRemote struct {
	mu       sync.Mutex
	feed     string
	feedErr  error
	sendErr  error
	read     []string
	readAll  int
	sent     []domain.Alert
	fetchCnt int
}

func (f *fakeRemote) setFeed(feed string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.feed = feed
	f.feedErr = nil
}

func (f *fakeRemote) FetchAlerts(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCnt++

	if f.feedErr != nil {
		return nil, f.feedErr
	}

	return json.RawMessage(f.feed), nil
}

func (f *fakeRemote) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.read = append(f.read, id)

	return nil
}

func (f *fakeRemote) MarkAllRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readAll++

	return nil
}

func (f *fakeRemote) SendAlert(_ context.Context, a *domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, *a)

	return f.sendErr
}

// recordingNotifier records dispatched alert ids.
type recordingNotifier struct {
	mu         sync.Mutex
	ids        []string
	onDispatch func(a *domain.Alert)
}

func (n *recordingNotifier) Dispatch(_ context.Context, a *domain.Alert, _ *domain.Preferences) {
	n.mu.Lock()
	n.ids = append(n.ids, a.ID)
	hook := n.onDispatch
	n.mu.Unlock()

	if hook != nil {
		hook(a)
	}
}

func (n *recordingNotifier) dispatched() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.ids...)
}

// fixture is a store over fakes and an in-memory cache.
type fixture struct {
	store    *Store
	remote   *fakeRemote
	notifier *recordingNotifier
	cache    *cache.Fallback
}

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	f := &fixture{
		remote:   new(fakeRemote),
		notifier: new(recordingNotifier),
		cache:    cache.NewFallback(cache.NewMemoryKV(), 0),
	}

	f.store = New(ctx, &Options{
		Remote:      f.remote,
		Cache:       f.cache,
		Preferences: preferences.New(ctx, f.cache),
		Notifier:    f.notifier,
		Now:         func() time.Time { return testNow },
	})

	t.Cleanup(f.store.Close)

	return f
}

const feedTwo = `{"alerts": [
	{"id": "a-1", "alert_type": "new_downtime", "priority": "critical", "is_new": true,
	 "declaration_id": "d-1", "workstation_name": "WS-1", "zone_name": "Zone A",
	 "created_at": "2026-03-02T07:00:00Z"},
	{"id": "a-2", "alertType": "acknowledged", "priority": "low", "isNew": true,
	 "declarationId": "d-2", "workstationName": "WS-2", "zoneName": "Zone B",
	 "createdAt": "2026-03-02T07:30:00Z"}
]}`

// TestStore_NewAlertsDispatchedOnce notifies only about ids not seen before.
func TestStore_NewAlertsDispatchedOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	events, cancel := f.store.Subscribe()
	defer cancel()

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))
	require.NoError(t, f.store.Refresh(ctx))

	require.ElementsMatch(t, []string{"a-1", "a-2"}, f.notifier.dispatched())
	require.Len(t, f.store.Alerts(), 2)
	require.Equal(t, 2, f.store.UnreadCount())
	require.True(t, f.store.Connected())
	require.Len(t, events, 2)

	f.remote.setFeed(`[{"id": "a-3", "priority": "high", "created_at": "2026-03-02T07:45:00Z"},
		{"id": "a-3"}, {"id": "a-1"}]`)
	require.NoError(t, f.store.Refresh(ctx))

	dispatched := f.notifier.dispatched()
	slices.Sort(dispatched)
	require.Equal(t, []string{"a-1", "a-2", "a-3"}, dispatched)
	require.Len(t, f.store.Alerts(), 2)
	require.Len(t, f.cache.LoadAlerts(ctx), 2)
}

// TestStore_LocalStatusSurvivesRefetch keeps read and dismissed states.
func TestStore_LocalStatusSurvivesRefetch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))

	require.True(t, f.store.MarkAsRead(ctx, "a-1"))
	require.True(t, f.store.DismissAlert(ctx, "a-2"))
	require.False(t, f.store.MarkAsRead(ctx, "missing"))

	require.NoError(t, f.store.Refresh(ctx))

	a1, ok := f.store.Alert("a-1")
	require.True(t, ok)
	require.Equal(t, domain.StatusRead, a1.Status)
	require.Equal(t, testNow, *a1.ReadAt)

	a2, ok := f.store.Alert("a-2")
	require.True(t, ok)
	require.Equal(t, domain.StatusDismissed, a2.Status)

	// Reading a dismissed alert never moves it back.
	f.store.MarkAsRead(ctx, "a-2")
	a2, _ = f.store.Alert("a-2")
	require.Equal(t, domain.StatusDismissed, a2.Status)

	f.store.background.Wait()

	f.remote.mu.Lock()
	require.Equal(t, []string{"a-1"}, f.remote.read)
	f.remote.mu.Unlock()

	require.Zero(t, f.store.UnreadCount())
	require.Len(t, f.store.VisibleAlerts(), 1)
}

// TestStore_MarkAllAsRead reads every unread alert and syncs once.
func TestStore_MarkAllAsRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))

	require.Equal(t, 2, f.store.MarkAllAsRead(ctx))
	require.Zero(t, f.store.MarkAllAsRead(ctx))
	require.Zero(t, f.store.UnreadCount())

	f.store.background.Wait()

	f.remote.mu.Lock()
	require.Equal(t, 1, f.remote.readAll)
	f.remote.mu.Unlock()

	for _, a := range f.cache.LoadAlerts(ctx) {
		require.Equal(t, domain.StatusRead, a.Status)
	}
}

// TestStore_AlertsByPriority returns matching alerts in working set order.
func TestStore_AlertsByPriority(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(`[
		{"id": "p-1", "priority": "low"},
		{"id": "p-2", "priority": "critical"},
		{"id": "p-3", "priority": "medium"},
		{"id": "p-4", "priority": "critical"},
		{"id": "p-5", "priority": "high"}
	]`)
	require.NoError(t, f.store.Refresh(ctx))

	critical := f.store.AlertsByPriority(domain.PriorityCritical)
	require.Len(t, critical, 2)
	require.Equal(t, "p-2", critical[0].ID)
	require.Equal(t, "p-4", critical[1].ID)

	f.store.DismissAlert(ctx, "p-4")
	require.Len(t, f.store.CriticalAlerts(), 1)
	require.Len(t, f.store.AlertsByPriority(domain.PriorityCritical), 2)
}

// TestStore_FallbackOnFailure serves the cached list while the feed is down.
func TestStore_FallbackOnFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.cache.SaveAlerts(ctx, []domain.Alert{{ID: "cached-1", Status: domain.StatusUnread, CreatedAt: testNow}})
	f.remote.feedErr = errFeedDown

	require.ErrorIs(t, f.store.Refresh(ctx), errFeedDown)
	require.False(t, f.store.Connected())
	require.Len(t, f.store.Alerts(), 1)
	require.Empty(t, f.notifier.dispatched())

	// A live list is not replaced by the cache.
	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))
	require.True(t, f.store.Connected())

	f.remote.mu.Lock()
	f.remote.feedErr = errFeedDown
	f.remote.mu.Unlock()

	require.Error(t, f.store.Refresh(ctx))
	require.Len(t, f.store.Alerts(), 2)
}

// TestStore_CreateDowntimeAlert surfaces the alert locally and tolerates a missing fan-out endpoint.
func TestStore_CreateDowntimeAlert(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.remote.sendErr = &common.APIError{StatusCode: http.StatusNotFound}

	events, cancel := f.store.Subscribe()
	defer cancel()

	created := f.store.CreateDowntimeAlert(ctx, &domain.Declaration{
		ID:              "d-9",
		WorkstationName: "WS-9",
		Priority:        domain.PriorityCritical,
	})

	require.Equal(t, domain.TypeNewDowntime, created.Type)
	require.Equal(t, domain.StatusUnread, created.Status)
	require.True(t, created.Local)
	require.Equal(t, domain.Title(domain.TypeNewDowntime), created.Title)
	require.Equal(t, []string{created.ID}, f.notifier.dispatched())
	require.Equal(t, created.ID, (<-events).ID)

	f.store.background.Wait()

	f.remote.mu.Lock()
	require.Len(t, f.remote.sent, 1)
	require.Equal(t, "d-9", f.remote.sent[0].DeclarationID)
	f.remote.mu.Unlock()

	// The local alert survives a feed that does not know it yet.
	f.remote.setFeed(`[]`)
	require.NoError(t, f.store.Refresh(ctx))
	require.Len(t, f.store.Alerts(), 1)

	// The echo replaces it without a second notification and keeps the local read state.
	f.store.MarkAsRead(ctx, created.ID)
	f.remote.setFeed(`[{"id": "srv-9", "type": "new_downtime", "declaration_id": "d-9", "priority": "critical"}]`)
	require.NoError(t, f.store.Refresh(ctx))

	alerts := f.store.Alerts()
	require.Len(t, alerts, 1)
	require.Equal(t, "srv-9", alerts[0].ID)
	require.Equal(t, domain.StatusRead, alerts[0].Status)
	require.False(t, alerts[0].Local)
	require.Len(t, f.notifier.dispatched(), 1)
}

// TestStore_EchoAfterTransitionNotifiesOnce keeps a locally transitioned
// alert as one alert, announced once, when its creation is echoed.
func TestStore_EchoAfterTransitionNotifiesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created := f.store.CreateDowntimeAlert(ctx, &domain.Declaration{ID: "d-42", WorkstationName: "WS-4"})
	require.Equal(t, domain.TypeNewDowntime, created.OriginType)
	require.Equal(t, 1, f.store.NotifyTechnicianAssigned(ctx, "d-42", "Tech One"))
	require.True(t, f.store.MarkAsRead(ctx, created.ID))

	f.remote.setFeed(`[{"id": "srv-9", "type": "new_downtime", "declaration_id": "d-42", "is_new": true}]`)
	require.NoError(t, f.store.Refresh(ctx))

	alerts := f.store.Alerts()
	require.Len(t, alerts, 1)
	require.Equal(t, "srv-9", alerts[0].ID)
	require.Equal(t, domain.TypeTechnicianAssigned, alerts[0].Type)
	require.Equal(t, domain.StatusRead, alerts[0].Status)
	require.False(t, alerts[0].Local)
	require.Equal(t, []string{created.ID}, f.notifier.dispatched())

	// The transition sticks while the remote still reports the original event.
	require.NoError(t, f.store.Refresh(ctx))

	alerts = f.store.Alerts()
	require.Len(t, alerts, 1)
	require.Equal(t, domain.TypeTechnicianAssigned, alerts[0].Type)
	require.Equal(t, []string{created.ID}, f.notifier.dispatched())

	// A newer remote event takes over.
	f.remote.setFeed(`[{"id": "srv-9", "type": "resolved", "declaration_id": "d-42"}]`)
	require.NoError(t, f.store.Refresh(ctx))

	alerts = f.store.Alerts()
	require.Equal(t, domain.TypeResolved, alerts[0].Type)
	require.Equal(t, domain.StatusRead, alerts[0].Status)
}

// TestStore_MutationDuringPollIsPersisted keeps a read made while a poll is
// announcing its fresh alerts in the cache.
func TestStore_MutationDuringPollIsPersisted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.notifier.onDispatch = func(a *domain.Alert) {
		if a.ID == "a-1" {
			f.store.MarkAsRead(ctx, "a-1")
		}
	}

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))

	cached := f.cache.LoadAlerts(ctx)
	require.Len(t, cached, 2)

	for _, a := range cached {
		if a.ID == "a-1" {
			require.Equal(t, domain.StatusRead, a.Status)
		}
	}
}

// TestStore_LifecycleTransitions retitles every alert of a declaration.
func TestStore_LifecycleTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(`[
		{"id": "x-1", "type": "new_downtime", "declaration_id": "d-1", "workstation_name": "WS-1"},
		{"id": "x-2", "type": "acknowledged", "declaration_id": "d-1", "workstation_name": "WS-1"},
		{"id": "x-3", "type": "new_downtime", "declaration_id": "d-2", "priority": "low"}
	]`)
	require.NoError(t, f.store.Refresh(ctx))

	require.Equal(t, 2, f.store.NotifyTechnicianAssigned(ctx, "d-1", "Tech One"))

	a, _ := f.store.Alert("x-2")
	require.Equal(t, domain.TypeTechnicianAssigned, a.Type)
	require.Equal(t, "Tech One", a.AssignedTechnicianName)
	require.Equal(t, domain.Title(domain.TypeTechnicianAssigned), a.Title)
	require.Equal(t, domain.Message(domain.TypeTechnicianAssigned, "WS-1"), a.Message)

	require.Equal(t, 2, f.store.NotifyWorkStarted(ctx, "d-1"))
	require.Equal(t, 2, f.store.NotifyResolved(ctx, "d-1"))

	a, _ = f.store.Alert("x-1")
	require.Equal(t, domain.TypeResolved, a.Type)

	require.Equal(t, 1, f.store.NotifyEscalated(ctx, "d-2"))
	a, _ = f.store.Alert("x-3")
	require.Equal(t, domain.TypeEscalated, a.Type)
	require.Equal(t, domain.PriorityHigh, a.Priority)

	require.Zero(t, f.store.NotifyResolved(ctx, "unknown"))
	require.Zero(t, f.store.NotifyResolved(ctx, ""))

	stats := f.store.Statistics()
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ByType[domain.TypeResolved])
}

// TestStore_ClearDismissed drops dismissed alerts from memory and cache.
func TestStore_ClearDismissed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))

	f.store.DismissAlert(ctx, "a-1")
	require.Equal(t, 1, f.store.ClearDismissed(ctx))
	require.Zero(t, f.store.ClearDismissed(ctx))

	_, ok := f.store.Alert("a-1")
	require.False(t, ok)

	cached := f.cache.LoadAlerts(ctx)
	require.Len(t, cached, 1)
	require.Equal(t, "a-2", cached[0].ID)
}

// TestStore_VisibleAlerts applies filters and display order.
func TestStore_VisibleAlerts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.remote.setFeed(feedTwo)
	require.NoError(t, f.store.Refresh(ctx))

	// Unread first, then newest first.
	f.store.MarkAsRead(ctx, "a-2")
	alerts := f.store.Alerts()
	require.Equal(t, "a-1", alerts[0].ID)
	require.Equal(t, "a-2", alerts[1].ID)

	f.store.Preferences().Update(ctx, func(p *domain.Preferences) { p.ZoneFilter = []string{"Zone B"} })

	visible := f.store.VisibleAlerts()
	require.Len(t, visible, 1)
	require.Equal(t, "a-2", visible[0].ID)
}

// TestStore_CloseEndsSubscriptions closes event channels.
func TestStore_CloseEndsSubscriptions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	events, _ := f.store.Subscribe()
	f.store.Close()

	_, open := <-events
	require.False(t, open)

	late, cancel := f.store.Subscribe()
	cancel()

	_, open = <-late
	require.False(t, open)
}

// TestStore_SlowSubscriberDropsEvents never blocks the poll on a full buffer.
func TestStore_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := new(fakeRemote)
	s := New(ctx, &Options{Remote: remote, EventBuffer: 1})
	t.Cleanup(s.Close)

	events, cancel := s.Subscribe()
	defer cancel()

	remote.setFeed(feedTwo)
	require.NoError(t, s.Refresh(ctx))
	require.Len(t, events, 1)
}

// TestStore_IntervalChangeRestartsPolling follows the refresh preference.
func TestStore_IntervalChangeRestartsPolling(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		remote := new(fakeRemote)
		remote.setFeed(`[]`)

		s := New(ctx, &Options{Remote: remote})

		s.Start(ctx)
		synctest.Wait()
		require.True(t, s.Polling())
		require.Equal(t, time.Duration(domain.DefaultRefreshInterval)*time.Second, s.scheduler.Interval())

		s.Preferences().Update(ctx, func(p *domain.Preferences) { p.AutoRefreshInterval = 60 })
		synctest.Wait()
		require.Equal(t, time.Minute, s.scheduler.Interval())

		time.Sleep(90 * time.Second)
		synctest.Wait()

		remote.mu.Lock()
		fetches := remote.fetchCnt
		remote.mu.Unlock()

		// One fetch per start, then one at the 60s mark.
		require.Equal(t, 3, fetches)

		s.Close()
		require.False(t, s.Polling())
	})
}
