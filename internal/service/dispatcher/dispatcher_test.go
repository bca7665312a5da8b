package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/platform"
)

// recordingAudio records playback volumes.
type recordingAudio struct {
	loaded  bool
	err     error
	volumes []float64
}

func (a *recordingAudio) Loaded() bool { return a.loaded }

func (a *recordingAudio) Play(_ context.Context, volume float64) error {
	a.volumes = append(a.volumes, volume)
	return a.err
}

// recordingDesktop records shown notifications.
type recordingDesktop struct {
	permission domain.Permission
	err        error
	shown      []platform.Notification
}

func (d *recordingDesktop) Permission() domain.Permission { return d.permission }

func (d *recordingDesktop) Show(_ context.Context, n platform.Notification) error {
	d.shown = append(d.shown, n)
	return d.err
}

func newAlert(priority domain.Priority) *domain.Alert {
	return &domain.Alert{
		ID:       "a-1",
		Type:     domain.TypeNewDowntime,
		Priority: priority,
		Title:    "New downtime",
		Message:  "WS-1",
	}
}

// TestDispatch_Volumes plays critical alerts louder.
func TestDispatch_Volumes(t *testing.T) {
	t.Parallel()

	audio := &recordingAudio{loaded: true}
	d := New(audio, nil)
	prefs := domain.DefaultPreferences()

	d.Dispatch(context.Background(), newAlert(domain.PriorityCritical), &prefs)
	d.Dispatch(context.Background(), newAlert(domain.PriorityLow), &prefs)

	require.Equal(t, []float64{CriticalVolume, DefaultVolume}, audio.volumes)
}

// TestDispatch_Notification keeps critical notifications until dismissed.
func TestDispatch_Notification(t *testing.T) {
	t.Parallel()

	desktop := &recordingDesktop{permission: domain.PermissionGranted}

	var focused string

	d := New(nil, desktop, WithFocus(func(id string) { focused = id }))
	prefs := domain.DefaultPreferences()

	d.Dispatch(context.Background(), newAlert(domain.PriorityCritical), &prefs)
	d.Dispatch(context.Background(), newAlert(domain.PriorityMedium), &prefs)

	require.Len(t, desktop.shown, 2)
	require.True(t, desktop.shown[0].RequireInteraction)
	require.Zero(t, desktop.shown[0].Timeout)
	require.False(t, desktop.shown[1].RequireInteraction)
	require.Equal(t, NotificationTimeout, desktop.shown[1].Timeout)
	require.Equal(t, "New downtime", desktop.shown[1].Title)

	desktop.shown[0].OnClick()
	require.Equal(t, "a-1", focused)
}

// TestDispatch_Gates honours preferences, permission and audio readiness.
func TestDispatch_Gates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prefs      func(*domain.Preferences)
		loaded     bool
		permission domain.Permission
		priority   domain.Priority
		sounds     int
		shown      int
	}{
		{
			name:       "all enabled",
			prefs:      func(*domain.Preferences) {},
			loaded:     true,
			permission: domain.PermissionGranted,
			priority:   domain.PriorityHigh,
			sounds:     1,
			shown:      1,
		},
		{
			name:       "sound disabled",
			prefs:      func(p *domain.Preferences) { p.EnableSound = false },
			loaded:     true,
			permission: domain.PermissionGranted,
			priority:   domain.PriorityHigh,
			shown:      1,
		},
		{
			name:       "audio not loaded",
			prefs:      func(*domain.Preferences) {},
			permission: domain.PermissionGranted,
			priority:   domain.PriorityHigh,
			shown:      1,
		},
		{
			name:       "permission denied",
			prefs:      func(*domain.Preferences) {},
			loaded:     true,
			permission: domain.PermissionDenied,
			priority:   domain.PriorityHigh,
			sounds:     1,
		},
		{
			name:       "critical only filters high",
			prefs:      func(p *domain.Preferences) { p.ShowCriticalOnly = true },
			loaded:     true,
			permission: domain.PermissionGranted,
			priority:   domain.PriorityHigh,
		},
		{
			name:       "critical only passes critical",
			prefs:      func(p *domain.Preferences) { p.ShowCriticalOnly = true },
			loaded:     true,
			permission: domain.PermissionGranted,
			priority:   domain.PriorityCritical,
			sounds:     1,
			shown:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			audio := &recordingAudio{loaded: tt.loaded}
			desktop := &recordingDesktop{permission: tt.permission}
			prefs := domain.DefaultPreferences()
			tt.prefs(&prefs)

			New(audio, desktop).Dispatch(context.Background(), newAlert(tt.priority), &prefs)

			require.Len(t, audio.volumes, tt.sounds)
			require.Len(t, desktop.shown, tt.shown)
		})
	}
}

// TestDispatch_SwallowsFailures never surfaces output errors.
func TestDispatch_SwallowsFailures(t *testing.T) {
	t.Parallel()

	failure := errors.New("autoplay blocked")
	audio := &recordingAudio{loaded: true, err: failure}
	desktop := &recordingDesktop{permission: domain.PermissionGranted, err: failure}
	prefs := domain.DefaultPreferences()

	require.NotPanics(t, func() {
		New(audio, desktop).Dispatch(context.Background(), newAlert(domain.PriorityLow), &prefs)
	})
	require.Len(t, desktop.shown, 1)
}
