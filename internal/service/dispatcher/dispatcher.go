package dispatcher

import (
	"context"
	"time"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/metrics"
	"github.com/oshokin/downtime-alerts/internal/platform"
)

// Playback volumes.
const (
	CriticalVolume = 1.0
	DefaultVolume  = 0.5
)

// NotificationTimeout auto-dismisses non-critical notifications.
const NotificationTimeout = 5 * time.Second

// Channel label values.
const (
	channelSound   = "sound"
	channelDesktop = "desktop"
)

// Dispatcher raises the side effects of an alert. It holds no state of its own.
type Dispatcher struct {
	// audio plays the cue, may be nil.
	audio platform.Audio
	// desktop shows notifications, may be nil.
	desktop platform.Desktop
	// focus brings the application forward on notification click, may be nil.
	focus func(alertID string)
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithFocus sets the handler run when a notification is clicked.
func WithFocus(focus func(alertID string)) Option {
	return func(d *Dispatcher) {
		d.focus = focus
	}
}

// New creates a dispatcher over the given outputs.
func New(audio platform.Audio, desktop platform.Desktop, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		audio:   audio,
		desktop: desktop,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch plays the cue and shows the notification the preferences allow.
// Failures are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, a *domain.Alert, prefs *domain.Preferences) {
	if !prefs.Wants(a) {
		return
	}

	ctx = logger.WithKV(logger.WithName(ctx, "dispatcher"), "alert_id", a.ID)

	if prefs.EnableSound {
		d.playSound(ctx, a)
	}

	if prefs.EnableDesktop {
		d.notify(ctx, a)
	}
}

func (d *Dispatcher) playSound(ctx context.Context, a *domain.Alert) {
	if d.audio == nil || !d.audio.Loaded() {
		metrics.DispatchTotal.WithLabelValues(channelSound, metrics.ResultSkipped).Inc()
		return
	}

	volume := DefaultVolume
	if a.IsCritical() {
		volume = CriticalVolume
	}

	err := d.audio.Play(ctx, volume)
	if err != nil {
		logger.WarnKV(ctx, "Failed to play alert sound", "error", err)
	}

	metrics.DispatchTotal.WithLabelValues(channelSound, metrics.Result(err == nil)).Inc()
}

func (d *Dispatcher) notify(ctx context.Context, a *domain.Alert) {
	if d.desktop == nil || d.desktop.Permission() != domain.PermissionGranted {
		metrics.DispatchTotal.WithLabelValues(channelDesktop, metrics.ResultSkipped).Inc()
		return
	}

	n := platform.Notification{
		Title: a.Title,
		Body:  a.Message,
		Tag:   a.ID,
	}

	if a.IsCritical() {
		n.RequireInteraction = true
	} else {
		n.Timeout = NotificationTimeout
	}

	if d.focus != nil {
		id := a.ID
		n.OnClick = func() { d.focus(id) }
	}

	err := d.desktop.Show(ctx, n)
	if err != nil {
		logger.WarnKV(ctx, "Failed to show desktop notification", "error", err)
	}

	metrics.DispatchTotal.WithLabelValues(channelDesktop, metrics.Result(err == nil)).Inc()
}
