package platform

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// toneMillis is the length of a full-volume tone.
const toneMillis = 600

// BeeepAudio plays the cue as a system tone. The tone has no volume control,
// so volume scales its length instead.
type BeeepAudio struct {
	// enabled reports whether a tone device is expected to exist.
	enabled bool
}

// NewBeeepAudio creates the tone player.
func NewBeeepAudio(enabled bool) *BeeepAudio {
	return &BeeepAudio{enabled: enabled}
}

// Loaded reports whether the tone player is usable.
func (a *BeeepAudio) Loaded() bool {
	return a.enabled
}

// Play sounds the tone.
func (a *BeeepAudio) Play(_ context.Context, volume float64) error {
	duration := int(volume * toneMillis)
	if duration <= 0 {
		return nil
	}

	if err := beeep.Beep(beeep.DefaultFreq, duration); err != nil {
		return fmt.Errorf("beep: %w", err)
	}

	return nil
}

// BeeepDesktop raises notifications through the desktop notification daemon.
// Timeouts and click handlers are left to the daemon.
type BeeepDesktop struct {
	// permission gates notifications.
	permission func() domain.Permission
}

// NewBeeepDesktop creates a desktop notifier sharing the permission source of push.
func NewBeeepDesktop(permission func() domain.Permission) *BeeepDesktop {
	return &BeeepDesktop{permission: permission}
}

// Permission returns the shared notification permission.
func (d *BeeepDesktop) Permission() domain.Permission {
	if d.permission == nil {
		return domain.PermissionGranted
	}

	return d.permission()
}

// Show raises the notification, as a persistent alert when interaction is required.
func (d *BeeepDesktop) Show(_ context.Context, n Notification) error {
	var err error
	if n.RequireInteraction {
		err = beeep.Alert(n.Title, n.Body, "")
	} else {
		err = beeep.Notify(n.Title, n.Body, "")
	}

	if err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}

	return nil
}
