package platform

import (
	"context"
	"errors"
	"time"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// Capabilities reports which host APIs are present.
type Capabilities struct {
	// ServiceWorker reports a worker able to receive pushes in the background.
	ServiceWorker bool
	// PushManager reports a push registration API.
	PushManager bool
	// Notification reports a notification permission API.
	Notification bool
}

// Push is the host side of push subscriptions.
type Push interface {
	Capabilities() Capabilities
	Permission() domain.Permission
	// RequestPermission asks the user for the notification permission.
	RequestPermission(ctx context.Context) (domain.Permission, error)
	// Register installs the push service worker at scriptPath within scope.
	Register(ctx context.Context, scriptPath, scope string) (Registration, error)
}

// Registration is an installed push service worker.
type Registration interface {
	// Subscription returns the existing subscription, or nil when there is none.
	Subscription(ctx context.Context) (*domain.Subscription, error)
	// Subscribe creates a subscription authorised by the server's VAPID key.
	Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.Subscription, error)
	// Unsubscribe drops the current subscription.
	Unsubscribe(ctx context.Context) error
	// Release frees the registration handle.
	Release()
}

// Audio plays the audible cue.
type Audio interface {
	// Loaded reports whether the cue is ready to play.
	Loaded() bool
	// Play plays the cue at volume in [0, 1].
	Play(ctx context.Context, volume float64) error
}

// Notification is a desktop notification request.
type Notification struct {
	// Title is the notification headline.
	Title string
	// Body is the notification text.
	Body string
	// Tag groups notifications of the same alert.
	Tag string
	// RequireInteraction keeps the notification until the user dismisses it.
	RequireInteraction bool
	// Timeout auto-dismisses the notification, ignored with RequireInteraction.
	Timeout time.Duration
	// OnClick runs when the user clicks the notification.
	OnClick func()
}

// Desktop raises desktop notifications.
type Desktop interface {
	Permission() domain.Permission
	Show(ctx context.Context, n Notification) error
}

// ErrUnsupported is returned by hosts lacking a capability.
var ErrUnsupported = errors.New("not supported on this platform")
