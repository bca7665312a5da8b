package alert

// Permission is the platform notification permission.
type Permission string

// Notification permissions.
const (
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// ParsePermission maps a raw value to a Permission, defaulting to default.
func ParsePermission(s string) Permission {
	switch p := Permission(s); p {
	case PermissionGranted, PermissionDenied, PermissionUnsupported:
		return p
	default:
		return PermissionDefault
	}
}

// SubscriptionKeys are the client keys of a push subscription.
type SubscriptionKeys struct {
	// P256dh is the base64url client public key.
	P256dh string `json:"p256dh"`
	// Auth is the base64url authentication secret.
	Auth string `json:"auth"`
}

// Subscription is the opaque handle of a platform push subscription.
type Subscription struct {
	// Endpoint is the push-service URL messages are delivered to.
	Endpoint string `json:"endpoint"`
	// Keys are the encryption keys of the subscription.
	Keys SubscriptionKeys `json:"keys"`
}

// PushState is a snapshot of the push subscription lifecycle.
type PushState struct {
	// IsSupported reports whether the platform can receive push at all.
	IsSupported bool
	// IsSubscribed reports whether an active subscription exists.
	IsSubscribed bool
	// Permission is the current notification permission.
	Permission Permission
	// Subscription is the active subscription, nil when unsubscribed.
	Subscription *Subscription
	// Error is the last push-pipeline failure, empty when none.
	Error string
}

// Clone returns a copy that shares no pointers with s.
func (s PushState) Clone() PushState {
	if s.Subscription != nil {
		sub := *s.Subscription
		s.Subscription = &sub
	}

	return s
}
