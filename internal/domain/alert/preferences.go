package alert

// Bounds of the auto-refresh interval, in seconds.
const (
	DefaultRefreshInterval = 30
	MinRefreshInterval     = 5
	MaxRefreshInterval     = 3600
)

// Preferences are the user-configurable notification settings.
type Preferences struct {
	// EnableSound plays an audible cue on new alerts.
	EnableSound bool `json:"enableSound"`
	// EnableDesktop raises desktop notifications on new alerts.
	EnableDesktop bool `json:"enableDesktop"`
	// EnablePush keeps this device subscribed to push notifications.
	EnablePush bool `json:"enablePush"`
	// AutoRefreshInterval is the polling cadence in seconds.
	AutoRefreshInterval int `json:"autoRefreshInterval"`
	// ShowCriticalOnly restricts side effects to critical alerts.
	ShowCriticalOnly bool `json:"showCriticalOnly"`
	// ZoneFilter restricts the visible alerts to these zones when non-empty.
	ZoneFilter []string `json:"zoneFilter,omitempty"`
	// LineFilter restricts the visible alerts to these lines when non-empty.
	LineFilter []string `json:"lineFilter,omitempty"`
}

// DefaultPreferences returns the preferences a fresh install starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		EnableSound:         true,
		EnableDesktop:       true,
		EnablePush:          false,
		AutoRefreshInterval: DefaultRefreshInterval,
	}
}

// Normalize clamps the refresh interval into its allowed range.
func (p *Preferences) Normalize() {
	switch {
	case p.AutoRefreshInterval <= 0:
		p.AutoRefreshInterval = DefaultRefreshInterval
	case p.AutoRefreshInterval < MinRefreshInterval:
		p.AutoRefreshInterval = MinRefreshInterval
	case p.AutoRefreshInterval > MaxRefreshInterval:
		p.AutoRefreshInterval = MaxRefreshInterval
	}
}

// Clone returns a copy that shares no slices with p.
func (p Preferences) Clone() Preferences {
	p.ZoneFilter = append([]string(nil), p.ZoneFilter...)
	p.LineFilter = append([]string(nil), p.LineFilter...)

	return p
}

// Matches reports whether the alert passes the zone and line filters.
func (p *Preferences) Matches(a *Alert) bool {
	return matchFilter(p.ZoneFilter, a.ZoneName) && matchFilter(p.LineFilter, a.LineName)
}

// Wants reports whether side effects should fire for the alert.
func (p *Preferences) Wants(a *Alert) bool {
	if p.ShowCriticalOnly && !a.IsCritical() {
		return false
	}

	return p.Matches(a)
}

func matchFilter(filter []string, value string) bool {
	if len(filter) == 0 {
		return true
	}

	for _, f := range filter {
		if f == value {
			return true
		}
	}

	return false
}
