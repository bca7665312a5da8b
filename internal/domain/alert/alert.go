package alert

import (
	"fmt"
	"time"
)

// Type is a coarse classification of what happened to a declaration.
type Type string

// Alert types.
const (
	TypeNewDowntime        Type = "new_downtime"
	TypeAcknowledged       Type = "acknowledged"
	TypeTechnicianAssigned Type = "technician_assigned"
	TypeWorkStarted        Type = "work_started"
	TypeResolved           Type = "resolved"
	TypeEscalated          Type = "escalated"
	TypeCritical           Type = "critical"
)

// Types lists every known alert type in lifecycle order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var Types = []Type{
	TypeNewDowntime,
	TypeAcknowledged,
	TypeTechnicianAssigned,
	TypeWorkStarted,
	TypeResolved,
	TypeEscalated,
	TypeCritical,
}

// Valid reports whether t is a known alert type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}

	return false
}

// Priority is the urgency of an alert.
type Priority string

// Alert priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority maps a raw value to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p
	default:
		return PriorityMedium
	}
}

// Status is the local-only UI lifecycle of an alert.
type Status string

// Alert statuses. They only move forward: unread, read, dismissed.
const (
	StatusUnread    Status = "unread"
	StatusRead      Status = "read"
	StatusDismissed Status = "dismissed"
)

// Rank orders statuses along the lifecycle.
func (s Status) Rank() int {
	switch s {
	case StatusRead:
		return 1
	case StatusDismissed:
		return 2 //nolint:mnd // Last step of the lifecycle.
	default:
		return 0
	}
}

// ParseStatus maps a raw value to a Status, reporting whether it was recognised.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusUnread, StatusRead, StatusDismissed:
		return st, true
	default:
		return StatusUnread, false
	}
}

// Alert represents one notable event in the lifecycle of a downtime declaration.
type Alert struct {
	// ID is the stable identity of the alert within the local working set.
	ID string `json:"id"`
	// Type classifies the lifecycle transition.
	Type Type `json:"type"`
	// Priority is the urgency of the alert.
	Priority Priority `json:"priority"`
	// Status is the local UI lifecycle.
	Status Status `json:"status"`
	// Title is a short human-readable summary.
	Title string `json:"title"`
	// Message is the human-readable body.
	Message string `json:"message"`
	// DeclarationID references the remote downtime declaration.
	DeclarationID string `json:"declarationId,omitempty"`
	// TicketNumber is the declaration ticket shown to operators.
	TicketNumber string `json:"ticketNumber,omitempty"`
	// WorkstationName is the stopped workstation.
	WorkstationName string `json:"workstationName,omitempty"`
	// LineName is the production line of the workstation.
	LineName string `json:"lineName,omitempty"`
	// MachineName is the stopped machine.
	MachineName string `json:"machineName,omitempty"`
	// ZoneName is the factory zone.
	ZoneName string `json:"zoneName,omitempty"`
	// DeclaredByName is the operator who declared the stoppage.
	DeclaredByName string `json:"declaredByName,omitempty"`
	// AssignedTechnicianName is the technician working on the stoppage.
	AssignedTechnicianName string `json:"assignedTechnicianName,omitempty"`
	// CreatedAt is when the event happened.
	CreatedAt time.Time `json:"createdAt"`
	// ReadAt is set when the status moves to read.
	ReadAt *time.Time `json:"readAt,omitempty"`
	// Local marks an alert created on this device and not yet echoed by the remote.
	Local bool `json:"local,omitempty"`
	// OriginType is the type the alert had before local lifecycle transitions
	// changed Type. The remote keeps reporting that event until it catches up.
	OriginType Type `json:"originType,omitempty"`
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a
	if a.ReadAt != nil {
		readAt := *a.ReadAt
		cloned.ReadAt = &readAt
	}

	return &cloned
}

// IsCritical reports whether the alert has critical priority.
func (a *Alert) IsCritical() bool {
	return a.Priority == PriorityCritical
}

// Advance moves the status forward to next, stamping ReadAt on the first read.
// It reports whether anything changed; backward moves are ignored.
func (a *Alert) Advance(next Status, now time.Time) bool {
	if next.Rank() <= a.Status.Rank() {
		return false
	}

	if a.ReadAt == nil && next == StatusRead {
		readAt := now
		a.ReadAt = &readAt
	}

	a.Status = next

	return true
}

// Retitle regenerates Title and Message from the current type and workstation.
func (a *Alert) Retitle() {
	a.Title = Title(a.Type)
	a.Message = Message(a.Type, a.WorkstationName)
}

// String renders the alert for logs.
func (a *Alert) String() string {
	return fmt.Sprintf("%s[%s/%s] %s", a.ID, a.Type, a.Priority, a.Title)
}

// Clone returns deep copies of all alerts in the slice.
func Clone(alerts []Alert) []Alert {
	if alerts == nil {
		return nil
	}

	out := make([]Alert, len(alerts))
	for i := range alerts {
		out[i] = *alerts[i].Clone()
	}

	return out
}
