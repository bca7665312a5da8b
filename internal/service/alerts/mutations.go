package alerts

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/service/common"
)

// MarkAsRead marks one alert read and syncs it to the backend in the
// background. It reports whether the alert exists.
func (s *Store) MarkAsRead(ctx context.Context, id string) bool {
	found, changed := s.advance(ctx, id, domain.StatusRead)
	if changed {
		s.async(ctx, "mark read", func(ctx context.Context) error {
			return s.remote.MarkRead(ctx, id)
		})
	}

	return found
}

// MarkAllAsRead marks every unread alert read and syncs it to the backend in
// the background. It returns the number of alerts that changed.
func (s *Store) MarkAllAsRead(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()

	changed := 0

	for i := range s.alerts {
		if s.alerts[i].Advance(domain.StatusRead, now) {
			changed++
		}
	}

	snapshot := domain.Clone(s.alerts)
	s.mu.Unlock()

	if changed == 0 {
		return 0
	}

	s.persist(ctx, snapshot)
	s.async(ctx, "mark all read", s.remote.MarkAllRead)

	return changed
}

// DismissAlert hides one alert locally. It reports whether the alert exists.
func (s *Store) DismissAlert(ctx context.Context, id string) bool {
	found, _ := s.advance(ctx, id, domain.StatusDismissed)

	return found
}

// ClearDismissed drops dismissed alerts from the working set and the cache.
// It returns the number of alerts removed.
func (s *Store) ClearDismissed(ctx context.Context) int {
	s.mu.Lock()

	kept := s.alerts[:0:0]
	for i := range s.alerts {
		if s.alerts[i].Status != domain.StatusDismissed {
			kept = append(kept, s.alerts[i])
		}
	}

	removed := len(s.alerts) - len(kept)
	s.alerts = kept
	snapshot := domain.Clone(kept)
	s.mu.Unlock()

	if removed > 0 {
		s.persist(ctx, snapshot)
	}

	return removed
}

// CreateDowntimeAlert surfaces an alert for a declaration made on this
// device before the backend knows about it, then fans it out to the backend
// in the background. The local alert is the source of truth: a missing or
// failing fan-out endpoint is logged and does not undo it.
func (s *Store) CreateDowntimeAlert(ctx context.Context, d *domain.Declaration) domain.Alert {
	alertType := d.Type
	if !alertType.Valid() {
		alertType = domain.TypeNewDowntime
	}

	a := domain.Alert{
		ID:              uuid.NewString(),
		Type:            alertType,
		Priority:        domain.ParsePriority(string(d.Priority)),
		Status:          domain.StatusUnread,
		DeclarationID:   d.ID,
		TicketNumber:    d.TicketNumber,
		WorkstationName: d.WorkstationName,
		LineName:        d.LineName,
		MachineName:     d.MachineName,
		ZoneName:        d.ZoneName,
		DeclaredByName:  d.DeclaredByName,
		CreatedAt:       s.now(),
		Local:           true,
		OriginType:      alertType,
	}
	a.Retitle()

	s.mu.Lock()
	s.alerts = append([]domain.Alert{a}, s.alerts...)
	snapshot := domain.Clone(s.alerts)
	s.mu.Unlock()

	logger.InfoKV(ctx, "Downtime alert created", "alert", a.String(), "declaration_id", a.DeclarationID)

	prefs := s.prefs.Get()
	s.announce(ctx, &a, &prefs)
	s.persist(ctx, snapshot)

	fanOut := *a.Clone()
	s.async(ctx, "send alert", func(ctx context.Context) error {
		err := s.remote.SendAlert(ctx, &fanOut)
		if common.IsUnavailable(err) {
			logger.DebugKV(ctx, "Alert fan-out endpoint unavailable", "alert_id", fanOut.ID, "error", err)
			return nil
		}

		return err
	})

	return *a.Clone()
}

// NotifyTechnicianAssigned records that a technician took the declaration.
// It returns the number of alerts updated.
func (s *Store) NotifyTechnicianAssigned(ctx context.Context, declarationID, technicianName string) int {
	return s.transition(ctx, declarationID, func(a *domain.Alert) {
		a.Type = domain.TypeTechnicianAssigned
		if technicianName != "" {
			a.AssignedTechnicianName = technicianName
		}
	})
}

// NotifyWorkStarted records that work on the declaration began.
func (s *Store) NotifyWorkStarted(ctx context.Context, declarationID string) int {
	return s.transition(ctx, declarationID, func(a *domain.Alert) {
		a.Type = domain.TypeWorkStarted
	})
}

// NotifyResolved records that the declaration was resolved.
func (s *Store) NotifyResolved(ctx context.Context, declarationID string) int {
	return s.transition(ctx, declarationID, func(a *domain.Alert) {
		a.Type = domain.TypeResolved
	})
}

// NotifyEscalated records that the declaration was escalated, raising its
// alerts to at least high priority.
func (s *Store) NotifyEscalated(ctx context.Context, declarationID string) int {
	return s.transition(ctx, declarationID, func(a *domain.Alert) {
		a.Type = domain.TypeEscalated
		if a.Priority != domain.PriorityCritical {
			a.Priority = domain.PriorityHigh
		}
	})
}

// advance moves one alert's status forward and persists the change.
func (s *Store) advance(ctx context.Context, id string, next domain.Status) (found, changed bool) {
	now := s.now()

	s.mu.Lock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}

		found = true
		changed = s.alerts[i].Advance(next, now)

		break
	}

	var snapshot []domain.Alert
	if changed {
		snapshot = domain.Clone(s.alerts)
	}
	s.mu.Unlock()

	if !found {
		logger.DebugKV(ctx, "Alert not found", "alert_id", id)
		return false, false
	}

	if changed {
		s.persist(ctx, snapshot)
	}

	return found, changed
}

// transition applies a lifecycle event to every alert of a declaration.
func (s *Store) transition(ctx context.Context, declarationID string, apply func(*domain.Alert)) int {
	if declarationID == "" {
		return 0
	}

	s.mu.Lock()

	updated := 0

	for i := range s.alerts {
		if s.alerts[i].DeclarationID != declarationID {
			continue
		}

		if s.alerts[i].OriginType == "" {
			s.alerts[i].OriginType = s.alerts[i].Type
		}

		apply(&s.alerts[i])
		s.alerts[i].Retitle()
		updated++
	}

	snapshot := domain.Clone(s.alerts)
	s.mu.Unlock()

	if updated > 0 {
		logger.InfoKV(ctx, "Declaration alerts updated", "declaration_id", declarationID, "count", updated)
		s.persist(ctx, snapshot)
	}

	return updated
}
