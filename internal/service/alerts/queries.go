package alerts

import (
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// Alerts returns the working set in display order.
func (s *Store) Alerts() []domain.Alert {
	alerts := s.snapshot()
	displayOrder(alerts)

	return alerts
}

// VisibleAlerts returns the non-dismissed alerts that pass the preference
// filters, in display order.
func (s *Store) VisibleAlerts() []domain.Alert {
	prefs := s.prefs.Get()

	visible := s.filter(func(a *domain.Alert) bool {
		return a.Status != domain.StatusDismissed && prefs.Wants(a)
	})
	displayOrder(visible)

	return visible
}

// UnreadCount returns the number of unread alerts.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0

	for i := range s.alerts {
		if s.alerts[i].Status == domain.StatusUnread {
			count++
		}
	}

	return count
}

// CriticalAlerts returns the critical alerts not yet dismissed.
func (s *Store) CriticalAlerts() []domain.Alert {
	return s.filter(func(a *domain.Alert) bool {
		return a.IsCritical() && a.Status != domain.StatusDismissed
	})
}

// AlertsByPriority returns the alerts of the given priority in working set order.
func (s *Store) AlertsByPriority(priority domain.Priority) []domain.Alert {
	return s.filter(func(a *domain.Alert) bool {
		return a.Priority == priority
	})
}

// Alert returns the alert with the given id.
func (s *Store) Alert(id string) (domain.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return *s.alerts[i].Clone(), true
		}
	}

	return domain.Alert{}, false
}

// Statistics summarises the working set.
func (s *Store) Statistics() domain.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.ComputeStatistics(s.alerts)
}

func (s *Store) snapshot() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := domain.Clone(s.alerts)
	if alerts == nil {
		alerts = []domain.Alert{}
	}

	return alerts
}

func (s *Store) filter(keep func(*domain.Alert) bool) []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Alert, 0)

	for i := range s.alerts {
		if keep(&s.alerts[i]) {
			result = append(result, *s.alerts[i].Clone())
		}
	}

	return result
}
