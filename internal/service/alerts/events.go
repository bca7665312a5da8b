package alerts

import (
	"context"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
)

// Subscribe returns a channel of newly arrived alerts and a function that
// ends the subscription. Events are dropped for a subscriber whose buffer is
// full. The channel is closed when the subscription or the store ends.
func (s *Store) Subscribe() (<-chan domain.Alert, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan domain.Alert, s.eventBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	key := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[key] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()

		if sub, ok := s.subscribers[key]; ok {
			close(sub)
			delete(s.subscribers, key)
		}
	}

	return ch, cancel
}

func (s *Store) publish(ctx context.Context, a *domain.Alert) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for key, ch := range s.subscribers {
		select {
		case ch <- *a.Clone():
		default:
			logger.DebugKV(ctx, "Dropping alert event for slow subscriber", "subscriber", key, "alert_id", a.ID)
		}
	}
}
