package reconciler

import (
	"time"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// Result is the outcome of reconciling two snapshots.
type Result struct {
	// Merged replaces the previous list.
	Merged []domain.Alert
	// Fresh holds the alerts that were not in the previous list.
	Fresh []domain.Alert
}

// Reconcile merges a freshly fetched list into the previous one.
//
// The fetched list replaces the previous one, deduplicated by id with the
// first occurrence kept. Local status is authoritative: for an id present in
// both lists the status furthest along the lifecycle wins, with its ReadAt.
// Local alerts that the remote has not echoed yet are retained; once an
// alert for the same declaration and original type arrives, the echo takes
// over the local one's status and lifecycle, and is not reported as fresh.
// Lifecycle events applied locally survive until the remote reports a
// different event for the alert.
func Reconcile(prev, fetched []domain.Alert) Result {
	previous := make(map[string]*domain.Alert, len(prev))
	for i := range prev {
		previous[prev[i].ID] = &prev[i]
	}

	var (
		merged = make([]domain.Alert, 0, len(fetched))
		seen   = make(map[string]struct{}, len(fetched))
		echoes = make(map[echoKey]int, len(fetched))
		fresh  []int
	)

	for i := range fetched {
		a := *fetched[i].Clone()
		if _, dup := seen[a.ID]; dup {
			continue
		}

		seen[a.ID] = struct{}{}
		a.Local = false
		key := keyOf(&a)

		if p, ok := previous[a.ID]; ok {
			carryForward(&a, p)
			carryTransition(&a, p)
		} else {
			fresh = append(fresh, len(merged))
		}

		if _, ok := echoes[key]; !ok {
			echoes[key] = len(merged)
		}

		merged = append(merged, a)
	}

	echoed := make(map[int]struct{})

	for i := range prev {
		p := &prev[i]
		if !p.Local {
			continue
		}

		if _, ok := seen[p.ID]; ok {
			continue
		}

		if idx, ok := echoes[originKeyOf(p)]; ok && p.DeclarationID != "" {
			carryForward(&merged[idx], p)
			carryTransition(&merged[idx], p)
			echoed[idx] = struct{}{}

			continue
		}

		merged = append(merged, *p.Clone())
	}

	result := Result{Merged: merged}
	for _, idx := range fresh {
		if _, ok := echoed[idx]; ok {
			continue
		}

		result.Fresh = append(result.Fresh, *merged[idx].Clone())
	}

	return result
}

// carryForward keeps local-only state of p on the merged alert a.
func carryForward(a, p *domain.Alert) {
	if p.Status.Rank() > a.Status.Rank() {
		a.Status = p.Status
		a.ReadAt = cloneTime(p.ReadAt)
	} else if a.ReadAt == nil && a.Status.Rank() >= domain.StatusRead.Rank() {
		a.ReadAt = cloneTime(p.ReadAt)
	}

	if !p.CreatedAt.IsZero() && !p.Local {
		a.CreatedAt = p.CreatedAt
	}
}

// carryTransition keeps the lifecycle events applied locally to p while the
// remote still reports the event p started from.
func carryTransition(a, p *domain.Alert) {
	if p.OriginType == "" || p.Type == p.OriginType || a.Type != p.OriginType {
		return
	}

	a.OriginType = p.OriginType
	a.Type = p.Type
	a.Priority = p.Priority
	a.Title = p.Title
	a.Message = p.Message

	if p.AssignedTechnicianName != "" {
		a.AssignedTechnicianName = p.AssignedTechnicianName
	}
}

// echoKey identifies the event an alert narrates.
type echoKey struct {
	declarationID string
	alertType     domain.Type
}

func keyOf(a *domain.Alert) echoKey {
	return echoKey{
		declarationID: a.DeclarationID,
		alertType:     a.Type,
	}
}

// originKeyOf keys a local alert by the event it was created for.
func originKeyOf(a *domain.Alert) echoKey {
	key := keyOf(a)
	if a.OriginType != "" {
		key.alertType = a.OriginType
	}

	return key
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	cloned := *t

	return &cloned
}
