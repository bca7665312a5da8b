package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// fixedNormalizer returns a normalizer with a frozen clock.
func fixedNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(nil)
	n.now = func() time.Time { return now }

	return n
}

// TestNormalize_SnakeAndCamelCase accepts both naming styles for every field.
func TestNormalize_SnakeAndCamelCase(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)

	snake := n.Normalize(map[string]any{
		"id":                       "a-1",
		"alert_type":               "technician_assigned",
		"priority":                 "HIGH",
		"declaration_id":           "d-1",
		"ticket_number":            "T-100",
		"workstation_name":         "Press 4",
		"line_name":                "L2",
		"machine_name":             "Hydraulic press",
		"zone_name":                "Stamping",
		"declared_by_name":         "Ana",
		"assigned_technician_name": "Bo",
		"created_at":               "2026-03-01T06:00:00Z",
	})

	camel := n.Normalize(map[string]any{
		"id":                     "a-1",
		"alertType":              "technician_assigned",
		"priority":               "high",
		"declarationId":          "d-1",
		"ticketNumber":           "T-100",
		"workstationName":        "Press 4",
		"lineName":               "L2",
		"machineName":            "Hydraulic press",
		"zoneName":               "Stamping",
		"declaredByName":         "Ana",
		"assignedTechnicianName": "Bo",
		"createdAt":              "2026-03-01T06:00:00Z",
	})

	require.Equal(t, snake, camel)
	require.Equal(t, domain.TypeTechnicianAssigned, snake.Type)
	require.Equal(t, domain.PriorityHigh, snake.Priority)
	require.Equal(t, domain.StatusUnread, snake.Status)
	require.Equal(t, "Technician assigned", snake.Title)
	require.Contains(t, snake.Message, "Press 4")
}

// TestNormalize_Nested resolves nested objects through dotted aliases.
func TestNormalize_Nested(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)

	a := n.Normalize(map[string]any{
		"id": "a-2",
		"declaration": map[string]any{
			"id":            "d-7",
			"ticket_number": "T-7",
			"workstation":   map[string]any{"name": "Lathe 1"},
			"zone":          map[string]any{"name": "Machining"},
			"declared_by":   map[string]any{"full_name": "Cy"},
		},
		"assigned_technician": map[string]any{"full_name": "Di"},
	})

	require.Equal(t, "d-7", a.DeclarationID)
	require.Equal(t, "T-7", a.TicketNumber)
	require.Equal(t, "Lathe 1", a.WorkstationName)
	require.Equal(t, "Machining", a.ZoneName)
	require.Equal(t, "Cy", a.DeclaredByName)
	require.Equal(t, "Di", a.AssignedTechnicianName)
}

// TestNormalize_Defaults fills priority, status, type and timestamps.
func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)

	a := n.Normalize(map[string]any{"id": "a-3", "type": "exploded"})
	require.Equal(t, domain.PriorityMedium, a.Priority)
	require.Equal(t, domain.StatusUnread, a.Status)
	require.Equal(t, domain.TypeNewDowntime, a.Type)
	require.Equal(t, now, a.CreatedAt)
	require.Nil(t, a.ReadAt)

	a = n.Normalize(map[string]any{"id": "a-4", "isNew": false})
	require.Equal(t, domain.StatusRead, a.Status)

	a = n.Normalize(map[string]any{"id": "a-5", "read": true, "read_at": "2026-03-01 06:10:00"})
	require.Equal(t, domain.StatusRead, a.Status)
	require.Equal(t, now.Add(10*time.Minute), *a.ReadAt)

	a = n.Normalize(map[string]any{"id": "a-6", "status": "dismissed", "is_new": true})
	require.Equal(t, domain.StatusDismissed, a.Status)

	a = n.Normalize(map[string]any{"id": "a-7", "title": "Custom", "message": "Body"})
	require.Equal(t, "Custom", a.Title)
	require.Equal(t, "Body", a.Message)
}

// TestNormalize_SynthesizedID checks that missing ids are deterministic.
func TestNormalize_SynthesizedID(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	record := map[string]any{
		"declaration_id": "d-1",
		"type":           "acknowledged",
		"created_at":     "2026-03-01T06:00:00Z",
	}

	first := n.Normalize(record)
	second := n.Normalize(record)
	require.NotEmpty(t, first.ID)
	require.Equal(t, first.ID, second.ID)

	record["type"] = "resolved"
	require.NotEqual(t, first.ID, n.Normalize(record).ID)

	orphanA := n.Normalize(map[string]any{"message": "a"})
	orphanB := n.Normalize(map[string]any{"message": "b"})
	require.NotEqual(t, orphanA.ID, orphanB.ID)
}

// TestNormalize_CustomAlias lets new aliases be added without code changes.
func TestNormalize_CustomAlias(t *testing.T) {
	t.Parallel()

	aliases := DefaultAliases()
	aliases.Add(FieldWorkstationName, "poste.nom")

	n := NewNormalizer(aliases)
	a := n.Normalize(map[string]any{"id": "a-1", "poste": map[string]any{"nom": "Four 2"}})
	require.Equal(t, "Four 2", a.WorkstationName)
}

// TestDecodeFeed accepts arrays and envelopes and skips malformed records.
func TestDecodeFeed(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)

	alerts, err := n.DecodeFeed([]byte(`[{"id": 12}, "garbage", {"alert_id": "b"}]`))
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, "12", alerts[0].ID)
	require.Equal(t, "b", alerts[1].ID)

	alerts, err = n.DecodeFeed([]byte(`{"alerts": [{"id": "x", "created_at": 1772344800}]}`))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), alerts[0].CreatedAt)

	alerts, err = n.DecodeFeed([]byte(`{"results": [{"id": "y", "created_at": 1772344800000}]}`))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), alerts[0].CreatedAt)

	alerts, err = n.DecodeFeed([]byte(`null`))
	require.NoError(t, err)
	require.Empty(t, alerts)

	_, err = n.DecodeFeed([]byte(`{"count": 3}`))
	require.ErrorIs(t, err, errUnexpectedFeed)

	_, err = n.DecodeFeed([]byte(`{`))
	require.Error(t, err)
}
