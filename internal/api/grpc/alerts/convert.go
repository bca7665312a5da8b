package alerts

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// Struct keys shared by server and client.
const (
	keyAlerts          = "alerts"
	keyView            = "view"
	keyPriority        = "priority"
	keyDeclarationID   = "declarationId"
	keyEvent           = "event"
	keyTechnician      = "technician"
	keyConnected       = "connected"
	keyPolling         = "polling"
	keyUnread          = "unread"
	keyPush            = "push"
	keyEndpoint        = "endpoint"
	keyTotal           = "total"
	keyCritical        = "critical"
	keyByType          = "byType"
	keyAvgResponseTime = "avgResponseTime"
)

// List views.
const (
	ViewAll      = "all"
	ViewVisible  = "visible"
	ViewCritical = "critical"
)

// Declaration lifecycle events.
const (
	EventTechnicianAssigned = "technician_assigned"
	EventWorkStarted        = "work_started"
	EventResolved           = "resolved"
	EventEscalated          = "escalated"
)

// alertToStruct encodes an alert.
func alertToStruct(a *domain.Alert) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":                     a.ID,
		"type":                   string(a.Type),
		"priority":               string(a.Priority),
		"status":                 string(a.Status),
		"title":                  a.Title,
		"message":                a.Message,
		"declarationId":          a.DeclarationID,
		"ticketNumber":           a.TicketNumber,
		"workstationName":        a.WorkstationName,
		"lineName":               a.LineName,
		"machineName":            a.MachineName,
		"zoneName":               a.ZoneName,
		"declaredByName":         a.DeclaredByName,
		"assignedTechnicianName": a.AssignedTechnicianName,
		"createdAt":              a.CreatedAt.UTC().Format(time.RFC3339Nano),
		"local":                  a.Local,
	}

	if a.ReadAt != nil {
		fields["readAt"] = a.ReadAt.UTC().Format(time.RFC3339Nano)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode alert %s: %w", a.ID, err)
	}

	return s, nil
}

// alertFromStruct decodes an alert.
func alertFromStruct(s *structpb.Struct) domain.Alert {
	a := domain.Alert{
		ID:                     stringField(s, "id"),
		Type:                   domain.Type(stringField(s, "type")),
		Priority:               domain.Priority(stringField(s, "priority")),
		Status:                 domain.Status(stringField(s, "status")),
		Title:                  stringField(s, "title"),
		Message:                stringField(s, "message"),
		DeclarationID:          stringField(s, "declarationId"),
		TicketNumber:           stringField(s, "ticketNumber"),
		WorkstationName:        stringField(s, "workstationName"),
		LineName:               stringField(s, "lineName"),
		MachineName:            stringField(s, "machineName"),
		ZoneName:               stringField(s, "zoneName"),
		DeclaredByName:         stringField(s, "declaredByName"),
		AssignedTechnicianName: stringField(s, "assignedTechnicianName"),
		Local:                  boolField(s, "local"),
	}

	if t, err := time.Parse(time.RFC3339Nano, stringField(s, "createdAt")); err == nil {
		a.CreatedAt = t
	}

	if t, err := time.Parse(time.RFC3339Nano, stringField(s, "readAt")); err == nil {
		a.ReadAt = &t
	}

	return a
}

// alertsToStruct encodes a list of alerts under the alerts key.
func alertsToStruct(alerts []domain.Alert) (*structpb.Struct, error) {
	values := make([]*structpb.Value, 0, len(alerts))

	for i := range alerts {
		s, err := alertToStruct(&alerts[i])
		if err != nil {
			return nil, err
		}

		values = append(values, structpb.NewStructValue(s))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			keyAlerts: structpb.NewListValue(&structpb.ListValue{Values: values}),
		},
	}, nil
}

// alertsFromStruct decodes the alerts key.
func alertsFromStruct(s *structpb.Struct) []domain.Alert {
	values := s.GetFields()[keyAlerts].GetListValue().GetValues()
	alerts := make([]domain.Alert, 0, len(values))

	for _, v := range values {
		if item := v.GetStructValue(); item != nil {
			alerts = append(alerts, alertFromStruct(item))
		}
	}

	return alerts
}

// declarationFromStruct decodes a declaration.
func declarationFromStruct(s *structpb.Struct) *domain.Declaration {
	return &domain.Declaration{
		ID:              stringField(s, "id"),
		TicketNumber:    stringField(s, "ticketNumber"),
		WorkstationName: stringField(s, "workstationName"),
		LineName:        stringField(s, "lineName"),
		MachineName:     stringField(s, "machineName"),
		ZoneName:        stringField(s, "zoneName"),
		DeclaredByName:  stringField(s, "declaredByName"),
		Priority:        domain.Priority(stringField(s, "priority")),
		Type:            domain.Type(stringField(s, "type")),
	}
}

// declarationToStruct encodes a declaration.
func declarationToStruct(d *domain.Declaration) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":              d.ID,
		"ticketNumber":    d.TicketNumber,
		"workstationName": d.WorkstationName,
		"lineName":        d.LineName,
		"machineName":     d.MachineName,
		"zoneName":        d.ZoneName,
		"declaredByName":  d.DeclaredByName,
		"priority":        string(d.Priority),
		"type":            string(d.Type),
	})
}

// statisticsToStruct encodes statistics.
func statisticsToStruct(stats *domain.Statistics) (*structpb.Struct, error) {
	byType := make(map[string]any, len(stats.ByType))
	for t, count := range stats.ByType {
		byType[string(t)] = count
	}

	return structpb.NewStruct(map[string]any{
		keyTotal:           stats.Total,
		keyUnread:          stats.Unread,
		keyCritical:        stats.Critical,
		keyByType:          byType,
		keyAvgResponseTime: stats.AvgResponseTime,
	})
}

// statisticsFromStruct decodes statistics.
func statisticsFromStruct(s *structpb.Struct) domain.Statistics {
	stats := domain.Statistics{
		Total:           intField(s, keyTotal),
		Unread:          intField(s, keyUnread),
		Critical:        intField(s, keyCritical),
		AvgResponseTime: intField(s, keyAvgResponseTime),
		ByType:          make(map[domain.Type]int),
	}

	for t, v := range s.GetFields()[keyByType].GetStructValue().GetFields() {
		stats.ByType[domain.Type(t)] = int(v.GetNumberValue())
	}

	return stats
}

// preferencesToStruct encodes preferences.
func preferencesToStruct(p *domain.Preferences) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"enableSound":         p.EnableSound,
		"enableDesktop":       p.EnableDesktop,
		"enablePush":          p.EnablePush,
		"autoRefreshInterval": p.AutoRefreshInterval,
		"showCriticalOnly":    p.ShowCriticalOnly,
		"zoneFilter":          stringsToAny(p.ZoneFilter),
		"lineFilter":          stringsToAny(p.LineFilter),
	})
}

// preferencesFromStruct decodes preferences.
func preferencesFromStruct(s *structpb.Struct) domain.Preferences {
	var p domain.Preferences

	applyPreferences(&p, s)

	return p
}

// applyPreferences overwrites the fields present in s.
func applyPreferences(p *domain.Preferences, s *structpb.Struct) {
	fields := s.GetFields()

	if v, ok := fields["enableSound"]; ok {
		p.EnableSound = v.GetBoolValue()
	}

	if v, ok := fields["enableDesktop"]; ok {
		p.EnableDesktop = v.GetBoolValue()
	}

	if v, ok := fields["enablePush"]; ok {
		p.EnablePush = v.GetBoolValue()
	}

	if v, ok := fields["autoRefreshInterval"]; ok {
		p.AutoRefreshInterval = int(v.GetNumberValue())
	}

	if v, ok := fields["showCriticalOnly"]; ok {
		p.ShowCriticalOnly = v.GetBoolValue()
	}

	if v, ok := fields["zoneFilter"]; ok {
		p.ZoneFilter = listStrings(v)
	}

	if v, ok := fields["lineFilter"]; ok {
		p.LineFilter = listStrings(v)
	}
}

// pushStateToStruct encodes the push state.
func pushStateToStruct(state *domain.PushState) map[string]any {
	fields := map[string]any{
		"isSupported":  state.IsSupported,
		"isSubscribed": state.IsSubscribed,
		"permission":   string(state.Permission),
		"error":        state.Error,
	}

	if state.Subscription != nil {
		fields[keyEndpoint] = state.Subscription.Endpoint
	}

	return fields
}

// pushStateFromStruct decodes the push state. Only the endpoint of the
// subscription is transferred.
func pushStateFromStruct(s *structpb.Struct) domain.PushState {
	state := domain.PushState{
		IsSupported:  boolField(s, "isSupported"),
		IsSubscribed: boolField(s, "isSubscribed"),
		Permission:   domain.ParsePermission(stringField(s, "permission")),
		Error:        stringField(s, "error"),
	}

	if endpoint := stringField(s, keyEndpoint); endpoint != "" {
		state.Subscription = &domain.Subscription{Endpoint: endpoint}
	}

	return state
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func intField(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}

	return out
}

func listStrings(v *structpb.Value) []string {
	values := v.GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, item := range values {
		out = append(out, item.GetStringValue())
	}

	return out
}
