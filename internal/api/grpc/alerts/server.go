package alerts

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
)

// Store abstracts the alert operations the transport depends on.
type Store interface {
	Alerts() []domain.Alert
	VisibleAlerts() []domain.Alert
	CriticalAlerts() []domain.Alert
	AlertsByPriority(priority domain.Priority) []domain.Alert
	UnreadCount() int
	Connected() bool
	Polling() bool
	Statistics() domain.Statistics
	PushState() domain.PushState
	Subscribe() (<-chan domain.Alert, func())
	Refresh(ctx context.Context) error
	MarkAsRead(ctx context.Context, id string) bool
	MarkAllAsRead(ctx context.Context) int
	DismissAlert(ctx context.Context, id string) bool
	ClearDismissed(ctx context.Context) int
	CreateDowntimeAlert(ctx context.Context, d *domain.Declaration) domain.Alert
	NotifyTechnicianAssigned(ctx context.Context, declarationID, technicianName string) int
	NotifyWorkStarted(ctx context.Context, declarationID string) int
	NotifyResolved(ctx context.Context, declarationID string) int
	NotifyEscalated(ctx context.Context, declarationID string) int
}

// Preferences abstracts the preference operations the transport depends on.
type Preferences interface {
	Get() domain.Preferences
	Update(ctx context.Context, fn func(*domain.Preferences)) domain.Preferences
}

// Push abstracts the push subscription operations the transport depends on.
type Push interface {
	Subscribe(ctx context.Context, employeeID string) *domain.Subscription
	Unsubscribe(ctx context.Context) bool
	SendTestNotification(ctx context.Context) bool
	State() domain.PushState
}

// Server implements AlertServiceServer.
type Server struct {
	// store provides the alert operations.
	store Store
	// prefs provides the preference operations.
	prefs Preferences
	// push provides the push operations, may be nil.
	push Push
}

var _ AlertServiceServer = (*Server)(nil)

// NewServer wires the provided services into a gRPC handler.
func NewServer(store Store, prefs Preferences, push Push) *Server {
	return &Server{
		store: store,
		prefs: prefs,
		push:  push,
	}
}

// Register registers the server on a gRPC server.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	RegisterAlertServiceServer(registrar, s)
}

// ListAlerts returns the alerts of the requested view, optionally narrowed to a priority.
func (s *Server) ListAlerts(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	priority := domain.Priority(stringField(req, keyPriority))
	if priority != "" && domain.ParsePriority(string(priority)) != priority {
		return nil, status.Errorf(codes.InvalidArgument, "unknown priority %q", priority)
	}

	var alerts []domain.Alert

	switch view := stringField(req, keyView); {
	case (view == "" || view == ViewAll) && priority != "":
		alerts = s.store.AlertsByPriority(priority)
	case view == "" || view == ViewAll:
		alerts = s.store.Alerts()
	case view == ViewVisible:
		alerts = byPriority(s.store.VisibleAlerts(), priority)
	case view == ViewCritical:
		alerts = byPriority(s.store.CriticalAlerts(), priority)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown view %q", view)
	}

	response, err := alertsToStruct(alerts)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// MarkAsRead marks one alert read.
func (s *Server) MarkAsRead(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	if !s.store.MarkAsRead(ctx, id) {
		return nil, status.Errorf(codes.NotFound, "alert %q not found", id)
	}

	return new(emptypb.Empty), nil
}

// MarkAllAsRead marks every alert read.
func (s *Server) MarkAllAsRead(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int32Value, error) {
	return wrapperspb.Int32(int32(s.store.MarkAllAsRead(ctx))), nil //nolint:gosec // Bounded by the working set.
}

// DismissAlert hides one alert.
func (s *Server) DismissAlert(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	if !s.store.DismissAlert(ctx, id) {
		return nil, status.Errorf(codes.NotFound, "alert %q not found", id)
	}

	return new(emptypb.Empty), nil
}

// ClearDismissed purges dismissed alerts.
func (s *Server) ClearDismissed(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int32Value, error) {
	return wrapperspb.Int32(int32(s.store.ClearDismissed(ctx))), nil //nolint:gosec // Bounded by the working set.
}

// CreateAlert surfaces a downtime alert declared on this device.
func (s *Server) CreateAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "declaration is required")
	}

	declaration := declarationFromStruct(req)
	if declaration.Type != "" && !declaration.Type.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown alert type %q", declaration.Type)
	}

	created := s.store.CreateDowntimeAlert(ctx, declaration)

	response, err := alertToStruct(&created)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// UpdateDeclaration applies a lifecycle event to the alerts of a declaration.
func (s *Server) UpdateDeclaration(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int32Value, error) {
	declarationID := stringField(req, keyDeclarationID)
	if declarationID == "" {
		return nil, status.Error(codes.InvalidArgument, "declaration id is required")
	}

	var updated int

	switch event := stringField(req, keyEvent); event {
	case EventTechnicianAssigned:
		updated = s.store.NotifyTechnicianAssigned(ctx, declarationID, stringField(req, keyTechnician))
	case EventWorkStarted:
		updated = s.store.NotifyWorkStarted(ctx, declarationID)
	case EventResolved:
		updated = s.store.NotifyResolved(ctx, declarationID)
	case EventEscalated:
		updated = s.store.NotifyEscalated(ctx, declarationID)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown event %q", event)
	}

	return wrapperspb.Int32(int32(updated)), nil //nolint:gosec // Bounded by the working set.
}

// GetStatistics returns the working set statistics.
func (s *Server) GetStatistics(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.store.Statistics()

	response, err := statisticsToStruct(&stats)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// GetStatus returns connectivity, polling and push state.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	push := s.pushState()

	response, err := structpb.NewStruct(map[string]any{
		keyConnected: s.store.Connected(),
		keyPolling:   s.store.Polling(),
		keyUnread:    s.store.UnreadCount(),
		keyPush:      pushStateToStruct(&push),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// Refresh polls the feed once.
func (s *Server) Refresh(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.store.Refresh(ctx); err != nil {
		return nil, status.Errorf(codes.Unavailable, "refresh alerts: %v", err)
	}

	return new(emptypb.Empty), nil
}

// GetPreferences returns the current preferences.
func (s *Server) GetPreferences(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	prefs := s.prefs.Get()

	response, err := preferencesToStruct(&prefs)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// UpdatePreferences applies the fields present in the request.
func (s *Server) UpdatePreferences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	prefs := s.prefs.Update(ctx, func(p *domain.Preferences) {
		applyPreferences(p, req)
	})

	response, err := preferencesToStruct(&prefs)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// WatchAlerts streams newly arrived alerts until the client goes away.
func (s *Server) WatchAlerts(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	events, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case a, ok := <-events:
			if !ok {
				return nil
			}

			message, err := alertToStruct(&a)
			if err != nil {
				logger.WarnKV(ctx, "Skipping unencodable alert", "alert_id", a.ID, "error", err)
				continue
			}

			if err = stream.Send(message); err != nil {
				return err
			}
		}
	}
}

// PushSubscribe subscribes this device to push notifications.
func (s *Server) PushSubscribe(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.push == nil {
		return nil, status.Error(codes.Unimplemented, "push is not configured")
	}

	if s.push.Subscribe(ctx, req.GetValue()) == nil {
		state := s.push.State()
		return nil, status.Errorf(codes.FailedPrecondition, "push subscribe failed: %s", pushError(&state))
	}

	state := s.push.State()

	response, err := structpb.NewStruct(pushStateToStruct(&state))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}

// PushUnsubscribe drops the push subscription of this device.
func (s *Server) PushUnsubscribe(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	if s.push == nil {
		return wrapperspb.Bool(false), nil
	}

	return wrapperspb.Bool(s.push.Unsubscribe(ctx)), nil
}

// PushTest asks the backend to push a test message to this device.
func (s *Server) PushTest(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	if s.push == nil {
		return wrapperspb.Bool(false), nil
	}

	return wrapperspb.Bool(s.push.SendTestNotification(ctx)), nil
}

func (s *Server) pushState() domain.PushState {
	if s.push == nil {
		return s.store.PushState()
	}

	return s.push.State()
}

func requireID(req *wrapperspb.StringValue) (string, error) {
	if req.GetValue() == "" {
		return "", status.Error(codes.InvalidArgument, "alert id is required")
	}

	return req.GetValue(), nil
}

func pushError(state *domain.PushState) string {
	switch {
	case state.Error != "":
		return state.Error
	case !state.IsSupported:
		return "push is not supported on this device"
	default:
		return "unknown error"
	}
}

// byPriority keeps the alerts of priority, or all of them when it is empty.
func byPriority(alerts []domain.Alert, priority domain.Priority) []domain.Alert {
	if priority == "" {
		return alerts
	}

	filtered := make([]domain.Alert, 0, len(alerts))

	for i := range alerts {
		if alerts[i].Priority == priority {
			filtered = append(filtered, alerts[i])
		}
	}

	return filtered
}
