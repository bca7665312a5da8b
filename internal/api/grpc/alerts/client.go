package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/downtime-alerts/internal/config"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// Client wraps the control surface with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the agent.
	conn *grpc.ClientConn
	// dialOptions are appended to the default dial options.
	dialOptions []grpc.DialOption

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
}

// Status is the agent status as seen by the client.
type Status struct {
	// Connected reports whether the feed is reachable.
	Connected bool
	// Polling reports whether the scheduler runs.
	Polling bool
	// Unread is the number of unread alerts.
	Unread int
	// Push is the push subscription state.
	Push domain.PushState
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions appends gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// errAddressRequired is returned when the agent address is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial connects to the agent control surface. The control surface is bound
// to the loopback interface, so transport credentials are not used.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	client.conn = conn

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ListAlerts returns the alerts of a view, optionally narrowed to a priority.
func (c *Client) ListAlerts(ctx context.Context, view string, priority domain.Priority) ([]domain.Alert, error) {
	request, err := structpb.NewStruct(map[string]any{
		keyView:     view,
		keyPriority: string(priority),
	})
	if err != nil {
		return nil, fmt.Errorf("encode list request: %w", err)
	}

	response := new(structpb.Struct)
	if err = c.invoke(ctx, methodListAlerts, request, response); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return alertsFromStruct(response), nil
}

// MarkAsRead marks one alert read.
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	if err := c.invoke(ctx, methodMarkAsRead, wrapperspb.String(id), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}

	return nil
}

// MarkAllAsRead marks every alert read and returns how many changed.
func (c *Client) MarkAllAsRead(ctx context.Context) (int, error) {
	response := new(wrapperspb.Int32Value)
	if err := c.invoke(ctx, methodMarkAllAsRead, new(emptypb.Empty), response); err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}

	return int(response.GetValue()), nil
}

// DismissAlert hides one alert.
func (c *Client) DismissAlert(ctx context.Context, id string) error {
	if err := c.invoke(ctx, methodDismissAlert, wrapperspb.String(id), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}

	return nil
}

// ClearDismissed purges dismissed alerts and returns how many were removed.
func (c *Client) ClearDismissed(ctx context.Context) (int, error) {
	response := new(wrapperspb.Int32Value)
	if err := c.invoke(ctx, methodClearDismissed, new(emptypb.Empty), response); err != nil {
		return 0, fmt.Errorf("clear dismissed alerts: %w", err)
	}

	return int(response.GetValue()), nil
}

// CreateAlert surfaces a downtime alert for a declaration made on this device.
func (c *Client) CreateAlert(ctx context.Context, d *domain.Declaration) (domain.Alert, error) {
	request, err := declarationToStruct(d)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("encode declaration: %w", err)
	}

	response := new(structpb.Struct)
	if err = c.invoke(ctx, methodCreateAlert, request, response); err != nil {
		return domain.Alert{}, fmt.Errorf("create alert: %w", err)
	}

	return alertFromStruct(response), nil
}

// UpdateDeclaration applies a lifecycle event and returns how many alerts changed.
func (c *Client) UpdateDeclaration(ctx context.Context, declarationID, event, technician string) (int, error) {
	request, err := structpb.NewStruct(map[string]any{
		keyDeclarationID: declarationID,
		keyEvent:         event,
		keyTechnician:    technician,
	})
	if err != nil {
		return 0, fmt.Errorf("encode declaration update: %w", err)
	}

	response := new(wrapperspb.Int32Value)
	if err = c.invoke(ctx, methodUpdateDeclaration, request, response); err != nil {
		return 0, fmt.Errorf("update declaration: %w", err)
	}

	return int(response.GetValue()), nil
}

// Statistics returns the working set statistics.
func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	response := new(structpb.Struct)
	if err := c.invoke(ctx, methodGetStatistics, new(emptypb.Empty), response); err != nil {
		return domain.Statistics{}, fmt.Errorf("get statistics: %w", err)
	}

	return statisticsFromStruct(response), nil
}

// Status returns connectivity, polling and push state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	response := new(structpb.Struct)
	if err := c.invoke(ctx, methodGetStatus, new(emptypb.Empty), response); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return &Status{
		Connected: boolField(response, keyConnected),
		Polling:   boolField(response, keyPolling),
		Unread:    intField(response, keyUnread),
		Push:      pushStateFromStruct(response.GetFields()[keyPush].GetStructValue()),
	}, nil
}

// Refresh asks the agent to poll the feed once.
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.invoke(ctx, methodRefresh, new(emptypb.Empty), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("refresh alerts: %w", err)
	}

	return nil
}

// Preferences returns the current preferences.
func (c *Client) Preferences(ctx context.Context) (domain.Preferences, error) {
	response := new(structpb.Struct)
	if err := c.invoke(ctx, methodGetPreferences, new(emptypb.Empty), response); err != nil {
		return domain.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	return preferencesFromStruct(response), nil
}

// UpdatePreferences applies the given fields and returns the result. Keys
// follow the JSON names of domain.Preferences.
func (c *Client) UpdatePreferences(ctx context.Context, fields map[string]any) (domain.Preferences, error) {
	request, err := structpb.NewStruct(fields)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("encode preferences: %w", err)
	}

	response := new(structpb.Struct)
	if err = c.invoke(ctx, methodUpdatePreferences, request, response); err != nil {
		return domain.Preferences{}, fmt.Errorf("update preferences: %w", err)
	}

	return preferencesFromStruct(response), nil
}

// WatchAlerts calls fn for every newly arrived alert until ctx is canceled,
// the agent closes the stream or fn returns an error.
func (c *Client) WatchAlerts(ctx context.Context, fn func(domain.Alert) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod(methodWatchAlerts))
	if err != nil {
		return fmt.Errorf("watch alerts: %w", err)
	}

	if err = stream.SendMsg(new(emptypb.Empty)); err != nil {
		return fmt.Errorf("watch alerts: %w", err)
	}

	if err = stream.CloseSend(); err != nil {
		return fmt.Errorf("watch alerts: %w", err)
	}

	for {
		message := new(structpb.Struct)

		err = stream.RecvMsg(message)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("watch alerts: %w", err)
		}

		if err = fn(alertFromStruct(message)); err != nil {
			return err
		}
	}
}

// PushSubscribe subscribes the agent's device to push notifications.
func (c *Client) PushSubscribe(ctx context.Context, employeeID string) (domain.PushState, error) {
	response := new(structpb.Struct)
	if err := c.invoke(ctx, methodPushSubscribe, wrapperspb.String(employeeID), response); err != nil {
		return domain.PushState{}, fmt.Errorf("push subscribe: %w", err)
	}

	return pushStateFromStruct(response), nil
}

// PushUnsubscribe drops the push subscription.
func (c *Client) PushUnsubscribe(ctx context.Context) (bool, error) {
	response := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, methodPushUnsubscribe, new(emptypb.Empty), response); err != nil {
		return false, fmt.Errorf("push unsubscribe: %w", err)
	}

	return response.GetValue(), nil
}

// PushTest asks the backend to push a test message.
func (c *Client) PushTest(ctx context.Context) (bool, error) {
	response := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, methodPushTest, new(emptypb.Empty), response); err != nil {
		return false, fmt.Errorf("push test: %w", err)
	}

	return response.GetValue(), nil
}

// invoke performs a unary call bounded by the call timeout.
func (c *Client) invoke(ctx context.Context, method string, request, response any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.conn.Invoke(callCtx, fullMethod(method), request, response)
}

// callContext returns a context with the default call timeout applied when
// the caller did not set a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}

	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
