//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/downtime-alerts/internal/config"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/version"
)

// Endpoint paths, relative to the API base URL.
const (
	PathAlerts         = "maintenance/declarations/alerts/"
	PathMarkAllRead    = "maintenance/alerts/mark-all-read"
	PathSendAlert      = "maintenance/declarations/send_alert/"
	PathVAPIDPublicKey = "maintenance/push/vapid-public-key"
	PathPushSubscribe  = "maintenance/push/subscribe"
	PathPushUnsub      = "maintenance/push/unsubscribe"
	PathPushTest       = "maintenance/push/test"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Client wraps the maintenance REST API with convenience helpers.
type Client struct {
	// baseURL is the API root every path is resolved against.
	baseURL *url.URL
	// httpClient performs the requests.
	httpClient *http.Client
	// token is the optional bearer token.
	token string

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for API calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errAddressRequired is returned when the base URL is missing.
	errAddressRequired = errors.New("address must be provided")
	// errInvalidFeed is returned when the alert feed body is not JSON.
	errInvalidFeed = errors.New("invalid alert feed")
)

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errAddressRequired
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	client := &Client{
		baseURL:     parsed,
		httpClient:  new(http.Client),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// FetchAlerts returns the raw alert feed body. Decoding is left to the
// reconciler, which tolerates the feed's many shapes.
func (c *Client) FetchAlerts(ctx context.Context) (json.RawMessage, error) {
	var body json.RawMessage
	if err := c.do(ctx, http.MethodGet, PathAlerts, nil, &body); err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}

	if !json.Valid(body) {
		return nil, errInvalidFeed
	}

	return body, nil
}

// MarkRead records that an alert was read.
func (c *Client) MarkRead(ctx context.Context, alertID string) error {
	path := "maintenance/alerts/" + url.PathEscape(alertID) + "/read"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}

	return nil
}

// MarkAllRead records that every alert was read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, PathMarkAllRead, nil, nil); err != nil {
		return fmt.Errorf("mark all alerts read: %w", err)
	}

	return nil
}

// sendAlertRequest is the body of the fan-out endpoint.
type sendAlertRequest struct {
	DeclarationID string `json:"declaration_id"`
	AlertType     string `json:"alert_type"`
	Priority      string `json:"priority"`
}

// SendAlert fans a locally created alert out to the other consoles.
func (c *Client) SendAlert(ctx context.Context, a *domain.Alert) error {
	request := &sendAlertRequest{
		DeclarationID: a.DeclarationID,
		AlertType:     string(a.Type),
		Priority:      string(a.Priority),
	}

	if err := c.do(ctx, http.MethodPost, PathSendAlert, request, nil); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	return nil
}

// VAPIDPublicKey returns the server's VAPID public key.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var response struct {
		PublicKey string `json:"publicKey"`
	}

	if err := c.do(ctx, http.MethodGet, PathVAPIDPublicKey, nil, &response); err != nil {
		return "", fmt.Errorf("fetch vapid key: %w", err)
	}

	if response.PublicKey == "" {
		return "", fmt.Errorf("fetch vapid key: %w", errInvalidFeed)
	}

	return response.PublicKey, nil
}

// subscribeRequest is the body of the push subscribe endpoint.
type subscribeRequest struct {
	Endpoint   string                  `json:"endpoint"`
	Keys       domain.SubscriptionKeys `json:"keys"`
	EmployeeID string                  `json:"employee_id,omitempty"`
	DeviceName string                  `json:"device_name,omitempty"`
}

// RegisterSubscription registers a push subscription with the backend.
func (c *Client) RegisterSubscription(
	ctx context.Context,
	sub *domain.Subscription,
	employeeID string,
	deviceName string,
) error {
	request := &subscribeRequest{
		Endpoint:   sub.Endpoint,
		Keys:       sub.Keys,
		EmployeeID: employeeID,
		DeviceName: deviceName,
	}

	if err := c.do(ctx, http.MethodPost, PathPushSubscribe, request, nil); err != nil {
		return fmt.Errorf("register push subscription: %w", err)
	}

	return nil
}

// endpointRequest identifies a subscription by its endpoint.
type endpointRequest struct {
	Endpoint string `json:"endpoint"`
}

// UnregisterSubscription removes a push subscription from the backend.
func (c *Client) UnregisterSubscription(ctx context.Context, endpoint string) error {
	if err := c.do(ctx, http.MethodPost, PathPushUnsub, &endpointRequest{Endpoint: endpoint}, nil); err != nil {
		return fmt.Errorf("unregister push subscription: %w", err)
	}

	return nil
}

// SendTestPush asks the backend to push a test message to endpoint and
// returns the status it reports.
func (c *Client) SendTestPush(ctx context.Context, endpoint string) (string, error) {
	var response struct {
		Status string `json:"status"`
	}

	if err := c.do(ctx, http.MethodPost, PathPushTest, &endpointRequest{Endpoint: endpoint}, &response); err != nil {
		return "", fmt.Errorf("send test push: %w", err)
	}

	return response.Status, nil
}

// do builds the request, handles auth and JSON (de)serialization.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	endpoint, err := c.baseURL.Parse(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	var bodyReader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}

		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(callCtx, method, endpoint.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request %s %s: %w", method, path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}

		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err = json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response from %s %s: %w", method, path, err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
