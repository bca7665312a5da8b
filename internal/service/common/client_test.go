//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// recordedRequest is what the fake backend saw.
type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

// requestLog collects requests seen by the fake backend.
type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, r)
}

func (l *requestLog) at(i int) recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.requests[i]
}

// newBackend starts a fake maintenance API answering with the given handler map.
func newBackend(
	t *testing.T,
	routes map[string]func(w http.ResponseWriter),
) (*httptest.Server, *requestLog) {
	t.Helper()

	seen := new(requestLog)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			auth:   r.Header.Get("Authorization"),
		}

		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}

		seen.add(rec)

		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		handler(w)
	}))

	t.Cleanup(srv.Close)

	return srv, seen
}

// TestNewClient_ValidatesAddress verifies that NewClient rejects empty addresses.
func TestNewClient_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := NewClient("")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_FetchAlerts returns the raw feed and sends the bearer token.
func TestClient_FetchAlerts(t *testing.T) {
	t.Parallel()

	srv, seen := newBackend(t, map[string]func(w http.ResponseWriter){
		"GET /api/maintenance/declarations/alerts/": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"alerts":[{"id":"a-1"}]}`))
		},
	})

	c, err := NewClient(srv.URL+"/api/", WithToken("secret"))
	require.NoError(t, err)

	body, err := c.FetchAlerts(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `{"alerts":[{"id":"a-1"}]}`, string(body))
	require.Equal(t, "Bearer secret", seen.at(0).auth)
}

// TestClient_FetchAlerts_Errors covers server errors and invalid bodies.
func TestClient_FetchAlerts_Errors(t *testing.T) {
	t.Parallel()

	srv, _ := newBackend(t, map[string]func(w http.ResponseWriter){
		"GET /broken/maintenance/declarations/alerts/": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"GET /garbage/maintenance/declarations/alerts/": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`<html>`))
		},
	})

	c, err := NewClient(srv.URL + "/broken/")
	require.NoError(t, err)

	_, err = c.FetchAlerts(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.False(t, IsUnavailable(err))

	c, err = NewClient(srv.URL + "/garbage/")
	require.NoError(t, err)

	_, err = c.FetchAlerts(context.Background())
	require.Error(t, err)
}

// TestClient_PushEndpoints checks request bodies of the push endpoints.
func TestClient_PushEndpoints(t *testing.T) {
	t.Parallel()

	srv, seen := newBackend(t, map[string]func(w http.ResponseWriter){
		"GET /maintenance/push/vapid-public-key": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"publicKey":"BKey"}`))
		},
		"POST /maintenance/push/subscribe": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusCreated)
		},
		"POST /maintenance/push/unsubscribe": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNoContent)
		},
		"POST /maintenance/push/test": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		},
	})

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()

	key, err := c.VAPIDPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "BKey", key)

	sub := &domain.Subscription{
		Endpoint: "https://push.local/1",
		Keys:     domain.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}

	require.NoError(t, c.RegisterSubscription(ctx, sub, "42", "op@host"))
	require.NoError(t, c.UnregisterSubscription(ctx, sub.Endpoint))

	status, err := c.SendTestPush(ctx, sub.Endpoint)
	require.NoError(t, err)
	require.Equal(t, "sent", status)

	subscribe := seen.at(1)
	require.Equal(t, "https://push.local/1", subscribe.body["endpoint"])
	require.Equal(t, "42", subscribe.body["employee_id"])
	require.Equal(t, "op@host", subscribe.body["device_name"])
	require.Equal(t, map[string]any{"p256dh": "p", "auth": "a"}, subscribe.body["keys"])

	require.Equal(t, "https://push.local/1", seen.at(2).body["endpoint"])
}

// TestClient_SendAlert_Unavailable recognises a missing fan-out endpoint.
func TestClient_SendAlert_Unavailable(t *testing.T) {
	t.Parallel()

	srv, seen := newBackend(t, nil)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = c.SendAlert(context.Background(), &domain.Alert{
		DeclarationID: "d-9",
		Type:          domain.TypeNewDowntime,
		Priority:      domain.PriorityHigh,
	})
	require.True(t, IsUnavailable(err))
	require.Equal(t, "d-9", seen.at(0).body["declaration_id"])
	require.Equal(t, "new_downtime", seen.at(0).body["alert_type"])
	require.Equal(t, "high", seen.at(0).body["priority"])

	require.NoError(t, func() error {
		err := c.MarkRead(context.Background(), "a/1")
		if IsUnavailable(err) {
			return nil
		}

		return err
	}())
	require.Equal(t, "/maintenance/alerts/a%2F1/read", seen.at(1).path)
}
