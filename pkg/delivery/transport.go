package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// Transport carries batches to the collector. Implementations must be safe
// for concurrent use; the queue may have several sends in flight.
type Transport interface {
	CreateSession(ctx context.Context, req types.SessionRequest) (*types.SessionResponse, error)
	SendEvents(ctx context.Context, req types.EventsRequest) (*types.EventsResponse, error)
}

// HTTPTransport implements Transport over the collector's JSON HTTP
// interface: POST /session and POST /events.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport creates a transport for the given collector base URL
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		base:   strings.TrimRight(endpoint, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// CreateSession calls POST /session
func (t *HTTPTransport) CreateSession(ctx context.Context, req types.SessionRequest) (*types.SessionResponse, error) {
	var resp types.SessionResponse
	if err := t.post(ctx, "/session", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendEvents calls POST /events
func (t *HTTPTransport) SendEvents(ctx context.Context, req types.EventsRequest) (*types.EventsResponse, error) {
	var resp types.EventsResponse
	if err := t.post(ctx, "/events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *HTTPTransport) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return fmt.Errorf("collector returned status %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
