// Package remote is the client of the hosted data store, a PostgREST API
// under /rest/v1. Mutations carry an X-Mutation-Kind header so that the
// interceptor can tag them if they end up queued.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/logmyjob/internal/auth"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// Resources.
const (
	ResourceDays     = "days"
	ResourceClients  = "clients"
	ResourceHolidays = "holidays"
	ResourceSettings = "user_settings"
)

// kindPrefix maps a resource to its mutation kind prefix.
var kindPrefix = map[string]string{
	ResourceDays:     "day",
	ResourceClients:  "client",
	ResourceHolidays: "holiday",
	ResourceSettings: "settings",
}

// QueuedError reports a mutation the interceptor accepted for later replay
// instead of delivering it. It matches ErrQueued.
type QueuedError struct {
	// ID is the queue id, or "relayed" when another process stores it.
	ID string
	// Failure is set when the capture itself failed; the change then only
	// exists in the caller's memory.
	Failure string
}

// ErrQueued is matched by every QueuedError.
var ErrQueued = errors.New("request queued for offline replay")

func (e *QueuedError) Error() string {
	if e.Failure != "" {
		return fmt.Sprintf("request accepted offline but not queued: %s", e.Failure)
	}
	return fmt.Sprintf("request queued for offline replay as %s", e.ID)
}

// Unwrap lets errors.Is match ErrQueued.
func (e *QueuedError) Unwrap() error { return ErrQueued }

// Client talks to the data store. Its http.Client normally uses the
// offline interceptor as transport.
type Client struct {
	baseURL string
	apiKey  string
	auth    auth.Provider
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL, apiKey string, provider auth.Provider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		auth:    provider,
		http:    httpClient,
	}
}

// ResourceURL is the endpoint of resource with an optional query.
func (c *Client) ResourceURL(resource string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + resource
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Headers returns the headers stamped on every request.
func (c *Client) Headers(ctx context.Context) (map[string]string, error) {
	h := map[string]string{
		"apikey": c.apiKey,
		"Prefer": "return=representation",
	}
	if c.auth != nil {
		token, err := c.auth.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		h["Authorization"] = "Bearer " + token
	}
	return h, nil
}

// List returns rows matching filter, a PostgREST query such as
// {"date": ["gte.2026-03-01"], "order": ["date.desc"]}.
func (c *Client) List(ctx context.Context, resource string, filter url.Values, out any) error {
	q := url.Values{"select": {"*"}}
	for k, v := range filter {
		q[k] = v
	}
	return c.do(ctx, http.MethodGet, resource, q, "", nil, out)
}

// Get loads one row by id.
func (c *Client) Get(ctx context.Context, resource, id string, out any) error {
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, resource, url.Values{"select": {"*"}, "id": {"eq." + id}}, "", nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", resource, id, domain.ErrNotFound)
	}
	return json.Unmarshal(rows[0], out)
}

// Create inserts fields and decodes the created rows into out.
func (c *Client) Create(ctx context.Context, resource string, fields any, out any) error {
	return c.do(ctx, http.MethodPost, resource, nil, kindPrefix[resource]+"-create", fields, out)
}

// Update patches the row with id.
func (c *Client) Update(ctx context.Context, resource, id string, fields any, out any) error {
	return c.do(ctx, http.MethodPatch, resource, url.Values{"id": {"eq." + id}}, kindPrefix[resource]+"-update", fields, out)
}

// Delete removes the row with id.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, resource, url.Values{"id": {"eq." + id}}, kindPrefix[resource]+"-delete", nil, nil)
}

// DeleteMany removes every row whose id is in ids.
func (c *Client) DeleteMany(ctx context.Context, resource string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{"id": {"in.(" + strings.Join(ids, ",") + ")"}}
	return c.do(ctx, http.MethodDelete, resource, q, kindPrefix[resource]+"-delete-many", nil, nil)
}

func (c *Client) do(ctx context.Context, method, resource string, query url.Values, kind string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", resource, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.ResourceURL(resource, query), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	headers, err := c.Headers(ctx)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if kind != "" {
		req.Header.Set(domain.MutationKindHeader, kind)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrNetworkUnreachable, method, resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		if id := resp.Header.Get(domain.OfflineQueuedHeader); id != "" {
			return &QueuedError{ID: id}
		}
		if failure := resp.Header.Get(domain.OfflineQueueErrorHeader); failure != "" {
			return &QueuedError{Failure: failure}
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", resource, err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s: status %d", domain.ErrNetworkUnreachable, method, resource, resp.StatusCode)
	default:
		return &domain.RejectedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}
