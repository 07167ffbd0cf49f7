package interceptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// RelayedID is the X-Offline-Queued value when the record went through the
// relay and its id is assigned by the receiving store.
const RelayedID = "relayed"

// skippedHeaders are not captured with a queued mutation.
var skippedHeaders = map[string]bool{
	"Content-Length":    true,
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// api is network-first behind the breaker. Mutations that fail to reach the
// remote are captured and answered with 202.
func (i *Interceptor) api(req *http.Request) (*http.Response, error) {
	// Queue order follows issue time, not the time the failure surfaced.
	issued := i.now()
	c := i.cache(CacheAPI, cache.Policy{})

	var body []byte
	if domain.IsMutatingMethod(req.Method) && req.Body != nil && req.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	resp, err := i.breaker.Execute(func() (*http.Response, error) {
		out := req
		if body != nil {
			out = req.Clone(req.Context())
			out.Body = io.NopCloser(bytes.NewReader(body))
			out.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
			out.ContentLength = int64(len(body))
		}
		return i.fetch(out, i.cfg.APITimeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", domain.ErrNetworkUnreachable, err)
	}
	if err == nil {
		i.put(req, c, resp)
		return resp, nil
	}

	if domain.IsMutatingMethod(req.Method) {
		return i.capture(req, body, issued, err), nil
	}
	if hit := i.fallback(req, c); hit != nil {
		return hit, nil
	}
	return nil, err
}

// capture queues a mutation that could not be delivered. It never fails:
// a storage problem is reported to the user and in a response header.
func (i *Interceptor) capture(req *http.Request, body []byte, issued time.Time, cause error) *http.Response {
	ctx := req.Context()
	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		if skippedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		headers[k] = strings.Join(req.Header.Values(k), ", ")
	}
	m := domain.NewQueuedMutation(req.Header.Get(domain.MutationKindHeader), req.Method, req.URL.String(), body, headers)
	m.Timestamp = issued

	id, err := i.enqueue(req, m)
	if err != nil {
		i.metrics.Counter(observability.MetricQueueEnqueueError, 1)
		i.logger.ErrorContext(ctx, "failed to queue offline mutation",
			"method", m.Method, "url", req.URL.Redacted(), "cause", cause, "error", err)
		i.emitter.Toast(ctx, messages.ToastQueueFailed, messages.ToastWarning)
		return synthesize(req, http.StatusAccepted,
			http.Header{domain.OfflineQueueErrorHeader: []string{err.Error()}},
			`{"queued":false}`)
	}

	i.logger.InfoContext(ctx, "mutation queued for replay",
		"id", id, "kind", m.Kind, "method", m.Method, "url", req.URL.Redacted(), "cause", cause)
	raw, _ := json.Marshal(map[string]any{"queued": true, "id": id})
	return synthesize(req, http.StatusAccepted, http.Header{domain.OfflineQueuedHeader: []string{id}}, string(raw))
}

func (i *Interceptor) enqueue(req *http.Request, m *domain.QueuedMutation) (string, error) {
	ctx := req.Context()
	switch {
	case i.store != nil:
		id, err := i.store.Enqueue(ctx, m)
		if err != nil {
			return "", err
		}
		i.metrics.Counter(observability.MetricQueueEnqueued, 1, observability.T("kind", m.Kind))
		i.emitter.RequestQueued(ctx, m.Method, m.URL, id)
		return strconv.FormatInt(id, 10), nil
	case i.relay != nil:
		if err := i.relay.Relay(ctx, m); err != nil {
			return "", fmt.Errorf("relay: %w", err)
		}
		i.metrics.Counter(observability.MetricQueueRelayed, 1, observability.T("kind", m.Kind))
		return RelayedID, nil
	default:
		return "", fmt.Errorf("%w: no queue configured", domain.ErrStorageUnavailable)
	}
}

// synthesize builds a local response to req.
func synthesize(req *http.Request, status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	if header.Get("Content-Type") == "" && strings.HasPrefix(body, "{") {
		header.Set("Content-Type", "application/json")
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
