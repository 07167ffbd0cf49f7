// Package domain holds the records the offline layer persists and the
// errors it reports.
package domain

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mutation kinds. The kind is informational; replay never depends on it.
const (
	KindDayCreate      = "day-create"
	KindDayUpdate      = "day-update"
	KindDayDelete      = "day-delete"
	KindDayDeleteMany  = "day-delete-many"
	KindClientCreate   = "client-create"
	KindClientUpdate   = "client-update"
	KindClientDelete   = "client-delete"
	KindHolidayCreate  = "holiday-create"
	KindHolidayUpdate  = "holiday-update"
	KindHolidayDelete  = "holiday-delete"
	KindSettingsUpdate = "settings-update"
	KindRequest        = "request"
)

// Headers exchanged between the application and the interceptor.
const (
	// MutationKindHeader tags an outgoing mutation with its kind.
	MutationKindHeader = "X-Mutation-Kind"
	// OfflineQueuedHeader carries the queue id on a synthesized 202.
	OfflineQueuedHeader = "X-Offline-Queued"
	// OfflineQueueErrorHeader is set on a 202 whose capture failed.
	OfflineQueueErrorHeader = "X-Offline-Queue-Error"
	// OfflineCacheHeader marks a response served from cache after a failure.
	OfflineCacheHeader = "X-Offline-Cache"
)

// QueuedMutation is one pending network side effect captured while offline.
// Once stored it is never modified; successful replay deletes it.
type QueuedMutation struct {
	ID        int64             `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"type"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Body      []byte            `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`

	// DecodeErr is set by a store that loaded the row but could not decode
	// it, for example sealed headers without the right key. Such a record is
	// still listed so that it stays visible, but it cannot be replayed.
	DecodeErr error `json:"-"`
}

// NewQueuedMutation builds an unsaved record. The store assigns ID and,
// when zero, Timestamp.
func NewQueuedMutation(kind, method, rawURL string, body []byte, headers map[string]string) *QueuedMutation {
	if kind == "" {
		kind = KindRequest
	}
	var raw []byte
	if len(body) > 0 {
		raw = append([]byte(nil), body...)
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &QueuedMutation{
		Kind:    kind,
		Method:  strings.ToUpper(method),
		URL:     rawURL,
		Body:    raw,
		Headers: h,
	}
}

// IsMutatingMethod reports whether method changes remote state and is
// therefore eligible for queueing.
func IsMutatingMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Validate checks that the record can be replayed.
func (m *QueuedMutation) Validate() error {
	if m.DecodeErr != nil {
		return Malformed("record %d: %v", m.ID, m.DecodeErr)
	}
	if !IsMutatingMethod(m.Method) {
		return Malformed("record %d: unsupported method %q", m.ID, m.Method)
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return Malformed("record %d: %v", m.ID, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Malformed("record %d: url %q is not absolute", m.ID, m.URL)
	}
	return nil
}

// Request rebuilds the exact captured request.
func (m *QueuedMutation) Request(ctx context.Context) (*http.Request, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, m.Method, m.URL, bytes.NewReader(m.Body))
	if err != nil {
		return nil, Malformed("record %d: %v", m.ID, err)
	}
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	if len(m.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
