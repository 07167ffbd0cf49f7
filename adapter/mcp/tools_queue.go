package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
)

type queueListInput struct {
	Limit int `json:"limit,omitempty"`
}

type queueClearInput struct {
	Confirm bool `json:"confirm" jsonschema:"required"`
}

type recordInput struct {
	ID string `json:"id" jsonschema:"required"`
}

// queueStatus is the reply of queue.status.
type queueStatus struct {
	Pending     int        `json:"pending"`
	Held        []int64    `json:"held"`
	Native      bool       `json:"native"`
	Draining    bool       `json:"draining"`
	Drains      uint64     `json:"drains"`
	Processed   uint64     `json:"processed"`
	Failed      uint64     `json:"failed"`
	LastTrigger string     `json:"last_trigger,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastDrainAt *time.Time `json:"last_drain_at,omitempty"`
}

// recordView is one pending record without its credentials.
type recordView struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	BodyBytes int       `json:"body_bytes"`
	Held      bool      `json:"held"`
	Error     string    `json:"error,omitempty"`
}

// syncOutcome is the reply of sync.force.
type syncOutcome struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Stopped   bool   `json:"stopped"`
	Duration  string `json:"duration"`
}

func registerQueueTools(srv *mcp.Server, deps ToolDependencies) error {
	srv.Tool("queue.status").
		Description("Show pending offline mutations and replay statistics").
		Handler(func(ctx context.Context, input struct{}) (queueStatus, error) {
			return statusOf(ctx, deps)
		})

	srv.Tool("queue.list").
		Description("List pending offline mutations in replay order").
		Handler(func(ctx context.Context, input queueListInput) ([]recordView, error) {
			return listRecords(ctx, deps, input.Limit)
		})

	srv.Tool("queue.clear").
		Description("Delete every pending offline mutation. Requires confirm=true").
		Handler(func(ctx context.Context, input queueClearInput) (map[string]any, error) {
			if !input.Confirm {
				return nil, errors.New("confirm must be true to clear the queue")
			}
			n, err := clearQueue(ctx, deps)
			if err != nil {
				return nil, err
			}
			return map[string]any{"cleared": n}, nil
		})

	srv.Tool("queue.release").
		Description("Release a record held after a remote rejection so the next pass retries it").
		Handler(func(ctx context.Context, input recordInput) (map[string]any, error) {
			id, err := parseRecordID(input.ID)
			if err != nil {
				return nil, err
			}
			if deps.Held == nil {
				return nil, errors.New("held set not configured")
			}
			released, err := deps.Held.Release(ctx, id)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "released": released}, nil
		})

	srv.Tool("queue.drop").
		Description("Delete one pending record without replaying it").
		Handler(func(ctx context.Context, input recordInput) (map[string]any, error) {
			id, err := parseRecordID(input.ID)
			if err != nil {
				return nil, err
			}
			if err := dropRecord(ctx, deps, id); err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "dropped": true}, nil
		})

	srv.Tool("sync.force").
		Description("Replay pending offline mutations now").
		Handler(func(ctx context.Context, input struct{}) (syncOutcome, error) {
			return forceSync(ctx, deps)
		})

	return nil
}

func statusOf(ctx context.Context, deps ToolDependencies) (queueStatus, error) {
	pending, err := deps.Queue.Count(ctx)
	if err != nil {
		return queueStatus{}, err
	}
	out := queueStatus{Pending: pending, Held: []int64{}}
	if deps.Held != nil {
		held, err := deps.Held.List(ctx)
		if err != nil {
			return queueStatus{}, err
		}
		out.Held = append(out.Held, held...)
	}
	if deps.Interceptor != nil {
		out.Native = deps.Interceptor.Native()
	}
	if deps.Engine != nil {
		stats := deps.Engine.GetStats()
		out.Draining = stats.Draining
		out.Drains = stats.Drains
		out.Processed = stats.ProcessedCount
		out.Failed = stats.FailedCount
		out.LastTrigger = string(stats.LastTrigger)
		out.LastError = stats.LastError
		out.LastDrainAt = stats.LastDrainAt
	}
	return out, nil
}

func listRecords(ctx context.Context, deps ToolDependencies, limit int) ([]recordView, error) {
	pending, err := deps.Queue.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	held := map[int64]bool{}
	if deps.Held != nil {
		ids, err := deps.Held.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			held[id] = true
		}
	}

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]recordView, 0, len(pending))
	for _, m := range pending {
		v := recordView{
			ID:        m.ID,
			Timestamp: m.Timestamp,
			Kind:      m.Kind,
			Method:    m.Method,
			URL:       m.URL,
			BodyBytes: len(m.Body),
			Held:      held[m.ID],
		}
		if err := m.Validate(); err != nil {
			v.Error = err.Error()
		}
		out = append(out, v)
	}
	return out, nil
}

func clearQueue(ctx context.Context, deps ToolDependencies) (int, error) {
	n, err := deps.Queue.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := deps.Queue.Clear(ctx); err != nil {
		return 0, err
	}
	if deps.Held != nil {
		if _, err := deps.Held.Prune(ctx, map[int64]bool{}); err != nil {
			return n, err
		}
	}
	return n, nil
}

func dropRecord(ctx context.Context, deps ToolDependencies, id int64) error {
	if err := deps.Queue.Remove(ctx, id); err != nil {
		return err
	}
	if deps.Held != nil {
		if _, err := deps.Held.Release(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func forceSync(ctx context.Context, deps ToolDependencies) (syncOutcome, error) {
	if deps.Engine == nil {
		return syncOutcome{}, errors.New("replay engine not configured")
	}
	res, err := deps.Engine.Drain(ctx, replay.TriggerForce)
	if errors.Is(err, domain.ErrDrainInProgress) {
		return syncOutcome{}, errors.New("a sync is already running, try again shortly")
	}
	if err != nil {
		return syncOutcome{}, err
	}
	return syncOutcome{
		Processed: res.Processed,
		Failed:    res.Failed,
		Skipped:   res.Skipped,
		Stopped:   res.Stopped,
		Duration:  res.Duration.Round(time.Millisecond).String(),
	}, nil
}
