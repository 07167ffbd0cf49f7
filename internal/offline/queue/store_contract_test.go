package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
)

// runStoreContract exercises the behaviour every backend must share.
// The store must be empty on entry.
func runStoreContract(t *testing.T, store queue.Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	t.Run("enqueue assigns increasing ids", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		a := domain.NewQueuedMutation(domain.KindDayCreate, "POST", "https://api.example.com/rest/v1/days", []byte(`{"date":"2024-03-04","client":"Acme"}`), map[string]string{"Authorization": "Bearer t1"})
		b := domain.NewQueuedMutation(domain.KindDayUpdate, "PATCH", "https://api.example.com/rest/v1/days?id=eq.1", []byte(`{"client":"Beta"}`), nil)

		idA, err := store.Enqueue(ctx, a)
		require.NoError(t, err)
		idB, err := store.Enqueue(ctx, b)
		require.NoError(t, err)

		assert.Greater(t, idB, idA)
		assert.Equal(t, idA, a.ID)
		assert.False(t, a.Timestamp.IsZero())

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "Bearer t1", pending[0].Headers["Authorization"])
		assert.JSONEq(t, `{"date":"2024-03-04","client":"Acme"}`, string(pending[0].Body))
		assert.Equal(t, domain.KindDayCreate, pending[0].Kind)
		assert.NoError(t, pending[0].DecodeErr)
	})

	t.Run("list is FIFO by timestamp and stable across calls", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		urls := []string{"https://h/t3", "https://h/t1", "https://h/t2"}
		offsets := []time.Duration{3 * time.Second, time.Second, 2 * time.Second}
		for i, u := range urls {
			m := domain.NewQueuedMutation("", "POST", u, nil, nil)
			m.Timestamp = base.Add(offsets[i])
			_, err := store.Enqueue(ctx, m)
			require.NoError(t, err)
		}

		for range 3 {
			pending, err := store.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.Equal(t, "https://h/t1", pending[0].URL)
			assert.Equal(t, "https://h/t2", pending[1].URL)
			assert.Equal(t, "https://h/t3", pending[2].URL)
		}
	})

	t.Run("equal timestamps fall back to id order", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		for _, u := range []string{"https://h/a", "https://h/b", "https://h/c"} {
			m := domain.NewQueuedMutation("", "PUT", u, nil, nil)
			m.Timestamp = base
			_, err := store.Enqueue(ctx, m)
			require.NoError(t, err)
		}

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, []string{"https://h/a", "https://h/b", "https://h/c"},
			[]string{pending[0].URL, pending[1].URL, pending[2].URL})
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		id, err := store.Enqueue(ctx, domain.NewQueuedMutation("", "DELETE", "https://h/x", nil, nil))
		require.NoError(t, err)

		require.NoError(t, store.Remove(ctx, id))
		require.NoError(t, store.Remove(ctx, id))
		require.NoError(t, store.Remove(ctx, 987654))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("clear keeps ids monotonic", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		first, err := store.Enqueue(ctx, domain.NewQueuedMutation("", "POST", "https://h/1", nil, nil))
		require.NoError(t, err)
		require.NoError(t, store.Clear(ctx))

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		second, err := store.Enqueue(ctx, domain.NewQueuedMutation("", "POST", "https://h/2", nil, nil))
		require.NoError(t, err)
		assert.Greater(t, second, first)
	})

	t.Run("concurrent producers never lose records", func(t *testing.T) {
		defer func() { require.NoError(t, store.Clear(ctx)) }()

		const producers, each = 4, 10
		var wg sync.WaitGroup
		for p := range producers {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for range each {
					_, err := store.Enqueue(ctx, domain.NewQueuedMutation("", "POST", "https://h/c", nil, nil))
					assert.NoError(t, err)
				}
			}(p)
		}
		wg.Wait()

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, producers*each, n)

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		seen := map[int64]bool{}
		for _, m := range pending {
			assert.False(t, seen[m.ID], "duplicate id %d", m.ID)
			seen[m.ID] = true
		}
	})
}
