package state_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
)

// runStoreContract exercises the behaviour every Store backend must share.
// key is namespaced by the caller so shared backends stay isolated.
func runStoreContract(t *testing.T, s state.Store, key string) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key reads empty", func(t *testing.T) {
		v, err := s.Get(ctx, key+":absent")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("set get delete", func(t *testing.T) {
		k := key + ":plain"
		require.NoError(t, s.Set(ctx, k, "one"))
		require.NoError(t, s.Set(ctx, k, "two"))
		v, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, "two", v)

		require.NoError(t, s.Delete(ctx, k))
		require.NoError(t, s.Delete(ctx, k))
		v, err = s.Get(ctx, k)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("compare and swap", func(t *testing.T) {
		k := key + ":cas"
		ok, err := s.CompareAndSwap(ctx, k, "", "2026-03-10")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.CompareAndSwap(ctx, k, "", "2026-03-10")
		require.NoError(t, err)
		assert.False(t, ok, "absent precondition must fail once the key exists")

		ok, err = s.CompareAndSwap(ctx, k, "2026-03-09", "2026-03-11")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.CompareAndSwap(ctx, k, "2026-03-10", "2026-03-11")
		require.NoError(t, err)
		assert.True(t, ok)

		v, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-11", v)
	})

	t.Run("only one concurrent swap wins", func(t *testing.T) {
		k := key + ":race"
		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.CompareAndSwap(ctx, k, "", "fired")
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("update json", func(t *testing.T) {
		k := key + ":ids"
		var wg sync.WaitGroup
		for i := range 5 {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := state.UpdateJSON(ctx, s, k, func(ids []int64, _ bool) ([]int64, error) {
					return append(ids, id), nil
				})
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()

		var ids []int64
		found, err := state.GetJSON(ctx, s, k, &ids)
		require.NoError(t, err)
		assert.True(t, found)
		assert.ElementsMatch(t, []int64{0, 1, 2, 3, 4}, ids)
	})
}
