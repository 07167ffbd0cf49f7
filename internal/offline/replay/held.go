package replay

import (
	"context"
	"slices"

	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
)

// HeldSet is the persisted list of record ids the remote rejected and that
// later passes must skip until an operator releases them.
type HeldSet struct {
	store state.Store
}

// NewHeldSet stores the set under state.KeyHeldMutations.
func NewHeldSet(store state.Store) *HeldSet {
	return &HeldSet{store: store}
}

// List returns the held ids in ascending order.
func (h *HeldSet) List(ctx context.Context) ([]int64, error) {
	var ids []int64
	if _, err := state.GetJSON(ctx, h.store, state.KeyHeldMutations, &ids); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// Hold adds id.
func (h *HeldSet) Hold(ctx context.Context, id int64) error {
	_, err := state.UpdateJSON(ctx, h.store, state.KeyHeldMutations, func(ids []int64, _ bool) ([]int64, error) {
		if slices.Contains(ids, id) {
			return ids, nil
		}
		return append(ids, id), nil
	})
	return err
}

// Release removes id and reports whether it was held.
func (h *HeldSet) Release(ctx context.Context, id int64) (bool, error) {
	found := false
	_, err := state.UpdateJSON(ctx, h.store, state.KeyHeldMutations, func(ids []int64, _ bool) ([]int64, error) {
		found = slices.Contains(ids, id)
		return slices.DeleteFunc(ids, func(v int64) bool { return v == id }), nil
	})
	return found, err
}

// Prune drops ids that are not in live and returns the remaining set.
func (h *HeldSet) Prune(ctx context.Context, live map[int64]bool) (map[int64]bool, error) {
	var current []int64
	if _, err := state.GetJSON(ctx, h.store, state.KeyHeldMutations, &current); err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(current, func(v int64) bool { return !live[v] }) {
		return toSet(current), nil
	}

	kept, err := state.UpdateJSON(ctx, h.store, state.KeyHeldMutations, func(ids []int64, _ bool) ([]int64, error) {
		return slices.DeleteFunc(ids, func(v int64) bool { return !live[v] }), nil
	})
	if err != nil {
		return nil, err
	}
	return toSet(kept), nil
}

func toSet(ids []int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
