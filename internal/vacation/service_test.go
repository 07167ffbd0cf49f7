package vacation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

func TestService_AddAndList(t *testing.T) {
	ctx := context.Background()
	svc := vacation.NewService(state.NewMemoryStore())

	summer, err := svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-03", DateEnd: "2026-08-21"})
	require.NoError(t, err)
	assert.NotEmpty(t, summer.ID)
	assert.Equal(t, vacation.TypeVacation, summer.Type)
	assert.False(t, summer.CreatedAt.IsZero())

	_, err = svc.Add(ctx, domain.VacationWindow{DateStart: "2026-02-16", DateEnd: "2026-02-20", Type: vacation.TypeSick})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-02-16", list[0].DateStart)
	assert.Equal(t, "2026-08-03", list[1].DateStart)
}

func TestService_RejectsInvalidAndOverlapping(t *testing.T) {
	ctx := context.Background()
	svc := vacation.NewService(state.NewMemoryStore())

	_, err := svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-21", DateEnd: "2026-08-03"})
	assert.Error(t, err)

	_, err = svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-03", DateEnd: "2026-08-21"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-21", DateEnd: "2026-08-25"})
	assert.ErrorIs(t, err, vacation.ErrOverlap, "windows are inclusive, sharing an end day overlaps")

	_, err = svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-22", DateEnd: "2026-08-25"})
	assert.NoError(t, err)
}

func TestService_UpdateRemove(t *testing.T) {
	ctx := context.Background()
	svc := vacation.NewService(state.NewMemoryStore())

	w, err := svc.Add(ctx, domain.VacationWindow{DateStart: "2026-04-06", DateEnd: "2026-04-10"})
	require.NoError(t, err)

	w.DateEnd = "2026-04-17"
	require.NoError(t, svc.Update(ctx, w), "a window never overlaps itself")

	got, ok, err := svc.Current(ctx, "2026-04-15")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, w.ID, got.ID)

	require.NoError(t, svc.Remove(ctx, w.ID))
	assert.ErrorIs(t, svc.Remove(ctx, w.ID), domain.ErrNotFound)

	_, ok, err = svc.Current(ctx, "2026-04-15")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_Replace(t *testing.T) {
	ctx := context.Background()
	svc := vacation.NewService(state.NewMemoryStore())

	require.NoError(t, svc.Replace(ctx, []domain.VacationWindow{
		{ID: "b", DateStart: "2026-12-21", DateEnd: "2026-12-31"},
		{ID: "a", DateStart: "2026-05-01", DateEnd: "2026-05-01"},
	}))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	assert.Error(t, svc.Replace(ctx, []domain.VacationWindow{{ID: "x", DateStart: "bad", DateEnd: "2026-01-01"}}))
}
