// Package vacation manages the vacation windows that suppress reminders.
package vacation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
)

// ErrOverlap is returned when a window shares days with an existing one.
var ErrOverlap = errors.New("vacation overlaps an existing one")

// Vacation types.
const (
	TypeVacation = "vacation"
	TypeSick     = "sick"
	TypeHoliday  = "holiday"
	TypeOther    = "other"
)

// Service keeps the windows as one JSON list in the state store.
type Service struct {
	state state.Store
	now   func() time.Time
}

// NewService creates the service.
func NewService(store state.Store) *Service {
	return &Service{state: store, now: time.Now}
}

// List returns every window ordered by start date.
func (s *Service) List(ctx context.Context) ([]domain.VacationWindow, error) {
	var windows []domain.VacationWindow
	if _, err := state.GetJSON(ctx, s.state, state.KeyVacations, &windows); err != nil {
		return nil, err
	}
	sortWindows(windows)
	return windows, nil
}

// Add validates w, assigns an id and stores it.
func (s *Service) Add(ctx context.Context, w domain.VacationWindow) (domain.VacationWindow, error) {
	if err := w.Validate(); err != nil {
		return domain.VacationWindow{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Type == "" {
		w.Type = TypeVacation
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC()
	}

	_, err := state.UpdateJSON(ctx, s.state, state.KeyVacations, func(windows []domain.VacationWindow, _ bool) ([]domain.VacationWindow, error) {
		if err := checkOverlap(windows, w); err != nil {
			return nil, err
		}
		return append(windows, w), nil
	})
	if err != nil {
		return domain.VacationWindow{}, err
	}
	return w, nil
}

// Update replaces the window with the same id.
func (s *Service) Update(ctx context.Context, w domain.VacationWindow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := state.UpdateJSON(ctx, s.state, state.KeyVacations, func(windows []domain.VacationWindow, _ bool) ([]domain.VacationWindow, error) {
		i := slices.IndexFunc(windows, func(v domain.VacationWindow) bool { return v.ID == w.ID })
		if i < 0 {
			return nil, fmt.Errorf("vacation %s: %w", w.ID, domain.ErrNotFound)
		}
		others := slices.Delete(slices.Clone(windows), i, i+1)
		if err := checkOverlap(others, w); err != nil {
			return nil, err
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = windows[i].CreatedAt
		}
		windows[i] = w
		return windows, nil
	})
	return err
}

// Remove deletes the window with id.
func (s *Service) Remove(ctx context.Context, id string) error {
	_, err := state.UpdateJSON(ctx, s.state, state.KeyVacations, func(windows []domain.VacationWindow, _ bool) ([]domain.VacationWindow, error) {
		i := slices.IndexFunc(windows, func(v domain.VacationWindow) bool { return v.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("vacation %s: %w", id, domain.ErrNotFound)
		}
		return slices.Delete(windows, i, i+1), nil
	})
	return err
}

// Replace stores windows as the complete list, as sent by the application
// after it loaded them from the remote.
func (s *Service) Replace(ctx context.Context, windows []domain.VacationWindow) error {
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("vacation %s: %w", w.ID, err)
		}
	}
	sortWindows(windows)
	return state.SetJSON(ctx, s.state, state.KeyVacations, windows)
}

// Current returns the window containing date (YYYY-MM-DD), if any.
func (s *Service) Current(ctx context.Context, date string) (domain.VacationWindow, bool, error) {
	windows, err := s.List(ctx)
	if err != nil {
		return domain.VacationWindow{}, false, err
	}
	for _, w := range windows {
		if w.Contains(date) {
			return w, true, nil
		}
	}
	return domain.VacationWindow{}, false, nil
}

func checkOverlap(windows []domain.VacationWindow, w domain.VacationWindow) error {
	for _, v := range windows {
		if v.Overlaps(w) {
			return fmt.Errorf("%w: %s to %s", ErrOverlap, v.DateStart, v.DateEnd)
		}
	}
	return nil
}

func sortWindows(windows []domain.VacationWindow) {
	slices.SortFunc(windows, func(a, b domain.VacationWindow) int {
		if c := strings.Compare(a.DateStart, b.DateStart); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
