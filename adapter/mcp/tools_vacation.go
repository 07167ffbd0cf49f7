package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

type vacationAddInput struct {
	Start string `json:"start" jsonschema:"required"`
	End   string `json:"end,omitempty"`
	Type  string `json:"type,omitempty"`
}

type vacationRemoveInput struct {
	ID string `json:"id" jsonschema:"required"`
}

type vacationCurrentInput struct {
	Date string `json:"date,omitempty"`
}

func registerVacationTools(srv *mcp.Server, deps ToolDependencies) error {
	if deps.Vacations == nil {
		return nil
	}
	svc := deps.Vacations

	srv.Tool("vacation.list").
		Description("List vacation windows during which reminders are suppressed").
		Handler(func(ctx context.Context, input struct{}) ([]domain.VacationWindow, error) {
			return svc.List(ctx)
		})

	srv.Tool("vacation.add").
		Description("Add a vacation window (YYYY-MM-DD, inclusive). End defaults to start").
		Handler(func(ctx context.Context, input vacationAddInput) (domain.VacationWindow, error) {
			if input.End == "" {
				input.End = input.Start
			}
			return svc.Add(ctx, domain.VacationWindow{DateStart: input.Start, DateEnd: input.End, Type: input.Type})
		})

	srv.Tool("vacation.remove").
		Description("Remove a vacation window by id").
		Handler(func(ctx context.Context, input vacationRemoveInput) (map[string]any, error) {
			if input.ID == "" {
				return nil, errors.New("id is required")
			}
			if err := svc.Remove(ctx, input.ID); err != nil {
				return nil, err
			}
			return map[string]any{"id": input.ID, "removed": true}, nil
		})

	srv.Tool("vacation.current").
		Description("Show the vacation window covering a date, today by default").
		Handler(func(ctx context.Context, input vacationCurrentInput) (map[string]any, error) {
			date, err := parseDate(input.Date, time.Now())
			if err != nil {
				return nil, err
			}
			day := date.Format(domain.DateLayout)
			w, ok, err := svc.Current(ctx, day)
			if err != nil {
				return nil, err
			}
			if !ok {
				return map[string]any{"date": day, "on_vacation": false}, nil
			}
			return map[string]any{"date": day, "on_vacation": true, "window": w}, nil
		})

	return nil
}
