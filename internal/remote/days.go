package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Day is one logged workday.
type Day struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Date         string    `json:"date"`
	Client       string    `json:"client"`
	Duration     string    `json:"duration"`
	Notes        *string   `json:"notes"`
	BillingMonth *string   `json:"billing_month"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// Day durations.
const (
	DurationFullDay = "journee_complete"
	DurationHalfDay = "demi_journee"
)

// DayFilter narrows ListDays. Month is 1..12 and needs Year.
type DayFilter struct {
	Year   int
	Month  int
	Client string
	Limit  int
}

// Query renders the filter as PostgREST parameters, newest first.
func (f DayFilter) Query() url.Values {
	q := url.Values{"order": {"date.desc"}}
	if f.Year > 0 && f.Month >= 1 && f.Month <= 12 {
		first := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		q["date"] = []string{"gte." + first.Format("2006-01-02"), "lte." + last.Format("2006-01-02")}
	}
	if f.Client != "" {
		q.Set("client", "eq."+f.Client)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// ListDays returns days matching f.
func (c *Client) ListDays(ctx context.Context, f DayFilter) ([]Day, error) {
	var days []Day
	if err := c.List(ctx, ResourceDays, f.Query(), &days); err != nil {
		return nil, err
	}
	return days, nil
}

// CreateDay inserts d for the signed-in user.
func (c *Client) CreateDay(ctx context.Context, d Day) (Day, error) {
	if c.auth != nil && d.UserID == "" {
		user, err := c.auth.CurrentUser(ctx)
		if err != nil {
			return Day{}, err
		}
		d.UserID = user.ID
	}
	var rows []Day
	if err := c.Create(ctx, ResourceDays, d, &rows); err != nil {
		return Day{}, err
	}
	if len(rows) == 0 {
		return Day{}, fmt.Errorf("create day: empty representation")
	}
	return rows[0], nil
}

// UpdateDay patches the day with id.
func (c *Client) UpdateDay(ctx context.Context, id string, d Day) (Day, error) {
	d.ID, d.UserID = "", ""
	var rows []Day
	if err := c.Update(ctx, ResourceDays, id, d, &rows); err != nil {
		return Day{}, err
	}
	if len(rows) == 0 {
		return Day{}, fmt.Errorf("update day %s: empty representation", id)
	}
	return rows[0], nil
}

// DeleteDay removes one day.
func (c *Client) DeleteDay(ctx context.Context, id string) error {
	return c.Delete(ctx, ResourceDays, id)
}

// DeleteDays removes several days at once.
func (c *Client) DeleteDays(ctx context.Context, ids []string) error {
	return c.DeleteMany(ctx, ResourceDays, ids)
}
