package mcp

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return parsed, nil
}

func parseRecordID(value string) (int64, error) {
	if value == "" {
		return 0, errors.New("id is required")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
