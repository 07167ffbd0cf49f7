package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/security"
)

// Open opens the SQLite file at path, creating its directory, private to
// the owner, when needed.
//
// The pool is limited to a single connection: SQLite allows one writer, and
// funnelling every statement through one connection makes each queue
// transaction the only concurrency guard that exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		clean, err := security.PreparePrivateFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare database path: %w", err)
		}
		path = clean
	}

	// - journal_mode=WAL: readers never block the appending writer
	// - busy_timeout=5000: wait on lock instead of failing immediately
	// - synchronous=FULL: an acknowledged enqueue survives power loss
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}
