// Package storage opens the backend shared by the durable queue and the
// key-value state store, picking it from the connection string.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/redisclient"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/migrations"
)

// Backend holds exactly one open connection, selected by Driver.
type Backend struct {
	Driver database.Driver
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	Redis  *redis.Client
}

// Open connects to the backend named by dsn and applies migrations.
// An empty dsn or a plain path opens the local SQLite file.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := database.DetectDriver(dsn)
	b := &Backend{Driver: driver}

	switch driver {
	case database.DriverPostgres:
		pool, err := postgres.Open(ctx, dsn, 4)
		if err != nil {
			return nil, domain.StorageError("open postgres", err)
		}
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, domain.StorageError("migrate postgres", err)
		}
		b.Pool = pool
	case database.DriverRedis:
		client, err := redisclient.Open(ctx, dsn)
		if err != nil {
			return nil, domain.StorageError("open redis", err)
		}
		b.Redis = client
	default:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, domain.StorageError("open sqlite", err)
		}
		if err := migrations.RunSQLite(ctx, db); err != nil {
			db.Close()
			return nil, domain.StorageError("migrate sqlite", err)
		}
		b.SQL = db
	}

	logger.Info("offline storage opened", "driver", driver.String())
	return b, nil
}

// Ping checks the underlying connection.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.SQL != nil:
		return b.SQL.PingContext(ctx)
	case b.Pool != nil:
		return b.Pool.Ping(ctx)
	case b.Redis != nil:
		return b.Redis.Ping(ctx).Err()
	default:
		return errors.New("storage backend not open")
	}
}

// Close releases the connection.
func (b *Backend) Close() error {
	switch {
	case b.SQL != nil:
		return b.SQL.Close()
	case b.Pool != nil:
		b.Pool.Close()
		return nil
	case b.Redis != nil:
		return b.Redis.Close()
	default:
		return nil
	}
}

// String describes the backend for logs and status output.
func (b *Backend) String() string {
	return fmt.Sprintf("storage(%s)", b.Driver)
}
