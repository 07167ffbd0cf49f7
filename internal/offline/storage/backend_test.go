package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/storage"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

func TestOpen_SQLiteByDefault(t *testing.T) {
	ctx := context.Background()
	b, err := storage.Open(ctx, filepath.Join(t.TempDir(), "queue.db"), nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, database.DriverSQLite, b.Driver)
	assert.NotNil(t, b.SQL)
	assert.NoError(t, b.Ping(ctx))
	assert.Equal(t, "storage(sqlite)", b.String())
}

func TestOpen_UnreachableRedisIsStorageUnavailable(t *testing.T) {
	_, err := storage.Open(context.Background(), "redis://127.0.0.1:1/0", nil)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
