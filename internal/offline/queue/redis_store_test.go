package queue_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/redisclient"
)

func TestRedisStore_Contract(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis queue tests")
	}

	ctx := context.Background()
	client, err := redisclient.Open(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	prefix := "logmyjob-test:" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(ctx, prefix+":seq", prefix+":pending", prefix+":records")
	})

	runStoreContract(t, queue.NewRedisStore(client, queue.WithKeyPrefix(prefix)))
}
