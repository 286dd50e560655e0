package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed terminating redis container with error: %s", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed parsing redis url with error: %s", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(c).Err(); err != nil {
		t.Fatalf("failed pinging redis with error: %s", err)
	}
	return client
}

func TestStoresShareCartThroughRedis(t *testing.T) {
	client := setupRedisContainer(t)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := StoreKey(uuid.New())
	first := NewStore(c, key, NewRedisPersistence(client))
	secondPersistence := NewRedisPersistence(client)
	second := NewStore(c, key, secondPersistence)

	go secondPersistence.Watch(c, func(changed string, items []Item) {
		if changed == key {
			second.replace(items)
		}
	})
	require.Eventually(t, func() bool {
		return client.PubSubNumPat(c).Val() > 0
	}, 5*time.Second, 50*time.Millisecond)

	item := newItem("24.50", 2)
	first.AddItem(c, item)

	require.Eventually(t, func() bool {
		return second.TotalItems() == 2
	}, 5*time.Second, 50*time.Millisecond)
	assert.True(t, first.TotalPrice().Equal(second.TotalPrice()))

	reopened := NewStore(c, key, NewRedisPersistence(client))
	require.Len(t, reopened.Items(), 1)
	assert.Equal(t, item.ProductID, reopened.Items()[0].ProductID)
}
