package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisLoadMissingKeyReturnsEmptyCart(t *testing.T) {
	client, _ := setupRedis(t)
	persistence := NewRedisPersistence(client)

	items, err := persistence.Load(context.Background(), "missing")

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisSaveThenLoad(t *testing.T) {
	client, mr := setupRedis(t)
	persistence := NewRedisPersistence(client)
	c := context.Background()
	items := []Item{newItem("20.00", 2), newItem("5.00", 1)}

	require.NoError(t, persistence.Save(c, "mall-of-hookah-cart:user", items))

	assert.True(t, mr.Exists("mall-of-hookah-cart:user"))
	assert.Greater(t, mr.TTL("mall-of-hookah-cart:user"), time.Duration(0))
	loaded, err := persistence.Load(c, "mall-of-hookah-cart:user")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, items[0].ProductID, loaded[0].ProductID)
	assert.True(t, items[0].UnitPrice.Equal(loaded[0].UnitPrice))
}

func TestRedisLoadInvalidJSON(t *testing.T) {
	client, mr := setupRedis(t)
	persistence := NewRedisPersistence(client)
	require.NoError(t, mr.Set("broken", "{not json"))

	_, err := persistence.Load(context.Background(), "broken")

	assert.Error(t, err)
}

type delivery struct {
	key   string
	items []Item
}

func TestRedisWatchReceivesOtherInstanceSaves(t *testing.T) {
	client, mr := setupRedis(t)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewRedisPersistence(client)
	remote := NewRedisPersistence(client)

	received := make(chan delivery, 4)
	done := make(chan error, 1)
	go func() {
		done <- local.Watch(c, func(key string, items []Item) { received <- delivery{key: key, items: items} })
	}()
	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() > 0
	}, 2*time.Second, 10*time.Millisecond)

	first, second := StoreKey(uuid.New()), StoreKey(uuid.New())
	require.NoError(t, local.Save(c, first, []Item{newItem("1.00", 1)}))
	remoteItems := []Item{newItem("2.00", 3)}
	require.NoError(t, remote.Save(c, first, remoteItems))
	require.NoError(t, remote.Save(c, second, []Item{newItem("4.00", 1)}))
	require.NoError(t, remote.Save(c, "other-key", []Item{newItem("9.00", 1)}))

	for _, expected := range []string{first, second} {
		select {
		case d := <-received:
			assert.Equal(t, expected, d.key)
			require.Len(t, d.items, 1)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected remote save of %s to be delivered", expected)
		}
	}
	select {
	case d := <-received:
		t.Fatalf("unexpected delivery of %s", d.key)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected watch to stop with its context")
	}
}

func TestStoreFollowsRemoteSaves(t *testing.T) {
	client, mr := setupRedis(t)
	c := context.Background()
	svc := NewCartService(NewRedisPersistence(client), nil, time.Hour)
	listen(t, svc, nil)
	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() > 0
	}, 2*time.Second, 10*time.Millisecond)

	userID := uuid.New()
	store := svc.Store(c, userID)
	store.AddItem(c, newItem("3.00", 1))

	remote := NewRedisPersistence(client)
	remoteItems := []Item{newItem("7.00", 4)}
	require.NoError(t, remote.Save(c, StoreKey(userID), remoteItems))

	assert.Eventually(t, func() bool {
		return store.TotalItems() == 4
	}, 2*time.Second, 10*time.Millisecond)

	data, err := json.Marshal(store.Items())
	require.NoError(t, err)
	expected, err := json.Marshal(remoteItems)
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(data))
}
