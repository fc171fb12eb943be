package source

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisSource) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	src := NewRedisSourceWithClient(client, "relstore:")

	t.Cleanup(func() {
		src.Close()
		mr.Close()
	})

	return mr, src
}

func TestRedisSourceKey(t *testing.T) {
	_, src := setupTestRedis(t)
	assert.Equal(t, "relstore:pos.order:12", src.Key("pos.order", float64(12)))
	assert.Equal(t, "relstore:Tag:abc", src.Key("Tag", "abc"))
}

func TestRedisSourceFetch(t *testing.T) {
	mr, src := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("relstore:Item:1", `{"id": 1, "name": "Pen"}`))
	require.NoError(t, mr.Set("relstore:Item:2", `{"id": 2, "name": "Ink"}`))

	records, err := src.Fetch(ctx, "Item", []any{1, 3, 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Pen", records[0]["name"])
	assert.Equal(t, "Ink", records[1]["name"])

	records, err = src.Fetch(ctx, "Item", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisSourceFetchMalformed(t *testing.T) {
	mr, src := setupTestRedis(t)
	require.NoError(t, mr.Set("relstore:Item:1", `not json`))

	_, err := src.Fetch(context.Background(), "Item", []any{1})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestRedisSourceSnapshot(t *testing.T) {
	mr, src := setupTestRedis(t)

	require.NoError(t, mr.Set("relstore:pos.order:1", `{"id": 1}`))
	require.NoError(t, mr.Set("relstore:pos.order:2", `{"id": 2}`))
	require.NoError(t, mr.Set("relstore:Tag:7", `{"id": 7, "name": "red"}`))
	require.NoError(t, mr.Set("other:Tag:8", `{"id": 8}`))
	require.NoError(t, mr.Set("relstore:orphan", `{"id": 9}`))

	raw, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw["pos.order"], 2)
	require.Len(t, raw["Tag"], 1)
	assert.Equal(t, "red", raw["Tag"][0]["name"])
	assert.Len(t, raw, 2)
}

func TestNewRedisSourceConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisSource(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("relstore:Item:1", `{"id": 1}`))

	cfg := Config{Kind: "redis", Redis: DefaultRedisConfig()}
	cfg.Redis.Addr = mr.Addr()

	src, closer, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closer.Close()

	raw, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw["Item"], 1)
}
