package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestStoreRoundTrip(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "dish_1_1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "dish_1_1", []byte(`[]`), time.Minute))
	b, err := s.Get(ctx, "dish_1_1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(b))

	ok, err := s.Has(ctx, "dish_1_1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, _ = s.Has(ctx, "dish_1_1")
	assert.False(t, ok, "entry expires with its ttl")
}

func TestStoreDel(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, s.Del(ctx, "a", "b", "missing"))
	require.NoError(t, s.Del(ctx))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSetNX(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	first, err := s.SetNX(ctx, DedupKey("kitchen", "ev-1"), []byte("1"), TTLDedup)
	require.NoError(t, err)
	second, err := s.SetNX(ctx, DedupKey("kitchen", "ev-1"), []byte("1"), TTLDedup)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "setmeal_12_0", CatalogKey("setmeal", 12, 0))
	assert.Equal(t, "order_status:9", OrderStatusKey(9))
}

func TestSetIfHigher(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	key := OrderStatusKey(3)

	ok, err := s.SetIfHigher(ctx, key, []byte(`{"status":2}`), 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "empty key is written")

	ok, err = s.SetIfHigher(ctx, key, []byte(`{"status":1}`), 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.SetIfHigher(ctx, key, []byte(`{"status":2}`), 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "equal status is kept")

	ok, err = s.SetIfHigher(ctx, key, []byte(`{"status":5}`), 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := mr.Get(key)
	assert.Equal(t, `{"status":5}`, got)
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(key).Seconds(), 1)

	require.NoError(t, mr.Set(key, "not json"))
	ok, err = s.SetIfHigher(ctx, key, []byte(`{"status":1}`), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "garbage is replaced")
}
