package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	Close float64 `json:"close"`
	Date  string  `json:"date"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "close:AAPL:2026-10-15", Key("close", "AAPL", "2026-10-15"))
	assert.Equal(t, "close", Key("close"))
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "q", quote{Close: 101.5, Date: "2026-10-15"}, time.Minute))

	var got quote
	require.NoError(t, mc.Get(ctx, "q", &got))
	assert.Equal(t, quote{Close: 101.5, Date: "2026-10-15"}, got)

	var f float64
	require.NoError(t, mc.Set(ctx, "f", 42.25, 0))
	require.NoError(t, mc.Get(ctx, "f", &f))
	assert.Equal(t, 42.25, f)

	require.NoError(t, mc.Delete(ctx, "q", "f"))
	assert.ErrorIs(t, mc.Get(ctx, "q", &got), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Zero(t, mc.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var n int
	require.NoError(t, mc.Get(ctx, "a", &n))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &n), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &n))
	assert.Equal(t, 1, n)
}

func TestRedisCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		rc := NewRedisCacheFromClient(db, "sectorflow")
		mock.ExpectGet("sectorflow:close:MSFT").SetVal(`{"close":410.2,"date":"2026-10-15"}`)

		var got quote
		require.NoError(t, rc.Get(ctx, "close:MSFT", &got))
		assert.Equal(t, 410.2, got.Close)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		rc := NewRedisCacheFromClient(db, "sectorflow")
		mock.ExpectGet("sectorflow:close:MSFT").RedisNil()

		var got quote
		assert.ErrorIs(t, rc.Get(ctx, "close:MSFT", &got), ErrCacheMiss)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		rc := NewRedisCacheFromClient(db, "sectorflow")
		mock.ExpectGet("sectorflow:close:MSFT").SetErr(errors.New("connection refused"))

		var got quote
		err := rc.Get(ctx, "close:MSFT", &got)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
	})
}

func TestRedisCache_SetAndDelete(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "sectorflow")

	mock.ExpectSet("sectorflow:close:XOM", []byte("112.5"), time.Hour).SetVal("OK")
	mock.ExpectUnlink("sectorflow:close:XOM", "sectorflow:close:CVX").SetVal(2)

	require.NoError(t, rc.Set(ctx, "close:XOM", 112.5, time.Hour))
	require.NoError(t, rc.Delete(ctx, "close:XOM", "close:CVX"))
	require.NoError(t, rc.Delete(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCache_FillsMemoryFromRemote(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	lc := NewLayeredCache(NewRedisCacheFromClient(db, "sectorflow"))
	defer lc.mem.Close()

	mock.ExpectGet("sectorflow:close:NEE").SetVal("71.25")
	mock.ExpectPTTL("sectorflow:close:NEE").SetVal(time.Hour)

	var f float64
	require.NoError(t, lc.Get(ctx, "close:NEE", &f))
	assert.Equal(t, 71.25, f)

	// second read is served from memory, no further redis call expected
	f = 0
	require.NoError(t, lc.Get(ctx, "close:NEE", &f))
	assert.Equal(t, 71.25, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "sectorflow")

	mock.ExpectPTTL("sectorflow:constituents:sp500").SetVal(6 * time.Hour)
	mock.ExpectPTTL("sectorflow:forever").SetVal(-1)

	d, err := rc.TTL(ctx, "constituents:sp500")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, d)

	d, err = rc.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type ttlRemote struct {
	*MemoryCache
	ttl time.Duration
}

func (r *ttlRemote) TTL(context.Context, string) (time.Duration, error) { return r.ttl, nil }

func memExpiry(t *testing.T, lc *LayeredCache, key string) time.Duration {
	t.Helper()
	lc.mem.mutex.Lock()
	defer lc.mem.mutex.Unlock()
	item, ok := lc.mem.data[key]
	require.True(t, ok, "key %q not in memory layer", key)
	return time.Until(item.expireAt)
}

func TestLayeredCache_BackfillKeepsRemoteTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("remote expires sooner", func(t *testing.T) {
		remote := &ttlRemote{MemoryCache: NewMemoryCache(), ttl: 6 * time.Hour}
		lc := NewLayeredCache(remote, WithMemoryDefaultTTL(168*time.Hour))
		defer lc.Close()
		require.NoError(t, remote.Set(ctx, "constituents:sp500", []string{"XOM"}, 6*time.Hour))

		var got []string
		require.NoError(t, lc.Get(ctx, "constituents:sp500", &got))
		assert.Equal(t, []string{"XOM"}, got)
		assert.LessOrEqual(t, memExpiry(t, lc, "constituents:sp500"), 6*time.Hour)
	})

	t.Run("memory ttl is shorter", func(t *testing.T) {
		remote := &ttlRemote{MemoryCache: NewMemoryCache(), ttl: 168 * time.Hour}
		lc := NewLayeredCache(remote, WithMemoryDefaultTTL(time.Hour))
		defer lc.Close()
		require.NoError(t, remote.Set(ctx, "close:XOM:2026-10-15", 112.5, 168*time.Hour))

		var f float64
		require.NoError(t, lc.Get(ctx, "close:XOM:2026-10-15", &f))
		assert.LessOrEqual(t, memExpiry(t, lc, "close:XOM:2026-10-15"), time.Hour)
	})

	t.Run("no remote expiry", func(t *testing.T) {
		remote := &ttlRemote{MemoryCache: NewMemoryCache()}
		lc := NewLayeredCache(remote, WithMemoryDefaultTTL(2*time.Hour))
		defer lc.Close()
		require.NoError(t, remote.Set(ctx, "k", "v", time.Hour))

		var s string
		require.NoError(t, lc.Get(ctx, "k", &s))
		exp := memExpiry(t, lc, "k")
		assert.Greater(t, exp, time.Hour)
		assert.LessOrEqual(t, exp, 2*time.Hour)
	})
}
