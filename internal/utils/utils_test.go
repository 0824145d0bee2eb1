package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordVerification(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "Correct horse"))
	assert.False(t, CheckPassword(hash, ""))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}

func TestJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT(42, "admin", "s3cret")
	require.NoError(t, err)

	claims, err := ParseJWT(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseJWT(tok, "other")
	assert.Error(t, err)
}

func TestJWTUniquePerLogin(t *testing.T) {
	a, err := GenerateJWT(1, "user", "k")
	require.NoError(t, err)
	b, err := GenerateJWT(1, "user", "k")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	b, _ := RandomToken(16)
	assert.NotEqual(t, a, b)
}

func TestCacheHelpers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	var out map[string]int
	found, err := GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, "k", map[string]int{"a": 1}, time.Minute))
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, DeleteCache(ctx, rdb, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestDeleteCachePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	require.NoError(t, mr.Set("orders:page=1", "x"))
	require.NoError(t, mr.Set("orders:page=2", "x"))
	require.NoError(t, mr.Set("items:public", "x"))

	require.NoError(t, DeleteCachePrefix(ctx, rdb, "orders:"))
	assert.False(t, mr.Exists("orders:page=1"))
	assert.False(t, mr.Exists("orders:page=2"))
	assert.True(t, mr.Exists("items:public"))
}

func TestCacheNilClient(t *testing.T) {
	ctx := context.Background()
	var out string
	found, err := GetCache(ctx, nil, "k", &out)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", "v", time.Second))
	assert.NoError(t, DeleteCache(ctx, nil, "k"))
	assert.NoError(t, DeleteCachePrefix(ctx, nil, "k"))
}
