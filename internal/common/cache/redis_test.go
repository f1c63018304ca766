package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecoach-gateway/internal/common/config"
)

type entry struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

func newMiniredisCache(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// ==========================
// miniredis
// ==========================

func TestRedisClient_RoundTrip(t *testing.T) {
	c, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetJSON(ctx, "script:abc", entry{Title: "t", Lines: []string{"a", "b"}}, time.Hour))

	var got entry
	found, err := c.GetJSON(ctx, "script:abc", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Title: "t", Lines: []string{"a", "b"}}, got)

	assert.Equal(t, time.Hour, mr.TTL("script:abc"))
}

func TestRedisClient_Miss(t *testing.T) {
	c, _ := newMiniredisCache(t)

	var got entry
	found, err := c.GetJSON(context.Background(), "script:missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisClient_Expiry(t *testing.T) {
	c, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", entry{Title: "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got entry
	found, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisClient_CorruptValue(t *testing.T) {
	c, mr := newMiniredisCache(t)
	require.NoError(t, mr.Set("k", "not-json"))

	var got entry
	found, err := c.GetJSON(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, found)
}

// ==========================
// redismock
// ==========================

func TestRedisClient_GetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisFromClient(client)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	var got entry
	found, err := c.GetJSON(context.Background(), "k", &got)
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_SetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisFromClient(client)

	mock.ExpectSet("k", `{"title":"x","lines":null}`, time.Minute).SetErr(errors.New("READONLY"))

	err := c.SetJSON(context.Background(), "k", entry{Title: "x"}, time.Minute)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GetNil(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisFromClient(client)

	mock.ExpectGet("k").RedisNil()

	var got entry
	found, err := c.GetJSON(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var _ Cache = (*RedisClient)(nil)
