package redis

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.Empty(t, client.Addr())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache.internal", Port: "6380", Password: "secret", DB: 2})

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestNew_UnreachableServer(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := ECFRRateLimit(5)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "requests pass through when Redis is disabled")
	assert.Equal(t, cfg.Limit, remaining)

	require.NoError(t, limiter.Wait(context.Background(), cfg))
}

func TestECFRRateLimit(t *testing.T) {
	assert.Equal(t, 10, ECFRRateLimit(10).Limit)
	assert.Equal(t, 1, ECFRRateLimit(0).Limit, "non-positive limits clamp to 1")
	assert.Equal(t, "ecfr", ECFRRateLimit(3).Key)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", "value", TTLLong))
}

func TestGetOrSet_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	load := func() ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	got, err := GetOrSet(context.Background(), cache, "k", TTLLong, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	_, err = GetOrSet(context.Background(), cache, "k", TTLLong, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "without Redis every read hits the loader")
}

func TestSnapshotKey(t *testing.T) {
	tests := []struct {
		name     string
		params   url.Values
		expected string
	}{
		{
			name:     "no params",
			expected: "snapshot:abc:scorecard",
		},
		{
			name:     "params sorted",
			params:   url.Values{"year": {"2024"}, "limit": {"10"}},
			expected: "snapshot:abc:scorecard:limit=10&year=2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SnapshotKey("abc", "scorecard", tt.params))
		})
	}
}
