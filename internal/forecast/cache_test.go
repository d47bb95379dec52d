package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/model"
)

func TestKey(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	a := linearHistory(5, start, 10, 1)
	b := linearHistory(5, start, 10, 1)

	assert.Equal(t, Key(a, 30), Key(b, 30))
	assert.NotEqual(t, Key(a, 30), Key(a, 60))
	b[2].Value++
	assert.NotEqual(t, Key(a, 30), Key(b, 30))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)
	pts := []model.ForecastPoint{{Predicted: 1}}

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", pts))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pts, got)

	got[0].Predicted = 99
	again, _, _ := c.Get(ctx, "a")
	assert.Equal(t, 1.0, again[0].Predicted, "callers get a copy")

	require.NoError(t, c.Set(ctx, "b", pts))
	require.NoError(t, c.Set(ctx, "c", pts))
	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not-a-url", time.Minute)
	assert.Error(t, err)
}
