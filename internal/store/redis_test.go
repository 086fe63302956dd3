package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/store"
)

func TestRedisBeat(t *testing.T) {
	mr := miniredis.RunT(t)
	r := store.NewRedis(mr.Addr())
	defer r.Close()
	ctx := context.Background()

	assert.True(t, r.Healthy(ctx))
	assert.False(t, r.Alive(ctx, "gatelog:presence"))

	require.NoError(t, r.Beat(ctx, "gatelog:presence", 30*time.Second))
	assert.True(t, r.Alive(ctx, "gatelog:presence"))

	mr.FastForward(31 * time.Second)
	assert.False(t, r.Alive(ctx, "gatelog:presence"))
}

func TestRedisNil(t *testing.T) {
	var r *store.Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.False(t, r.Alive(context.Background(), "k"))
	assert.NoError(t, r.Close())
}
