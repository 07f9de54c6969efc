package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SOS911/pkg/cache"
)

func TestEventDeduperSeen(t *testing.T) {
	c, err := cache.NewCache(cache.Config{Type: "gocache"})
	require.NoError(t, err)
	defer c.Close()

	d := NewEventDeduper(c, time.Minute)
	ctx := context.Background()

	assert.False(t, d.Seen(ctx, "evt-1"), "首次出现")
	assert.True(t, d.Seen(ctx, "evt-1"), "重复事件")
	assert.False(t, d.Seen(ctx, "evt-2"), "不同事件互不影响")
	assert.False(t, d.Seen(ctx, ""), "空ID不参与去重")
	assert.False(t, d.Seen(ctx, ""))
}
