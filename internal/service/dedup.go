package service

import (
	"context"
	"time"

	"SOS911/pkg/cache"
	"SOS911/pkg/metrics"
)

// EventDeduper 通道事件消费端去重
// 实时通道本身不去重，重连补发的重复事件在这里丢弃
type EventDeduper struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewEventDeduper(c cache.Cache, ttl time.Duration) *EventDeduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EventDeduper{cache: c, ttl: ttl}
}

// Seen 事件ID是否已处理过；首次调用记录该ID并返回 false
func (d *EventDeduper) Seen(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	key := "event_seen:" + eventID
	if d.cache.Exists(ctx, key) {
		metrics.EventsDeduped.Inc()
		return true
	}
	_ = d.cache.Set(ctx, key, true, d.ttl)
	return false
}
