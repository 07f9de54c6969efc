package cache

import (
	"context"
	"sync"
	"time"
)

// localCache 纯内存实现，无外部依赖，测试和降级场景使用
type localCache struct {
	mu      sync.RWMutex
	items   map[string]localItem
	config  LocalConfig
	done    chan struct{}
	closeMu sync.Once
}

type localItem struct {
	value     interface{}
	expiresAt time.Time // 零值表示永不过期
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	lc := &localCache{
		items:  make(map[string]localItem),
		config: config,
		done:   make(chan struct{}),
	}
	go lc.cleanupLoop()
	return lc
}

func (lc *localCache) cleanupLoop() {
	ticker := time.NewTicker(lc.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-lc.done:
			return
		case <-ticker.C:
			now := time.Now()
			lc.mu.Lock()
			for k, it := range lc.items {
				if !it.expiresAt.IsZero() && now.After(it.expiresAt) {
					delete(lc.items, k)
				}
			}
			lc.mu.Unlock()
		}
	}
}

func (lc *localCache) get(key string) (localItem, bool) {
	lc.mu.RLock()
	it, ok := lc.items[key]
	lc.mu.RUnlock()
	if !ok {
		return localItem{}, false
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		lc.mu.Lock()
		delete(lc.items, key)
		lc.mu.Unlock()
		return localItem{}, false
	}
	return it, true
}

// Get 获取缓存值
func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	it, ok := lc.get(key)
	if !ok {
		return nil, false
	}
	return it.value, true
}

// Set 设置缓存值
func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	} else if lc.config.DefaultExpiration > 0 {
		expiresAt = time.Now().Add(lc.config.DefaultExpiration)
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// 超出容量时丢弃一个任意项，报警客户端的缓存都可再生
	if lc.config.MaxSize > 0 && len(lc.items) >= lc.config.MaxSize {
		for k := range lc.items {
			delete(lc.items, k)
			break
		}
	}
	lc.items[key] = localItem{value: value, expiresAt: expiresAt}
	return nil
}

// Delete 删除缓存
func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.mu.Lock()
	delete(lc.items, key)
	lc.mu.Unlock()
	return nil
}

// Exists 检查键是否存在
func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.get(key)
	return ok
}

// Clear 清空所有缓存
func (lc *localCache) Clear(ctx context.Context) error {
	lc.mu.Lock()
	lc.items = make(map[string]localItem)
	lc.mu.Unlock()
	return nil
}

// Increment 自增
func (lc *localCache) Increment(ctx context.Context, key string, value int64) (int64, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	it, ok := lc.items[key]
	if ok && (!it.expiresAt.IsZero() && time.Now().After(it.expiresAt)) {
		ok = false
	}
	var current int64
	if ok {
		if v, isInt := it.value.(int64); isInt {
			current = v
		}
	}
	current += value
	expiresAt := it.expiresAt
	if !ok && lc.config.DefaultExpiration > 0 {
		expiresAt = time.Now().Add(lc.config.DefaultExpiration)
	}
	lc.items[key] = localItem{value: current, expiresAt: expiresAt}
	return current, nil
}

// GetWithTTL 获取值并返回剩余TTL
func (lc *localCache) GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool) {
	it, ok := lc.get(key)
	if !ok {
		return nil, 0, false
	}
	var ttl time.Duration
	if !it.expiresAt.IsZero() {
		ttl = time.Until(it.expiresAt)
	}
	return it.value, ttl, true
}

// Close 关闭缓存
func (lc *localCache) Close() error {
	lc.closeMu.Do(func() { close(lc.done) })
	return nil
}
