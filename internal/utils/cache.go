package utils

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// cacheItem 包装缓存数据和过期时间
type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache 带过期时间的本地 LRU 缓存
type Cache[K comparable, V any] struct {
	lruCache *lru.Cache[K, cacheItem[V]]
	ttl      time.Duration
	group    singleflight.Group
	gen      atomic.Uint64 // 每次 Delete 加一，加载期间发生过删除的结果不写回
	now      func() time.Time
}

// NewCache 创建容量为 size 的缓存，条目在 ttl 后过期
func NewCache[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		logrus.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Cache[K, V]{lruCache: l, ttl: ttl, now: time.Now}
}

func (c *Cache[K, V]) Set(key K, data V) {
	c.lruCache.Add(key, cacheItem[V]{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 不存在或已过期时 ok 为 false
func (c *Cache[K, V]) Get(key K) (v V, ok bool) {
	item, ok := c.lruCache.Get(key)
	if !ok {
		return v, false
	}

	if c.now().After(item.expiresAt) {
		c.lruCache.Remove(key)
		return v, false
	}

	return item.data, true
}

// Delete 删除指定缓存
func (c *Cache[K, V]) Delete(key K) {
	c.gen.Add(1)
	c.lruCache.Remove(key)
}

// GetOrLoad 未命中时调用 load 并写入缓存。同一个 key 的并发加载合并为一次，不同 key 互不阻塞
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		gen := c.gen.Load()
		v, err := load()
		if err != nil {
			return nil, err
		}
		if c.gen.Load() == gen {
			c.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
