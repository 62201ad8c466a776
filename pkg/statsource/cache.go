package statsource

import (
	"context"
	"sync"
	"time"

	"github.com/kasuganosora/graphcbo/pkg/logging"
)

// CachedSource 带 TTL 的 Catalog 缓存
// 避免每次规划都访问外部存储
type CachedSource struct {
	mu       sync.Mutex
	source   Source
	ttl      time.Duration
	logger   logging.Logger
	now      func() time.Time
	catalog  *Catalog
	loadedAt time.Time
	hits     int64
	misses   int64
}

// NewCachedSource 创建缓存；ttl <= 0 表示永不过期
func NewCachedSource(source Source, ttl time.Duration, logger logging.Logger) *CachedSource {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &CachedSource{source: source, ttl: ttl, logger: logger, now: time.Now}
}

func (cs *CachedSource) Name() string {
	return "cached:" + cs.source.Name()
}

// Load 返回缓存的 Catalog，过期或未加载时从底层来源读取
func (cs *CachedSource) Load(ctx context.Context) (*Catalog, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.catalog != nil && (cs.ttl <= 0 || cs.now().Sub(cs.loadedAt) <= cs.ttl) {
		cs.hits++
		return cs.catalog, nil
	}

	cs.misses++
	c, err := cs.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	cs.catalog = c
	cs.loadedAt = cs.now()
	cs.logger.Debug("[STATS] catalog reloaded from %s", cs.source.Name())
	return c, nil
}

// Invalidate 使缓存失效
func (cs *CachedSource) Invalidate() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.catalog = nil
}

// Stats 返回缓存统计信息
func (cs *CachedSource) Stats() CacheStats {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	total := cs.hits + cs.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(cs.hits) / float64(total)
	}
	return CacheStats{
		Loaded:   cs.catalog != nil,
		LoadedAt: cs.loadedAt,
		Hits:     cs.hits,
		Misses:   cs.misses,
		HitRate:  hitRate,
		TTL:      cs.ttl,
	}
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Loaded   bool
	LoadedAt time.Time
	Hits     int64         // 命中次数
	Misses   int64         // 未命中次数
	HitRate  float64       // 命中率
	TTL      time.Duration // 过期时间
}
