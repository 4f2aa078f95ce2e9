package katalog

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	labelCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "katalog_label_cache_hits_total",
		Help: "Volume label lookups served from the cache.",
	})
	labelCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "katalog_label_cache_misses_total",
		Help: "Volume label lookups that went to the store.",
	})
)

// labelCache maps volume ids to labels for decorating directory listings.
type labelCache struct {
	cache *expirable.LRU[int64, string]
}

func newLabelCache(size int, ttl time.Duration) *labelCache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &labelCache{cache: expirable.NewLRU[int64, string](size, nil, ttl)}
}

func (c *labelCache) get(volumeID int64, load func(int64) (string, error)) (string, error) {
	if label, ok := c.cache.Get(volumeID); ok {
		labelCacheHits.Inc()
		return label, nil
	}
	labelCacheMisses.Inc()
	label, err := load(volumeID)
	if err != nil {
		return "", err
	}
	c.cache.Add(volumeID, label)
	return label, nil
}

func (c *labelCache) forget(volumeID int64) { c.cache.Remove(volumeID) }

func (c *labelCache) purge() { c.cache.Purge() }
