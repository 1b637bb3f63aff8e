package embedding

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

// Cache memoizes vectors per (task, text) for the life of the process, which
// keeps Embed deterministic within a session even if the remote model drifts.
type Cache struct {
	c *cache.Cache
}

// NewCache creates a cache; ttl <= 0 keeps entries until restart.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

func cacheKey(task, text string) string {
	return task + ":" + strconv.Itoa(len(text)) + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (c *Cache) Get(task, text string) ([]float32, bool) {
	if x, found := c.c.Get(cacheKey(task, text)); found {
		v := x.([]float32)
		out := make([]float32, len(v))
		copy(out, v)
		return out, true
	}
	return nil, false
}

func (c *Cache) Set(task, text string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.c.Set(cacheKey(task, text), stored, cache.DefaultExpiration)
}

func (c *Cache) Len() int { return c.c.ItemCount() }

func (c *Cache) Flush() { c.c.Flush() }
