package middleware

import (
	"github.com/gin-gonic/gin"
)

const cacheHitKey = "cache_hit"

// CacheHeader reports whether a response was served from the content cache.
const CacheHeader = "X-Cache"

// SetCacheHit records cache hit information for the current response and
// mirrors it in the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	c.Set(cacheHitKey, hit)
	if hit {
		c.Header(CacheHeader, "HIT")
		return
	}
	c.Header(CacheHeader, "MISS")
}

// CacheHit returns the recorded cache outcome. The second value is false when
// the handler did not consult the cache.
func CacheHit(c *gin.Context) (bool, bool) {
	if c == nil {
		return false, false
	}
	value, exists := c.Get(cacheHitKey)
	if !exists {
		return false, false
	}
	hit, ok := value.(bool)
	return hit, ok
}
