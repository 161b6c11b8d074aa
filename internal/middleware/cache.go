package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// ResponseMeta collects per-request annotations that handlers surface through
// the response envelope's meta block. It also stamps handler latency so
// cached and uncached serving paths can be told apart from the outside.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		c.Set(responseMetaKey, meta)

		start := time.Now()
		c.Next()

		if _, ok := meta["took_ms"]; !ok {
			meta["took_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := Meta(c); meta != nil {
		meta["cache_hit"] = hit
	}
}

// Meta returns the annotation map for the current request, or nil when
// ResponseMeta is not mounted on the route.
func Meta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(responseMetaKey); ok {
		if meta, ok := v.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}
