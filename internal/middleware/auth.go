package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"notifyhub/internal/common"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	callerCtxKey = "caller"
)

// Auth admits requests whose X-API-Key matches one of keys. Callers are
// backend services emitting product events; there is no end-user session.
// The caller fingerprint is stored on the context for logging.
func Auth(keys []string) gin.HandlerFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		allowed = append(allowed, []byte(k))
	}

	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		if presented == "" {
			abortUnauthorized(c, "missing X-API-Key header")
			return
		}

		if !matchesAny([]byte(presented), allowed) {
			abortUnauthorized(c, "invalid API key")
			return
		}

		c.Set(callerCtxKey, fingerprint(presented))
		c.Next()
	}
}

// GetCaller returns the fingerprint of the authenticated API key, or "".
func GetCaller(c *gin.Context) string {
	return c.GetString(callerCtxKey)
}

func abortUnauthorized(c *gin.Context, reason string) {
	common.HandleError(c, common.NewUnauthorizedError(reason))
	c.Abort()
}

// matchesAny compares against every key so timing does not reveal which one matched.
func matchesAny(presented []byte, allowed [][]byte) bool {
	found := 0
	for _, k := range allowed {
		found |= subtle.ConstantTimeCompare(presented, k)
	}
	return found == 1
}

// fingerprint identifies an API key in logs and limiter buckets without
// retaining the key itself.
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
