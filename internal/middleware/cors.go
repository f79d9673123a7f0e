package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a configured CORS middleware. An empty origin list allows any
// origin, which is what internal callers without a browser need.
func CORS(origins, methods, headers []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: methods,
		AllowHeaders: headers,
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	if len(methods) == 0 {
		cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(headers) == 0 {
		cfg.AllowHeaders = []string{"Origin", "Content-Type", apiKeyHeader, requestIDHeader}
	}
	return cors.New(cfg)
}
