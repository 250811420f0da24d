package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	models "github.com/nadmetry/scorerelay/internal/models"
	ratelimit "github.com/nadmetry/scorerelay/internal/ratelimit"
	util "github.com/nadmetry/scorerelay/internal/util"
)

// OriginGuard rejects requests whose browser headers do not match the
// allow-list. Best-effort cross-site and bot deterrence.
func OriginGuard(app *models.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.Origins.Check(c.Request.Header) {
			util.LogWarn("Origin validation failed: origin=%q referer=%q ua=%q",
				c.GetHeader("Origin"), c.GetHeader("Referer"), c.GetHeader("User-Agent"))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Invalid origin"})
			return
		}
		c.Next()
	}
}

// RateLimit applies the fixed-window policy per client key and surfaces
// the window reset time for client-side backoff.
func RateLimit(app *models.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.ClientKey(c.Request.Header)
		result := app.Limiter.Check(key, app.RatePolicy)
		if !result.Allowed {
			util.LogWarn("Rate limit exceeded for client %s", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"resetTime": result.ResetTime.UnixMilli(),
			})
			return
		}
		c.Next()
	}
}
