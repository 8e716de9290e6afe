package middleware

import "github.com/gin-gonic/gin"

// AllowPrivateIP bypasses the limiter for requests from private or loopback
// addresses, e.g. an in-cluster metrics scraper.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		return isPrivate(ipFromCtx(c))
	}
}
