package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses limits for loopback and private-range clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// OnlyPrivateIP rejects everything AllowPrivateIP would not bypass. It
// guards internal endpoints such as /debug/vars.
func OnlyPrivateIP() gin.HandlerFunc {
	allow := AllowPrivateIP()
	return func(c *gin.Context) {
		if !allow(c) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}
