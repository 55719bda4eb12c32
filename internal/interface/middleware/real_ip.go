package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxRealIPKey = "real_ip"

// RealIP stores the client address under "real_ip" for rate-limit keys and
// logs. Forwarding headers are spoofable, so they are only read when the
// deployment sits behind a proxy that overwrites them:
//  1. CF-Connecting-IP
//  2. left-most X-Forwarded-For
//  3. c.ClientIP()
func RealIP(trustProxyHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxRealIPKey, clientAddress(c, trustProxyHeaders))
		c.Next()
	}
}

func clientAddress(c *gin.Context, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if ip := net.ParseIP(strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))); ip != nil {
			return ip.String()
		}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	return c.ClientIP()
}
