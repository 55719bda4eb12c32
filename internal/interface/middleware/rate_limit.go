package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/adhunt/pkg/response"
)

// KeyFunc identifies the caller a budget is counted against.
type KeyFunc func(c *gin.Context) string

type AllowFunc func(*gin.Context) bool // true bypasses the limit

// Budget is a fixed-window request allowance. Name namespaces the Redis key,
// so two budgets keyed on the same caller never share a counter.
type Budget struct {
	Name   string
	Max    int
	Window time.Duration
	Key    KeyFunc
	Allow  AllowFunc
}

// Budgets used by the API routes.
var (
	// register and token: credential guessing and signup floods
	BudgetCredentials = Budget{Name: "credentials", Max: 10, Window: time.Minute, Key: KeyByIPAndPath()}
	BudgetRefresh     = Budget{Name: "refresh", Max: 60, Window: time.Minute, Key: KeyByIPAndPath()}
	// anonymous and authenticated reads of the public catalogue
	BudgetBrowse   = Budget{Name: "browse", Max: 300, Window: time.Minute, Key: KeyByIP()}
	BudgetAccount  = Budget{Name: "account", Max: 120, Window: time.Minute, Key: KeyByUserID()}
	BudgetPassword = Budget{Name: "password", Max: 10, Window: time.Minute, Key: KeyByUserID()}
	BudgetDebug    = Budget{Name: "debug", Max: 120, Window: time.Minute, Key: KeyByIP()}
)

// ipFromCtx prefers the address resolved by RealIP.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + ipFromCtx(c) }
}

// KeyByIPAndPath gives each route its own count per client.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string { return "route:" + routeOf(c) + ":ip:" + ipFromCtx(c) }
}

// KeyByUserID counts authenticated callers by user and anonymous ones by IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(CtxUserIDKey); uid != "" {
			return "user:" + uid
		}
		return "anon:ip:" + ipFromCtx(c)
	}
}

// INCR and set the window on the first hit, atomically.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// consume spends one request from key and reports the running count and the
// seconds until the window resets.
func consume(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int, int, error) {
	count, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int()
	if err != nil {
		return 0, 0, err
	}
	reset := 0
	if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		reset = int(ttl.Seconds())
	}
	return count, reset, nil
}

// Limit enforces b. It sets the X-RateLimit-* headers, answers 429 once the
// budget is spent and fails open when Redis errors. A nil client or an empty
// budget disables it. Preflight requests are never counted.
func Limit(rdb *redis.Client, b Budget) gin.HandlerFunc {
	if rdb == nil || b.Max <= 0 || b.Window <= 0 || b.Key == nil {
		return func(c *gin.Context) { c.Next() }
	}
	prefix := "rl:" + b.Name + ":"
	limit := strconv.Itoa(b.Max)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (b.Allow != nil && b.Allow(c)) {
			c.Next()
			return
		}

		count, reset, err := consume(c.Request.Context(), rdb, prefix+b.Key(c), b.Window)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(b.Max-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))
		if count > b.Max {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
