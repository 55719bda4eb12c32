package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/adhunt/internal/interface/middleware"
)

// DebugModule exposes expvar counters to private networks only.
type DebugModule struct {
	Redis *redis.Client
}

func NewDebugModule(rdb *redis.Client) *DebugModule { return &DebugModule{Redis: rdb} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", middleware.OnlyPrivateIP(), middleware.Limit(m.Redis, middleware.BudgetDebug),
		gin.WrapH(expvar.Handler()))
}
