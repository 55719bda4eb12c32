package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/adhunt/internal/interface/http"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
)

// AuthModule serves registration and token endpoints.
// Public: POST /api/register, POST /api/token, POST /api/token/refresh
// Protected: POST /api/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    gin.HandlerFunc
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	credentials := middleware.Limit(m.Redis, middleware.BudgetCredentials)

	rg.POST("/register", credentials, m.Handler.Register)
	rg.POST("/token", credentials, m.Handler.Token)
	rg.POST("/token/refresh", middleware.Limit(m.Redis, middleware.BudgetRefresh), m.Handler.Refresh)
	rg.POST("/logout", m.Auth, m.Handler.Logout)
}
