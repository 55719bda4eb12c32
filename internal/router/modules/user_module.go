package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/adhunt/internal/interface/http"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
)

// ProfileModule serves the caller's own profile.
// Protected: GET/PUT /api/profile, POST /api/profile/change-password
type ProfileModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
	Redis   *redis.Client
}

func NewProfileModule(h *handlers.UserHandler, auth gin.HandlerFunc, rdb *redis.Client) *ProfileModule {
	return &ProfileModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	profile := rg.Group("/profile")
	profile.Use(m.Auth, middleware.Limit(m.Redis, middleware.BudgetAccount))
	{
		profile.GET("", m.Handler.GetProfile)
		profile.PUT("", m.Handler.UpdateProfile)
		profile.POST("/change-password",
			middleware.Limit(m.Redis, middleware.BudgetPassword),
			m.Handler.ChangePassword)
	}
}
