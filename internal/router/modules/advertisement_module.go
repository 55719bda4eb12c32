package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/adhunt/internal/interface/http"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
)

// AdvertisementModule serves listings, moderation and favorites under
// /api/advertisements. Listing and detail accept anonymous callers.
type AdvertisementModule struct {
	Handler  *handlers.AdvertisementHandler
	Auth     gin.HandlerFunc
	Optional gin.HandlerFunc
	Redis    *redis.Client
}

func NewAdvertisementModule(h *handlers.AdvertisementHandler, auth, optional gin.HandlerFunc, rdb *redis.Client) *AdvertisementModule {
	return &AdvertisementModule{Handler: h, Auth: auth, Optional: optional, Redis: rdb}
}

func (m *AdvertisementModule) Register(rg *gin.RouterGroup) {
	ads := rg.Group("/advertisements")

	publicLimiter := middleware.Limit(m.Redis, middleware.BudgetBrowse)
	ads.GET("", publicLimiter, m.Optional, m.Handler.List)
	ads.GET("/:id", publicLimiter, m.Optional, m.Handler.Detail)

	auth := ads.Group("")
	auth.Use(m.Auth, middleware.Limit(m.Redis, middleware.BudgetAccount))
	{
		auth.POST("", m.Handler.Create)
		auth.PUT("/:id", m.Handler.Update)
		auth.DELETE("/:id", m.Handler.Delete)
		auth.GET("/my", m.Handler.Mine)

		auth.GET("/moderate", m.Handler.ModerationQueue)
		auth.POST("/moderate/:id", m.Handler.Moderate)

		auth.GET("/favorites", m.Handler.FavoritesList)
		auth.POST("/favorites/:id", m.Handler.AddFavorite)
		auth.DELETE("/favorites/:id", m.Handler.RemoveFavorite)
	}
}
