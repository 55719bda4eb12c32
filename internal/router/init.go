package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/container"
	handlers "github.com/oksasatya/adhunt/internal/interface/http"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/internal/router/modules"
	"github.com/oksasatya/adhunt/pkg/helpers"
	"github.com/oksasatya/adhunt/pkg/validation"
)

// Deps is everything the HTTP modules need. BuildDeps fills it from the
// container; tests construct it directly.
type Deps struct {
	Identity  *application.IdentityService
	Ads       *application.AdvertisementService
	Queries   *application.QueryService
	Favorites *application.FavoritesService
	JWT       *helpers.JWTManager
	Cookies   *helpers.Manager
	Logger    *logrus.Logger

	// Redis backs the rate limiters; nil disables them.
	Redis     *redis.Client
	DebugVars bool
}

func BuildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	users := container.GetUsers()
	ads := container.GetAdvertisements()
	favorites := container.GetFavorites()

	var limiter *redis.Client
	if cfg.RateLimitEnabled {
		limiter = container.GetRedis()
	}

	return Deps{
		Identity: application.NewIdentityService(users, container.GetJWT(), container.GetRedis(), logger),
		Ads: application.NewAdvertisementService(ads, users, container.GetImageStorage(), container.GetNotifier(),
			logger, cfg.MaxImageBytes(), cfg.MaxImagesPerAd),
		Queries:   application.NewQueryService(ads, users, favorites),
		Favorites: application.NewFavoritesService(favorites),
		JWT:       container.GetJWT(),
		Cookies:   helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Logger:    logger,
		Redis:     limiter,
		DebugVars: cfg.DebugMetricsEnabled,
	}
}

// InitModules wires every feature module from the container. Call once at
// startup, before Registry.RegisterAll.
func InitModules(r *Registry) {
	InitModulesWith(r, BuildDeps())
}

func InitModulesWith(r *Registry, d Deps) {
	validation.Init()
	auth := middleware.Auth(d.JWT, d.Identity)
	optional := middleware.OptionalAuth(d.JWT, d.Identity)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Identity, d.Cookies, d.Logger), auth, d.Redis))
	r.Add(modules.NewProfileModule(handlers.NewUserHandler(d.Identity, d.Logger), auth, d.Redis))
	r.Add(modules.NewAdvertisementModule(
		handlers.NewAdvertisementHandler(d.Ads, d.Queries, d.Favorites, d.Logger), auth, optional, d.Redis))
	if d.DebugVars {
		r.Add(modules.NewDebugModule(d.Redis))
	}
}
