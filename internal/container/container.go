package container

import (
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/config"
	"github.com/oksasatya/adhunt/internal/application"
	repo "github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

// app-level container to share constructed components across packages.
// The router auto-wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager

	users     repo.UserRepository
	ads       repo.AdvertisementRepository
	favorites repo.FavoriteRepository
	images    repo.ImageStorage
	notifier  application.Emitter
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

// SetRepositories installs the persistence ports chosen by STORE_DRIVER.
func SetRepositories(u repo.UserRepository, a repo.AdvertisementRepository, f repo.FavoriteRepository) {
	users, ads, favorites = u, a, f
}
func GetUsers() repo.UserRepository                   { return users }
func GetAdvertisements() repo.AdvertisementRepository { return ads }
func GetFavorites() repo.FavoriteRepository           { return favorites }

func SetImageStorage(s repo.ImageStorage) { images = s }
func GetImageStorage() repo.ImageStorage  { return images }

// GetNotifier never returns nil; without a configured notifier nothing is
// emitted.
func SetNotifier(n application.Emitter) { notifier = n }
func GetNotifier() application.Emitter {
	if notifier == nil {
		return application.DisabledNotifier{}
	}
	return notifier
}
