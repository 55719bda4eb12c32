package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/config"
	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/container"
	"github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/internal/infrastructure/memory"
	"github.com/oksasatya/adhunt/internal/infrastructure/objectstore"
	pginfra "github.com/oksasatya/adhunt/internal/infrastructure/postgres"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/internal/router"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	container.SetConfig(cfg)
	container.SetLogger(logger)

	if err := openStore(ctx, cfg, logger); err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeClients()

	// Redis backs sessions and rate limits; REDIS_ADDR="" runs without both.
	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	} else {
		logger.Warn("REDIS_ADDR empty: sessions are not tracked and rate limits are off")
	}

	images, err := openImageStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("image storage: %v", err)
	}
	container.SetImageStorage(images)

	notifier, closeNotifier, err := startNotifier(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	container.SetNotifier(notifier)

	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	r.MaxMultipartMemory = cfg.MaxImageBytes() * 2
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if err := closeNotifier(ctxShutdown); err != nil {
		logger.WithError(err).Warn("notifier did not drain")
	}
	logger.Info("server exited properly")
}

// closeClients releases the pooled clients registered in the container.
func closeClients() {
	if p := container.GetPGPool(); p != nil {
		p.Close()
	}
	if c := container.GetGCS(); c != nil {
		_ = c.Close()
	}
}

// openStore installs the repositories for STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("STORE_DRIVER=memory: data is lost on restart")
		store := memory.NewStore()
		container.SetRepositories(store.Users(), store.Advertisements(), store.Favorites())
		return nil
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		container.SetPGPool(pool)
		container.SetRepositories(
			pginfra.NewUserRepository(pool),
			pginfra.NewAdvertisementRepository(pool),
			pginfra.NewFavoriteRepository(pool),
		)
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func openImageStorage(ctx context.Context, cfg *config.Config) (repository.ImageStorage, error) {
	switch cfg.ImageStorage {
	case "memory":
		return objectstore.NewMemory(cfg.PublicBaseURL + "/media"), nil
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, errors.New("GCS_BUCKET is required for IMAGE_STORAGE=gcs")
		}
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentials)
		if err != nil {
			return nil, fmt.Errorf("init GCS client: %w", err)
		}
		container.SetGCS(client)
		return objectstore.NewGCS(client, cfg.GCSBucket), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for IMAGE_STORAGE=s3")
		}
		awsCfg, err := helpers.LoadAWSConfig(ctx, helpers.AWSOptions{
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := helpers.NewS3Client(awsCfg, cfg.S3Endpoint)
		return objectstore.NewS3(client, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown IMAGE_STORAGE %q", cfg.ImageStorage)
	}
}

// startNotifier connects the advisory publisher only when NOTIFY_ENABLED is
// set; otherwise no connection is attempted.
func startNotifier(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (application.Emitter, func(context.Context) error, error) {
	if !cfg.NotifyEnabled {
		logger.Info("NOTIFY_ENABLED=false; advertisement advisories are not published")
		return application.DisabledNotifier{}, func(context.Context) error { return nil }, nil
	}

	var (
		pub     application.Publisher
		release = func() {}
	)
	switch cfg.NotifyBackend {
	case "rabbitmq":
		q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQAdsQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unreachable; advisories will redial on publish")
			q = helpers.NewLazyRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQAdsQueue)
		}
		pub, release = q, q.Close
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, nil, errors.New("SQS_QUEUE_URL is required for NOTIFY_BACKEND=sqs")
		}
		awsCfg, err := helpers.LoadAWSConfig(ctx, helpers.AWSOptions{
			Region:          cfg.SQSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		pub = helpers.NewSQSPublisher(awsCfg, cfg.SQSEndpoint, cfg.SQSQueueURL)
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_BACKEND %q", cfg.NotifyBackend)
	}

	n := application.NewNotifier(pub, logger, cfg.NotifyQueueSize, cfg.NotifyTimeout)
	n.Start(ctx)
	logger.WithField("backend", cfg.NotifyBackend).Info("advisory notifier started")
	return n, func(ctx context.Context) error {
		defer release()
		return n.Close(ctx)
	}, nil
}
