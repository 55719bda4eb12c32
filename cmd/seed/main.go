package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/adhunt/config"
	"github.com/oksasatya/adhunt/internal/application"
	pginfra "github.com/oksasatya/adhunt/internal/infrastructure/postgres"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

// seed creates the moderator account from SEED_MODERATOR_*, or promotes an
// existing account with that email. It is the only way to grant the role.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	if cfg.SeedModeratorEmail == "" || cfg.SeedModeratorPassword == "" || cfg.SeedModeratorPhone == "" {
		log.Fatal("SEED_MODERATOR_EMAIL, SEED_MODERATOR_PASSWORD and SEED_MODERATOR_PHONE are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, time.Minute)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// no Redis: the tokens Register issues are discarded
	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	identity := application.NewIdentityService(pginfra.NewUserRepository(pool), jwt, nil, logger)

	u, created, err := identity.EnsureModerator(ctx, application.RegisterInput{
		Email:     cfg.SeedModeratorEmail,
		Password:  cfg.SeedModeratorPassword,
		FirstName: "Moderator",
		LastName:  cfg.AppName,
		Phone:     cfg.SeedModeratorPhone,
	})
	if err != nil {
		log.Fatalf("failed to seed moderator: %v", err)
	}
	if created {
		logger.WithField("user_id", u.ID).Infof("created moderator %s", u.Email)
	} else {
		logger.WithField("user_id", u.ID).Infof("promoted existing account %s to moderator", u.Email)
	}
}
