package main

import (
	"context"
	"io"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/config"
	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/infrastructure/eventstore"
	pginfra "github.com/oksasatya/cloudgames-users/internal/infrastructure/postgres"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
)

// seed creates the administrator from ADMIN_* settings when the users table has none.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("refusing to seed")
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	// the audit log is per process, so facts recorded here are not kept
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	events := eventstore.NewMemoryStore(quiet, nil)

	tokens, err := helpers.NewJWTManager(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL)
	if err != nil {
		logger.WithError(err).Fatal("failed to init token issuer")
	}
	hasher := helpers.NewBcryptHasher(cfg.BcryptCost, 1)
	svc := application.NewService(pginfra.NewUserRepository(pool), events, hasher, tokens, nil, nil, logger, nil)

	created, err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed administrator")
	}
	if !created {
		logger.Info("administrator already present, nothing to do")
		return
	}
	logger.WithField("email", cfg.AdminEmail).Info("administrator seeded")
}
