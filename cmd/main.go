package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/config"
	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/container"
	"github.com/oksasatya/cloudgames-users/internal/infrastructure/eventstore"
	pginfra "github.com/oksasatya/cloudgames-users/internal/infrastructure/postgres"
	"github.com/oksasatya/cloudgames-users/internal/infrastructure/search"
	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
	"github.com/oksasatya/cloudgames-users/internal/router"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
	"github.com/oksasatya/cloudgames-users/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("refusing to start")
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	// Redis backs rate limiting only; without it the limiter is a no-op
	var rateCounter middleware.Counter
	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, rate limiting disabled")
		_ = rdb.Close()
	} else {
		defer func() { _ = rdb.Close() }()
		rateCounter = middleware.NewRedisCounter(rdb)
	}

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	// Audit log lives for the life of the process
	events := eventstore.NewMemoryStore(logger, m)

	hasher := helpers.NewBcryptHasher(cfg.BcryptCost, cfg.HashMaxConcurrency)
	jwtManager, err := helpers.NewJWTManager(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL)
	if err != nil {
		logger.WithError(err).Fatal("failed to init token issuer")
	}

	// Optional collaborators stay nil interfaces when unavailable
	var index application.UserIndex
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	switch {
	case err != nil:
		logger.WithError(err).Warn("elasticsearch client failed, search disabled")
	case es != nil:
		index = search.NewUserIndex(es, cfg.ESUsersIndex)
	default:
		logger.Info("ELASTICSEARCH_ADDRS not set, search disabled")
	}

	var jobs application.JobPublisher
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQNotifyQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, notifications disabled")
		} else {
			defer pub.Close()
			jobs = pub
		}
	}

	svc := application.NewService(pginfra.NewUserRepository(pool), events, hasher, jwtManager, index, jobs, logger, m)
	if created, err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.WithError(err).Warn("administrator not seeded")
	} else if created {
		helpers.LogInfo(logger, "administrator seeded", logrus.Fields{"email": cfg.AdminEmail})
	}

	c := &container.Container{
		Config:      cfg,
		Logger:      logger,
		Service:     svc,
		JWT:         jwtManager,
		Metrics:     m,
		Gatherer:    promReg,
		RateCounter: rateCounter,
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(corsConfig(cfg)))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(middleware.AccessLog(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, c)
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
	logger.WithField("facts", events.Len()).Info("server exited properly")
}

func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cc.AllowOrigins) == 0 {
		// no allow-list: any origin, but never with cookies
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	}
	return cc
}
