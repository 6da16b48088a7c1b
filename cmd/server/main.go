// @title           PaySecure Auth Service API
// @version         1.0
// @description     Account signup, login and bearer token verification.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paysecure/auth-service/internal/api"
	"github.com/paysecure/auth-service/internal/core/service"
	"github.com/paysecure/auth-service/internal/infrastructure/queue"
	"github.com/paysecure/auth-service/internal/infrastructure/token"
	"github.com/paysecure/auth-service/internal/pkg/config"
	"github.com/paysecure/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: "auth-service"})
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "auth-service",
	})

	codec, err := token.NewCodec(token.Options{
		Secret:    []byte(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		ClockSkew: cfg.JWT.ClockSkew,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("signing key unavailable")
	}

	deps, err := connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect dependencies")
	}
	defer deps.close()

	pool := queue.NewPool(cfg.Hash.Workers, cfg.Hash.QueueSize, logger.Component("hash-pool"))
	pool.Start(ctx)
	defer pool.Stop()

	hasher, err := newHasher(cfg.Hash, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build password hasher")
	}

	authService := service.NewAuthService(
		deps.store,
		hasher,
		codec,
		deps.denylist,
		service.Options{TokenTTL: cfg.JWT.TTL, ClockSkew: cfg.JWT.ClockSkew},
		logger.Component("auth-service"),
	)

	e := api.NewRouter(api.RouterConfig{
		AuthService:    authService,
		Dependencies:   deps.pingers,
		Log:            logger.Component("http"),
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("store", cfg.Store.Driver).
			Str("denylist", cfg.Store.DenylistDriver).
			Str("hash", cfg.Hash.Algorithm).
			Msg("auth service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("graceful shutdown completed")
}
