package main

import (
	"context"
	"fmt"

	"github.com/paysecure/auth-service/internal/core/ports"
	"github.com/paysecure/auth-service/internal/infrastructure/crypto"
	"github.com/paysecure/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/paysecure/auth-service/internal/infrastructure/db/mongo"
	"github.com/paysecure/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/paysecure/auth-service/internal/infrastructure/db/redis"
	"github.com/paysecure/auth-service/internal/infrastructure/queue"
	"github.com/paysecure/auth-service/internal/pkg/config"
	"github.com/paysecure/auth-service/pkg/logger"
)

type dependencies struct {
	store    ports.CredentialStore
	denylist ports.TokenDenylist
	pingers  map[string]ports.Pinger
	closers  []func()
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// connect opens the credential store and denylist selected by cfg.
func connect(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{pingers: make(map[string]ports.Pinger)}
	log := logger.Component("wiring")

	switch cfg.Store.Driver {
	case "mongo":
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.NewCredentialStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			deps.close()
			return nil, err
		}
		deps.store = store
		deps.pingers["mongodb"] = store
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			deps.close()
			return nil, err
		}
		store := postgres.NewCredentialStore(db.Pool)
		deps.store = store
		deps.pingers["postgres"] = store
	case "memory":
		log.Warn().Msg("using in-memory credential store; data is lost on restart")
		store := memory.NewCredentialStore()
		deps.store = store
		deps.pingers["store"] = store
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Store.DenylistDriver {
	case "redis":
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = client.Close() })
		denylist := redisstore.NewDenylist(client)
		deps.denylist = denylist
		deps.pingers["redis"] = denylist
	case "memory":
		denylist := memory.NewDenylist()
		deps.denylist = denylist
		deps.pingers["denylist"] = denylist
	default:
		deps.close()
		return nil, fmt.Errorf("unknown denylist driver %q", cfg.Store.DenylistDriver)
	}

	return deps, nil
}

// newHasher builds the configured hasher and runs it on pool.
func newHasher(cfg config.HashConfig, pool *queue.Pool) (ports.PasswordHasher, error) {
	var inner ports.PasswordHasher
	switch cfg.Algorithm {
	case "argon2id":
		inner = crypto.NewArgon2Hasher(crypto.Argon2Params{
			MemoryKiB:   cfg.Argon2MemoryKiB,
			Iterations:  cfg.Argon2Iterations,
			Parallelism: cfg.Argon2Parallelism,
		})
	case "bcrypt":
		inner = crypto.NewBcryptHasher(cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", cfg.Algorithm)
	}
	return crypto.NewPooledHasher(inner, pool), nil
}
