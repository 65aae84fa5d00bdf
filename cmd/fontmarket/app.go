package main

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"github.com/egannguyen/fontmarket/internal/auth"
	"github.com/egannguyen/fontmarket/internal/config"
	"github.com/egannguyen/fontmarket/internal/messaging"
	"github.com/egannguyen/fontmarket/internal/messaging/gochannel"
	"github.com/egannguyen/fontmarket/internal/messaging/kafka"
	"github.com/egannguyen/fontmarket/internal/ratelimit"
	"github.com/egannguyen/fontmarket/internal/repository"
	"github.com/egannguyen/fontmarket/internal/repository/memory"
	"github.com/egannguyen/fontmarket/internal/repository/postgres"
	"github.com/egannguyen/fontmarket/internal/storage"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

// openStore connects the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		slog.Warn("Using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}

func openBroker(cfg *config.Config) messaging.Broker {
	if cfg.Messaging.Driver == "gochannel" {
		return gochannel.NewBroker()
	}
	return kafka.NewKafkaBroker(cfg.Kafka.Brokers)
}

// firebaseApp is created only when a component needs it.
func firebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if cfg.Auth.Provider != "firebase" && cfg.Storage.Driver != "firebase" {
		return nil, nil
	}
	var opts []option.ClientOption
	if cfg.Auth.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Auth.FirebaseCredentials))
	}
	var fbCfg *firebase.Config
	if cfg.Storage.Bucket != "" {
		fbCfg = &firebase.Config{StorageBucket: cfg.Storage.Bucket}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (auth.Verifier, error) {
	if cfg.Auth.Provider == "firebase" {
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
		}
		return auth.NewFirebase(client), nil
	}
	return auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), nil
}

func newFileStore(ctx context.Context, cfg *config.Config, app *firebase.App) (storage.FileStore, error) {
	if cfg.Storage.Driver == "firebase" {
		return storage.NewBucket(ctx, app, cfg.Storage.Bucket)
	}
	return storage.NewLocal(cfg.Storage.Root)
}

// newLimiter shares counters through Redis when an address is configured.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("Redis connected", "addr", cfg.Redis.Addr)
	return ratelimit.NewRedis(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), func() { client.Close() }, nil
}
