package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/musichub/catalog-api/docs" // swagger docs

	"github.com/musichub/catalog-api/internal/api"
	"github.com/musichub/catalog-api/internal/api/handler"
	"github.com/musichub/catalog-api/internal/core/ports"
	"github.com/musichub/catalog-api/internal/core/service"
	"github.com/musichub/catalog-api/internal/infrastructure/db/memory"
	mongodb "github.com/musichub/catalog-api/internal/infrastructure/db/mongo"
	redisdb "github.com/musichub/catalog-api/internal/infrastructure/db/redis"
	"github.com/musichub/catalog-api/internal/infrastructure/notify"
	"github.com/musichub/catalog-api/internal/infrastructure/queue"
	"github.com/musichub/catalog-api/internal/pkg/config"
	"github.com/musichub/catalog-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title MusicHub Catalog API
// @version 1.0
// @description Accounts, tokens and role-based access for the MusicHub media catalog.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "catalog-api",
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	health := map[string]handler.Pinger{}

	// --- User directory ---
	var users ports.UserDirectory
	switch cfg.UserStore {
	case "memory":
		log.Warn().Msg("using in-memory user store, data is lost on restart")
		users = memory.NewUserDirectory()
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "musichub-catalog",
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()

		dir := mongodb.NewUserDirectory(db)
		if err := dir.EnsureIndexes(ctx); err != nil {
			return err
		}
		users = dir
		health["mongodb"] = mongodb.Pinger(client)
	}

	// --- Redis: user cache and notification dedup (optional) ---
	var dedup queue.Deduper
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without user cache and notification dedup")
	} else {
		defer func(c *goredis.Client) { _ = c.Close() }(rdb)
		users = redisdb.NewCachedUserDirectory(users, rdb, cfg.Redis.UserCacheTTL, logger.Component("user_cache"))
		dedup = redisdb.NewDedupChecker(rdb, 0)
		health["redis"] = redisdb.Pinger(rdb)
	}

	// --- Tokens ---
	keyPEM, err := cfg.SigningKeyPEM()
	if err != nil {
		return err
	}
	codec, err := service.NewJWTCodec(service.TokenCodecConfig{
		Secret:        []byte(cfg.Auth.JWTSecret),
		PrivateKeyPEM: keyPEM,
		Issuer:        cfg.Auth.JWTIssuer,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	// --- Notifications ---
	var notifier ports.Notifier
	if cfg.Notify.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			User:     cfg.Notify.SMTPUser,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.SMTPFrom,
		})
	} else {
		notifier = notify.NewLogNotifier(logger.Component("notify"))
	}
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, notifier, dedup, logger.Component("dispatcher"))
	dispatcher.Start(workerCtx)
	defer func() {
		cancelWorkers()
		dispatcher.Wait()
	}()

	// --- Core services ---
	guard := service.NewGuard(codec, users, logger.Component("guard"))
	sessions := service.NewSessionService(
		users,
		service.NewBcryptVerifier(cfg.Auth.BcryptCost),
		codec,
		guard,
		logger.Component("sessions"),
		service.WithNotificationQueue(dispatcher),
	)
	userService := service.NewUserService(users, logger.Component("users"))

	e := api.NewRouter(api.Deps{
		Guard:    guard,
		Sessions: sessions,
		Users:    userService,
		Health:   health,
		Log:      logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
