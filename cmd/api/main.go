package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/cache"
	"github.com/resguardoti/activos/internal/config"
	"github.com/resguardoti/activos/internal/db"
	internalhttp "github.com/resguardoti/activos/internal/http"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/rotacion"
	"github.com/resguardoti/activos/internal/secrets"
	"github.com/resguardoti/activos/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api terminada con error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	queries := repo.New(pool)

	tokens := auth.NewTokenManager(
		cfg.JWTAccessSecret, cfg.JWTRefreshSecret,
		cfg.JWTAccessTTL, cfg.RefreshTTL(),
		cfg.JWTIssuer, cfg.JWTAudience)

	cipher, err := secrets.New(cfg.CredencialesKey, cfg.CredencialesKeyV1)
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	authService := service.NewAuthService(queries, tokens, cfg.RefreshTTL())
	usuarioService := service.NewUsuarioService(queries)
	auditor := audit.NewRegistrador(queries)
	responseCache := cache.New(redisClient)

	if err := service.EnsureBootstrapAdmin(ctx, queries, cfg.BootstrapAdmin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	rotacionLogger := log.With().Str("component", "rotacion").Logger()
	rotacionService := rotacion.NewService(queries, cipher, cfg.Rotacion, rotacionLogger)
	if err := rotacionService.Start(); err != nil {
		return fmt.Errorf("rotacion: %w", err)
	}
	defer rotacionService.Stop()

	handler := internalhttp.NewRouter(internalhttp.RouterDeps{
		Config:      cfg,
		Queries:     queries,
		AuthService: authService,
		Usuarios:    usuarioService,
		Cipher:      cipher,
		Rotacion:    rotacionService,
		Auditor:     auditor,
		Cache:       responseCache,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API escuchando en :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("cerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
