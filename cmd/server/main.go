package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarpov/tradegram/internal/config"
	"github.com/mkarpov/tradegram/internal/crypto"
	"github.com/mkarpov/tradegram/internal/server/handlers"
	"github.com/mkarpov/tradegram/internal/server/middleware"
	"github.com/mkarpov/tradegram/internal/server/replay"
	"github.com/mkarpov/tradegram/internal/server/service"
	"github.com/mkarpov/tradegram/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage key деривируется один раз на старте
	storageKey, err := crypto.DeriveStorageKeyFromBase64Salt(cfg.CredentialsMasterKey, cfg.CredentialsKeySalt)
	if err != nil {
		return fmt.Errorf("failed to derive storage key: %w", err)
	}

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	var guard *replay.Guard
	if cfg.ReplayDBPath != "" {
		guard, err = replay.Open(cfg.ReplayDBPath, cfg.InitDataMaxAge)
		if err != nil {
			return fmt.Errorf("failed to open replay guard: %w", err)
		}
		defer func() {
			if err := guard.Close(); err != nil {
				logger.Error("failed to close replay guard", slog.Any("error", err))
			}
		}()
	}

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	accountService := service.NewAccountService(logger, store, storageKey)

	accountHandler := handlers.NewAccountHandler(logger, accountService, store, jwtConfig)
	sessionHandler := handlers.NewSessionHandler(logger, accountService, store, jwtConfig)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	telegramAuth := middleware.TelegramAuth(logger, middleware.TelegramAuthConfig{
		BotToken: cfg.BotToken,
		MaxAge:   cfg.InitDataMaxAge,
	}, guard)
	sessionAuth := middleware.SessionAuth(logger, jwtConfig)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	defer limiter.Stop()
	rateLimit := middleware.RateLimitMiddleware(limiter, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("POST /api/v1/users/login", rateLimit(telegramAuth(http.HandlerFunc(accountHandler.Login))))
	mux.Handle("POST /api/v1/users/api-keys", rateLimit(telegramAuth(http.HandlerFunc(accountHandler.UpdateAPIKeys))))
	mux.Handle("GET /api/v1/users/me", sessionAuth(http.HandlerFunc(accountHandler.Me)))
	mux.Handle("POST /api/v1/auth/refresh", rateLimit(http.HandlerFunc(sessionHandler.Refresh)))
	mux.Handle("POST /api/v1/auth/logout", http.HandlerFunc(sessionHandler.Logout))

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux),
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Фоновая уборка: просроченные refresh токены и отпечатки replay guard
	go cleanupLoop(ctx, logger, store, guard)

	errC := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr), slog.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func cleanupLoop(ctx context.Context, logger *slog.Logger, store *sqlite.Storage, guard *replay.Guard) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if deleted, err := store.DeleteExpiredTokens(ctx); err != nil {
				logger.Warn("failed to delete expired tokens", slog.Any("error", err))
			} else if deleted > 0 {
				logger.Info("expired tokens deleted", slog.Int("count", deleted))
			}

			if guard != nil {
				if pruned, err := guard.Prune(time.Now()); err != nil {
					logger.Warn("failed to prune replay guard", slog.Any("error", err))
				} else if pruned > 0 {
					logger.Debug("replay fingerprints pruned", slog.Int("count", pruned))
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func printVersion() {
	fmt.Printf("Tradegram Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
