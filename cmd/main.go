package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"buzzchat/internal/config"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/interfaces"
	"buzzchat/internal/interfaces/http"
	"buzzchat/internal/repository"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := infrastructure.OpenStore(ctx, infrastructure.StorageOptions{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.SQLitePath,
		DatabaseURL: cfg.Storage.DatabaseURL,
		RedisURL:    cfg.Storage.RedisURL,
	})
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()
	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	// Seller alerts are optional
	var messenger interfaces.Messenger
	if cfg.Alerts.TelegramToken != "" {
		tc, err := infrastructure.NewTelegramClient(cfg.Alerts.TelegramToken)
		if err != nil {
			logger.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			messenger = tc
			logger.Info("telegram bot connected", zap.String("bot", tc.Username()))
		}
	}
	alerts := usecases.NewAlertService(messenger, cfg.Alerts.ChatID, logger.Named("alerts"))

	hub := infrastructure.NewContentHub(logger.Named("content"), cfg.AckTimeout)
	defer hub.Close()

	registry := usecases.NewStoreRegistry(store, hub, alerts, logger.Named("settings"), cfg.SaveDebounce)

	limiter := infrastructure.NewMessageRateLimiter(cfg.InboundRate, cfg.InboundBurst)
	go limiter.Run(ctx)

	router := usecases.NewMessageRouter(registry, cfg.ExtensionID, limiter, alerts, logger.Named("router"))
	hub.SetInboundHandler(router)
	hub.SetExtensionID(cfg.ExtensionID)
	if cfg.ExtensionID == "" {
		logger.Warn("EXTENSION_ID not set; content script connections will be refused")
	}

	authUsecase := usecases.NewAuthUsecase(
		repository.NewUserRepository(store),
		repository.NewTenantManager(store),
		cfg.JWTSecret,
	)
	if err := authUsecase.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Warn("failed to ensure admin user", zap.Error(err))
	}

	if !strings.EqualFold(cfg.Env, "development") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, registry, authUsecase, hub, alerts, http.NewMiddleware(cfg.JWTSecret, registry), http.Options{
		ExtensionID:     cfg.ExtensionID,
		ReferralBaseURL: cfg.ReferralBaseURL,
		Logger:          logger.Named("http"),
	})

	srv := &nethttp.Server{Addr: cfg.HTTPAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	// pending debounced writes go out before the store closes
	if err := registry.CloseAll(shutdownCtx); err != nil {
		logger.Error("flush settings", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
