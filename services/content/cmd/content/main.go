package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"postcraft/internal/util"
	"postcraft/pkg/ai"
	"postcraft/services/content/internal/app"
	"postcraft/services/content/internal/config"
	"postcraft/services/content/internal/server"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	providerTimeout, err := config.ParseProviderTimeout(cfg.ProviderTimeout)
	if err != nil {
		log.Fatalf("failed to parse provider timeout: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCfg := app.Config{
		Generator: ai.GeneratorConfig{
			Provider: cfg.GenerationProvider,
			BaseURL:  cfg.GenerationBaseURL,
			APIKey:   cfg.GenerationAPIKey,
			Model:    cfg.GenerationModel,
			Timeout:  providerTimeout,
		},
		SeedTemplates: !cfg.SkipTemplateSeed,
	}
	if cfg.StoreBackend == config.StorePostgres {
		appCfg.DatabaseURL = cfg.DatabaseURL
	}
	appCore, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	owner, err := appCore.EnsureUser(cfg.DefaultUsername, cfg.DefaultPassword)
	if err != nil {
		log.Fatalf("failed to ensure default user: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		OwnerID:                    owner.ID,
		MaxImages:                  cfg.MaxImages,
		MaxImageBytes:              cfg.MaxImageBytes,
		AllowedImageTypes:          cfg.AllowedImageTypes,
		CORSOrigins:                cfg.CORSOrigins,
		TrustedProxyCIDRs:          cfg.TrustedProxyCIDRs,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Generation waits on the provider; leave room for its timeout.
		WriteTimeout: providerTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr, "store", cfg.StoreBackend, "provider", cfg.GenerationProvider, "owner_id", owner.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
