package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopfront/adminsync/internal/infrastructure/config"
	"github.com/shopfront/adminsync/internal/infrastructure/logger"
	"github.com/shopfront/adminsync/internal/infrastructure/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting relay",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.Relay.Port),
	)

	hubOpts := []relay.HubOption{
		relay.WithHubLogger(log.Named("hub")),
		relay.WithMaxSessions(cfg.Relay.MaxSessions),
	}

	// Optional Redis bridge for multi-instance deployments
	var bridge *relay.RedisBridge
	if cfg.Redis.Enabled {
		bridge, err = relay.NewRedisBridge(relay.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
			relay.WithBridgeChannel(cfg.Redis.Channel),
			relay.WithBridgeLogger(log.Named("bridge")),
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis bridge", zap.Error(err))
		}
		defer func() {
			if err := bridge.Close(); err != nil {
				log.Error("Error closing Redis bridge", zap.Error(err))
			}
		}()
		hubOpts = append(hubOpts, relay.WithBridge(bridge))
	}

	hub := relay.NewHub(hubOpts...)

	if bridge != nil {
		go func() {
			if err := bridge.Subscribe(context.Background(), hub.FromBridge); err != nil && err != context.Canceled {
				log.Error("Bridge subscription terminated", zap.Error(err))
			}
		}()
	}

	handler := relay.NewHandler(hub,
		relay.WithHandlerLogger(log.Named("relay")),
		relay.WithAllowedOrigins(cfg.Relay.AllowedOrigins),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log.Named("http")), logger.Recovery(log))

	verifier := relay.NewTokenVerifier(cfg.Auth.Secret, relay.WithIssuer(cfg.Auth.Issuer))
	if verifier.Enabled() {
		engine.GET("/ws", verifier.Middleware(), handler.Stream)
		engine.GET("/healthz", handler.Health)
	} else {
		log.Warn("Token verification disabled, relay accepts any client")
		handler.Register(engine)
	}

	srv := &http.Server{
		Addr:         cfg.Relay.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Relay.ReadTimeout,
		WriteTimeout: cfg.Relay.WriteTimeout,
		IdleTimeout:  cfg.Relay.IdleTimeout,
	}

	go func() {
		log.Info("Relay listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start relay", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Relay forced to shutdown", zap.Error(err))
	}

	log.Info("Relay exited gracefully")
}
