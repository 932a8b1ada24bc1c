package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"freeswap/internal/handler"
	"freeswap/internal/ledger"
	"freeswap/internal/middleware"
	"freeswap/internal/session"
	"freeswap/internal/vault"
	"freeswap/internal/wallet"
	"freeswap/pkg/config"
	"freeswap/pkg/logger"
	"freeswap/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("freeswap-api")

	log.Info("Starting FreeSwap API", map[string]interface{}{
		"port":      cfg.Server.Port,
		"node_url":  cfg.Node.URL,
		"vault_dir": cfg.Vault.Dir,
	})

	// Core wiring
	vaults := vault.NewManager(cfg.Vault.Dir)
	node := ledger.NewClient(cfg.Node.URL, cfg.Node.Timeout, log)
	wallets := wallet.NewService(vaults, node, cfg.Node.HRP, log)

	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.SweepInterval, log)
	sessions.Start()
	defer sessions.Stop()

	val := validator.New()
	authHandler := handler.NewAuthHandler(wallets, sessions, val, log)
	walletHandler := handler.NewWalletHandler(wallets, cfg.Node.HRP, val, log)

	// Router
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB global cap

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unavailable, rate limiting disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			r.Use(middleware.NewRateLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window).Limit)
			log.Info("Redis rate limiting enabled", map[string]interface{}{
				"limit":  cfg.RateLimit.Limit,
				"window": cfg.RateLimit.Window.String(),
			})
		}
	}

	r.HandleFunc("/health", handler.Health).Methods("GET")
	handler.RegisterStatic(r, cfg.WebDir)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/recover", authHandler.Recover).Methods("POST")
	api.HandleFunc("/create", authHandler.Create).Methods("POST")
	api.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	authMW := middleware.NewAuthMiddleware(sessions)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMW.Authenticate)
	protected.HandleFunc("/balance", walletHandler.Balance).Methods("GET")
	protected.HandleFunc("/address", walletHandler.Address).Methods("GET")
	protected.HandleFunc("/transactions", walletHandler.Transactions).Methods("GET")
	protected.HandleFunc("/send", walletHandler.Send).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("FreeSwap API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down FreeSwap API...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("FreeSwap API forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("FreeSwap API stopped gracefully", nil)
}
