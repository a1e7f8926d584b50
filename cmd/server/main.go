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
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"invoicer/internal/analytics"
	"invoicer/internal/auth"
	"invoicer/internal/forex"
	"invoicer/internal/handler"
	"invoicer/internal/invoice"
	"invoicer/internal/middleware"
	"invoicer/internal/repository/postgres"
	"invoicer/pkg/config"
	"invoicer/pkg/logger"
	"invoicer/pkg/validator"
)

func main() {
	cfg := config.Load()
	log := logger.New("invoicer")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting invoicer", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Redis connection. The rate cache folds outages into misses, so a
	// failed ping is logged but not fatal.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unreachable at startup, rate caching degraded", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	userRepo := postgres.NewUserRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)

	// Services
	provider := forex.NewExchangeRateAPIProvider(
		cfg.ExchangeRate.BaseURL,
		cfg.ExchangeRate.APIKey,
		cfg.ExchangeRate.RequestTimeout,
	)
	rateCache := forex.NewRedisRateCache(redisClient, log)
	forexService := forex.NewService(provider, rateCache, cfg.ExchangeRate.CacheTTL, log)

	authService := auth.NewService(userRepo, accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	invoiceService := invoice.NewService(invoiceRepo, forexService, log)
	analyticsService := analytics.NewService(invoiceRepo, forexService, cfg.ExchangeRate.FeePercent, log)

	// Handlers
	val := validator.New()
	authHandler := handler.NewAuthHandler(authService, val, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, val, log)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, log)
	forexHandler := handler.NewForexHandler(forexService, val, log)
	systemHandler := handler.NewSystemHandler(db, redisClient, log)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB global cap
	r.Use(middleware.NewRateLimiter(redisClient, 100, time.Minute).Limit)

	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/ready", systemHandler.Ready).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/forex/rate", forexHandler.GetRate).Methods("GET")
	api.HandleFunc("/forex/convert", forexHandler.Convert).Methods("POST")
	api.HandleFunc("/forex/ws", forexHandler.WebSocketHandler)

	// Authenticated routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Authenticate)
	protected.HandleFunc("/invoices", invoiceHandler.Create).Methods("POST")
	protected.HandleFunc("/invoices", invoiceHandler.List).Methods("GET")
	protected.HandleFunc("/invoices/revenue/summary", analyticsHandler.RevenueSummary).Methods("GET")
	protected.HandleFunc("/invoices/revenue/average-size", analyticsHandler.AverageInvoiceSize).Methods("GET")
	protected.HandleFunc("/invoices/{id}", invoiceHandler.Get).Methods("GET")
	protected.HandleFunc("/invoices/{id}", invoiceHandler.Update).Methods("PUT")
	protected.HandleFunc("/invoices/{id}", invoiceHandler.Delete).Methods("DELETE")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Server started", map[string]interface{}{
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

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Stopped gracefully", nil)
}
