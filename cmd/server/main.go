package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/auth"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
	h "github.com/doanquockiet/be-exe-cho-do-cu/internal/http"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/publisher"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/service"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/vnpay"
)

type Config struct {
	HTTPPort         string
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	RedisAddr        string
	KafkaBrokers     string
	KafkaTopic       string
	JWTSecret        string
	TokenTTL         time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	VNPay            vnpay.Config
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "shop"),
		MongoMaxPoolSize: getEnvUint("MONGO_MAX_POOL_SIZE", 0),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "shop-events"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:         time.Hour,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		VNPay: vnpay.Config{
			TmnCode:    getEnv("VNP_TMNCODE", "SHO2XNBE"),
			HashSecret: getEnv("VNP_HASHSECRET", ""),
			GatewayURL: getEnv("VNP_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  getEnv("VNP_RETURNURL", "http://localhost:5173/payment-result"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
		slog.Warn("ignoring invalid value", "key", key, "value", value)
	}
	return defaultValue
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := loadConfig()
	if cfg.VNPay.HashSecret == "" {
		slog.Error("VNP_HASHSECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: cfg.MongoMaxPoolSize,
	})
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Client().Disconnect(context.Background())

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	var events publisher.EventPublisher = publisher.Noop{}
	if cfg.KafkaBrokers != "" {
		kafkaPub := publisher.NewKafkaPublisher(cfg.KafkaTopic, strings.Split(cfg.KafkaBrokers, ",")...)
		defer kafkaPub.Close()
		events = kafkaPub
	}

	products := repository.NewProductRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	settlements := repository.NewSettlementRepository(db)
	users := repository.NewUserRepository(db)
	tx := repository.NewTxRunner(db)

	authService := auth.NewService(users, cfg.JWTSecret, cfg.TokenTTL)
	cartService := service.NewCartService(products, carts, cartCache)
	checkoutService := service.NewCheckoutService(tx, products, carts, orders, cartCache, events)
	paymentService := service.NewPaymentService(cfg.VNPay, products, carts)
	settlementService := service.NewSettlementService(cfg.VNPay, tx, products, carts, orders, settlements, cartCache, events)

	userHandler := h.NewUserHandler(authService)
	productHandler := h.NewProductHandler(products)
	cartHandler := h.NewCartHandler(cartService)
	checkoutHandler := h.NewCheckoutHandler(checkoutService)
	orderHandler := h.NewOrderHandler(orders)
	paymentHandler := h.NewPaymentHandler(paymentService, settlementService)

	authRequired := h.AuthMiddleware(authService)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authRequired)
			r.Get("/", cartHandler.GetCart)
			r.Post("/add", cartHandler.AddItem)
			r.Delete("/remove/{productID}", cartHandler.RemoveItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(authRequired)
			r.Post("/checkout", checkoutHandler.Checkout)
			r.Get("/orders", orderHandler.List)
			r.Get("/orders/{id}", orderHandler.Get)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/create_payment_url", paymentHandler.CreatePaymentURL)
			})
			// Gateway callbacks carry their own signature, not a user token.
			r.Get("/vnpay_ipn", paymentHandler.IPN)
			r.Get("/vnpay_return", paymentHandler.Return)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}
