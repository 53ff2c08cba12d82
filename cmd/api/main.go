package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_promo/internal/cache"
	"github.com/GTDGit/gtd_promo/internal/config"
	"github.com/GTDGit/gtd_promo/internal/database"
	"github.com/GTDGit/gtd_promo/internal/events"
	"github.com/GTDGit/gtd_promo/internal/handler"
	"github.com/GTDGit/gtd_promo/internal/metrics"
	"github.com/GTDGit/gtd_promo/internal/middleware"
	"github.com/GTDGit/gtd_promo/internal/repository"
	"github.com/GTDGit/gtd_promo/internal/repository/memory"
	"github.com/GTDGit/gtd_promo/internal/service"
	"github.com/GTDGit/gtd_promo/internal/sse"
)

// main is the application entrypoint for the promotion service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("starting promotion service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := map[string]handler.Pinger{}

	// 3. Open store
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		db, err := database.Connect(ctx, &cfg.DB)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		// 3a. Run migrations
		if err := database.Migrate(db.DB, cfg.DB.MigrationsPath); err != nil {
			log.Error().Err(err).Msg("migration failed")
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		log.Info().Msg("migrations completed successfully")

		store = repository.NewPostgresStore(db)
		deps["database"] = handler.PingFunc(db.PingContext)
	}

	// 4. Initialize service
	promoSvc := service.NewPromotionService(store, cfg.Promotion)

	// 4a. Redis cache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable - promotion cache disabled")
		} else {
			defer redisClient.Close()
			promoSvc.SetCache(cache.NewPromotionCache(redisClient, cfg.Redis.TTL))
			deps["redis"] = redisClient
			log.Info().Msg("redis connected successfully")
		}
	}

	// 4b. Event publishers: admin SSE stream, plus Kafka when brokers are configured
	hub := sse.NewHub(64)
	publisher := events.MultiPublisher{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = append(publisher, events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	defer publisher.Close()
	promoSvc.SetPublisher(publisher)

	// 4c. Metrics
	promoSvc.SetMetrics(metrics.NewPromotionMetrics(prometheus.DefaultRegisterer))

	// 5. Initialize handlers
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(deps),
		Promotion: handler.NewPromotionHandler(promoSvc),
		SSE:       handler.NewSSEHandler(hub, cfg.JWTSecret),
	}

	// 6. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret)
	if !jwtMw.Enabled() {
		log.Warn().Msg("JWT_SECRET not set - promotion write endpoints are unauthenticated")
	}

	// 7. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 8. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 9. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Open event streams would otherwise hold Shutdown until its timeout.
	_ = hub.Close()

	// 10. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Promotion *handler.PromotionHandler
	SSE       *handler.SSEHandler
}

// setupRoutes registers all routes. Writes require an admin token when a JWT secret is configured.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	promos := router.Group("/v1/promos")
	{
		promos.GET("", handlers.Promotion.ListPromotions)
		promos.GET("/:id", handlers.Promotion.GetPromotion)
		promos.GET("/events", handlers.SSE.Stream)
	}

	admin := router.Group("/v1/promos")
	if jwtMiddleware.Enabled() {
		admin.Use(jwtMiddleware.Handle())
	}
	{
		admin.POST("", handlers.Promotion.CreatePromotion)
		admin.PATCH("/:id", handlers.Promotion.UpdatePromotion)
		admin.DELETE("/:id", handlers.Promotion.DeletePromotion)
		admin.POST("/apply", handlers.Promotion.ApplyPromo)
		admin.POST("/unapply", handlers.Promotion.UnapplyPromo)
		admin.POST("/:id/apply-global", handlers.Promotion.ApplyPromoGlobally)
	}

	router.GET("/v1/products/:id/promos", handlers.Promotion.GetProductPromotions)
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
