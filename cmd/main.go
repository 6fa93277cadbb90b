/**
 * @description
 * This is the main entry point for the banking service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application services,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/assistantclient: Client for the external AI assistant process.
 * - pkg/stripeclient: Client for the Stripe API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/vaultbank/banking-service/internal/api"
	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/internal/config"
	"github.com/vaultbank/banking-service/internal/store"
	"github.com/vaultbank/banking-service/pkg/assistantclient"
	"github.com/vaultbank/banking-service/pkg/rabbitmq"
	"github.com/vaultbank/banking-service/pkg/stripeclient"
)

func main() {
	// Load the optional .env file before anything reads the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("level=warn component=bootstrap msg=\"dotenv load failed\" err=%v", err)
	}

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting banking-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Tune the pool for sustained concurrent ledger traffic.
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish ledger events. The service
	// only publishes, so a missing broker degrades to a no-op fallback.
	var events rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		events = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Connect to Redis for view caching and chat rate limiting. A missing or
	// unreachable Redis disables both; reads fall through to the database.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; caching and rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; caching and rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; caching and rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	var viewCache app.ViewCache = app.NoopViewCache{}
	var chatLimiter *app.RedisRateLimiter
	if redisClient != nil {
		viewCache = app.NewRedisViewCache(redisClient, time.Duration(cfg.DashboardCacheTTLSeconds)*time.Second)
		chatLimiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the external API clients.
	assistantClient := assistantclient.NewClient(cfg.AssistantServiceURL)
	stripeClient := stripeclient.NewClient(cfg.StripeAPIBaseURL, cfg.StripeAPIKey)

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application services with their dependencies.
	bankingService := app.NewService(repository, viewCache, events)
	loanService := app.NewLoanService(repository, bankingService, events)

	// Initialize the API handlers.
	handlers := api.NewHandlers(bankingService)
	loanHandlers := api.NewLoanHandlers(handlers, loanService)
	adminHandlers := api.NewAdminHandlers(handlers, loanService)
	paymentHandlers := api.NewPaymentHandlers(handlers, stripeClient)
	assistantHandlers := api.NewAssistantHandlers(handlers, assistantClient, chatLimiter, cfg.ChatRateLimitPerMinute)

	// Set up the HTTP router.
	router := api.Routes(handlers, loanHandlers, adminHandlers, paymentHandlers, assistantHandlers, api.AuthOptions{
		JWKSURL:  cfg.ClerkJWKSURL,
		Issuer:   cfg.ClerkIssuer,
		Audience: cfg.ClerkAudience,
	})

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
