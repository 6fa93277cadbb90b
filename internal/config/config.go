/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the banking service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	ClerkJWKSURL             string `mapstructure:"CLERK_JWKS_URL"`
	ClerkIssuer              string `mapstructure:"CLERK_ISSUER"`
	ClerkAudience            string `mapstructure:"CLERK_AUDIENCE"`
	StripeAPIKey             string `mapstructure:"STRIPE_API_KEY"`
	StripeAPIBaseURL         string `mapstructure:"STRIPE_API_BASE_URL"`
	AssistantServiceURL      string `mapstructure:"ASSISTANT_SERVICE_URL"`
	ChatRateLimitPerMinute   int    `mapstructure:"CHAT_RATE_LIMIT_PER_MINUTE"`
	DashboardCacheTTLSeconds int    `mapstructure:"DASHBOARD_CACHE_TTL_SECONDS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "vaultbank:rate_limit")
	viper.SetDefault("STRIPE_API_BASE_URL", "https://api.stripe.com")
	viper.SetDefault("CHAT_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("CLERK_ISSUER")
	_ = viper.BindEnv("CLERK_AUDIENCE")
	_ = viper.BindEnv("STRIPE_API_KEY")
	_ = viper.BindEnv("STRIPE_API_BASE_URL")
	_ = viper.BindEnv("ASSISTANT_SERVICE_URL", "ASSISTANT_SERVICE_URL", "PY_ASSISTANT_URL")
	_ = viper.BindEnv("CHAT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("DASHBOARD_CACHE_TTL_SECONDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform-provided port (e.g. Render, Railway) overrides SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "vaultbank:rate_limit"
	}
	config.AssistantServiceURL = strings.TrimRight(strings.TrimSpace(config.AssistantServiceURL), "/")
	config.StripeAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.StripeAPIBaseURL), "/")

	if config.ChatRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative chat rate limit configured; coercing to zero\" limit=%d", config.ChatRateLimitPerMinute)
		config.ChatRateLimitPerMinute = 0
	}
	if config.DashboardCacheTTLSeconds <= 0 {
		config.DashboardCacheTTLSeconds = 60
	}

	return
}
