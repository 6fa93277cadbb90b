package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_PlatformPortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "10000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "10000" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_AssistantURLAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "ASSISTANT_SERVICE_URL")
	setEnvWithCleanup(t, "PY_ASSISTANT_URL", "http://assistant:8000/")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AssistantServiceURL != "http://assistant:8000" {
		t.Fatalf("expected assistant URL from alias env var with trailing slash trimmed, got %q", cfg.AssistantServiceURL)
	}
}

func TestLoadConfig_NegativeChatRateLimitCoercedToZero(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CHAT_RATE_LIMIT_PER_MINUTE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ChatRateLimitPerMinute != 0 {
		t.Fatalf("expected negative chat rate limit to coerce to 0, got %d", cfg.ChatRateLimitPerMinute)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "STRIPE_API_BASE_URL")
	unsetEnvWithCleanup(t, "REDIS_RATE_LIMIT_PREFIX")
	unsetEnvWithCleanup(t, "DASHBOARD_CACHE_TTL_SECONDS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.StripeAPIBaseURL != "https://api.stripe.com" {
		t.Fatalf("expected default Stripe base URL, got %q", cfg.StripeAPIBaseURL)
	}
	if cfg.RedisRateLimitPrefix != "vaultbank:rate_limit" {
		t.Fatalf("expected default rate limit prefix, got %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.DashboardCacheTTLSeconds != 60 {
		t.Fatalf("expected default dashboard cache TTL 60, got %d", cfg.DashboardCacheTTLSeconds)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
