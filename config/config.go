package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lunagate/utils"
)

// Config holds the process configuration, read once at startup. Values are
// handed down explicitly so nothing reads the environment at request time.
type Config struct {
	ListenAddr string

	// Douban fetch settings.
	ProxyBase     string        // CORS proxy base; non-empty switches feeds to direct upstream fetches
	FallbackRelay string        // relay used when the gateway path fails
	WebHost       string        // movie.douban.com override
	APIHost       string        // m.douban.com override
	Timeout       time.Duration // upstream request timeout; 0 keeps the client default
	ServerBase    string        // gateway base for server-mode fetches

	LogFile string

	RateLimitPerMin int
	RateLimitBurst  int

	CORSOrigins []string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		ListenAddr:      env("LISTEN_ADDR", ":8080"),
		ProxyBase:       env("DOUBAN_PROXY", ""),
		FallbackRelay:   env("DOUBAN_FALLBACK_RELAY", ""),
		WebHost:         env("DOUBAN_WEB_HOST", ""),
		APIHost:         env("DOUBAN_API_HOST", ""),
		Timeout:         envDuration("DOUBAN_TIMEOUT", 0),
		ServerBase:      env("SERVER_BASE", ""),
		LogFile:         env("LOG_FILE", ""),
		RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:  envInt("RATE_LIMIT_BURST", 30),
		CORSOrigins:     envList("CORS_ORIGINS"),
	}
}

// Validate rejects malformed base URLs before they reach the fetch layer.
func (c *Config) Validate() error {
	checks := []struct {
		name  string
		value string
	}{
		{"DOUBAN_PROXY", c.ProxyBase},
		{"DOUBAN_FALLBACK_RELAY", c.FallbackRelay},
		{"DOUBAN_WEB_HOST", c.WebHost},
		{"DOUBAN_API_HOST", c.APIHost},
		{"SERVER_BASE", c.ServerBase},
	}
	for _, check := range checks {
		if err := utils.ValidateBaseURL(check.value); err != nil {
			return fmt.Errorf("%s: %w", check.name, err)
		}
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
