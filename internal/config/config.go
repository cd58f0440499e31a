package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	EventSubject      string
	JWTSecret         string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	JudgeModel        string
	ModelMaxAttempts  int
	AuthTimeout       time.Duration
	ShareCacheTTL     time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EvalArena API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject", "arena.evaluations.completed")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("judge.model", "openai/gpt-4o-mini")
	v.SetDefault("model.max_attempts", 1)
	v.SetDefault("auth.timeout", "3s")
	v.SetDefault("share.cache_ttl", "5m")

	authTimeout, err := time.ParseDuration(v.GetString("auth.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid auth timeout: %w", err)
	}

	shareTTL, err := time.ParseDuration(v.GetString("share.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid share cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		EventSubject:      v.GetString("events.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		OpenRouterAPIKey:  v.GetString("openrouter.api_key"),
		OpenRouterBaseURL: v.GetString("openrouter.base_url"),
		JudgeModel:        v.GetString("judge.model"),
		ModelMaxAttempts:  v.GetInt("model.max_attempts"),
		AuthTimeout:       authTimeout,
		ShareCacheTTL:     shareTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.OpenRouterAPIKey == "" {
		return Config{}, fmt.Errorf("openrouter api key must be provided")
	}

	if cfg.ModelMaxAttempts <= 0 {
		cfg.ModelMaxAttempts = 1
	}

	return cfg, nil
}
