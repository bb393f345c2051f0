package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the admin console.
type Config struct {
	AppName         string
	AppEnv          string
	APIBaseURL      string
	APIToken        string
	MetricsAddr     string
	HTTPTimeout     time.Duration
	SearchDebounce  time.Duration
	NotificationTTL time.Duration
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SSIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SSIS Console")
	v.SetDefault("app.env", "development")
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	// Empty disables the metrics listener.
	v.SetDefault("metrics.addr", "")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("search.debounce", "400ms")
	v.SetDefault("notification.ttl", "3s")

	timeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid http timeout: %w", err)
	}

	debounce, err := time.ParseDuration(v.GetString("search.debounce"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid search debounce: %w", err)
	}

	ttl, err := time.ParseDuration(v.GetString("notification.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notification ttl: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		APIBaseURL:      strings.TrimRight(v.GetString("api.base_url"), "/"),
		APIToken:        v.GetString("api.token"),
		MetricsAddr:     v.GetString("metrics.addr"),
		HTTPTimeout:     timeout,
		SearchDebounce:  debounce,
		NotificationTTL: ttl,
	}

	return cfg, nil
}
