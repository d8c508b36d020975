package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	API     APIConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	Session SessionConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Addr string
	Env  string
}

// APIConfig describes the remote backend the console would talk to. The
// in-memory stores ignore it; the request pipeline and the remote catalog
// backend consume it.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	Marker  string // URL segment that marks an outbound call as an API request
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CatalogConfig selects the persistence backend: "memory" (mock, default),
// "postgres" or "remote".
type CatalogConfig struct {
	Backend     string
	DatabaseURL string
}

// SessionConfig selects the credential directory: "demo" (accept-anything
// mock, default), "memory" or "postgres". StoragePath, when set, makes the
// durable session storage a JSON file instead of process memory.
type SessionConfig struct {
	Directory   string
	StoragePath string
}

type MetricsConfig struct {
	Enabled bool
	Token   string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("API_BASE_URL", "https://northwind.vercel.app/api")
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("API_MARKER", "/api/")
	viper.SetDefault("JWT_SECRET", "dev-secret")
	viper.SetDefault("TOKEN_TTL", "15m")
	viper.SetDefault("CATALOG_BACKEND", "memory")
	viper.SetDefault("SESSION_DIRECTORY", "demo")
	viper.SetDefault("SESSION_STORAGE", "")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_TOKEN", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Addr: viper.GetString("SERVER_ADDR"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		API: APIConfig{
			BaseURL: viper.GetString("API_BASE_URL"),
			Timeout: viper.GetDuration("API_TIMEOUT"),
			Marker:  viper.GetString("API_MARKER"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("JWT_SECRET"),
			TokenTTL:  viper.GetDuration("TOKEN_TTL"),
		},
		Catalog: CatalogConfig{
			Backend:     viper.GetString("CATALOG_BACKEND"),
			DatabaseURL: viper.GetString("DATABASE_URL"),
		},
		Session: SessionConfig{
			Directory:   viper.GetString("SESSION_DIRECTORY"),
			StoragePath: viper.GetString("SESSION_STORAGE"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Token:   viper.GetString("METRICS_TOKEN"),
		},
	}
}
