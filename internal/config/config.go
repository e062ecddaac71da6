package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gigmarket/backend/internal/commission"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds runtime configuration for the API process.
type Config struct {
	Env            string
	Port           string
	StorageDriver  string
	DatabaseURL    string
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	CommissionRateBP int64
	ProPrice         int64
	NotifyWorkers    int
	NotifyTimeout    time.Duration
}

type configFile struct {
	Service struct {
		Env            string   `yaml:"env"`
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"service"`
	Storage struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"storage"`
	Dependencies struct {
		RedisAddr    string   `yaml:"redis_addr"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Marketplace struct {
		CommissionRateBP int64 `yaml:"commission_rate_bp"`
		ProPrice         int64 `yaml:"pro_price"`
	} `yaml:"marketplace"`
	Notifications struct {
		Workers int    `yaml:"workers"`
		Timeout string `yaml:"timeout"`
	} `yaml:"notifications"`
}

func defaults() Config {
	return Config{
		Env:              "dev",
		Port:             "8080",
		StorageDriver:    StoragePostgres,
		KafkaTopic:       "gigmarket.notifications",
		TokenTTL:         7 * 24 * time.Hour,
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		CommissionRateBP: commission.DefaultRateBP,
		ProPrice:         990,
		NotifyWorkers:    10,
		NotifyTimeout:    10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if it
// exists), then environment variables.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.KafkaBrokers = getEnvList("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.CommissionRateBP = int64(getEnvInt("COMMISSION_RATE_BP", int(cfg.CommissionRateBP)))
	cfg.ProPrice = int64(getEnvInt("PRO_PRICE", int(cfg.ProPrice)))
	cfg.NotifyWorkers = getEnvInt("NOTIFY_WORKERS", cfg.NotifyWorkers)
	cfg.NotifyTimeout = getEnvDuration("NOTIFY_TIMEOUT", cfg.NotifyTimeout)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.Env != "" {
		cfg.Env = f.Service.Env
	}
	if f.Service.Port != "" {
		cfg.Port = f.Service.Port
	}
	if len(f.Service.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = trimNonEmpty(f.Service.AllowedOrigins)
	}
	if f.Storage.Driver != "" {
		cfg.StorageDriver = f.Storage.Driver
	}
	if f.Storage.DatabaseURL != "" {
		cfg.DatabaseURL = f.Storage.DatabaseURL
	}
	if f.Dependencies.RedisAddr != "" {
		cfg.RedisAddr = f.Dependencies.RedisAddr
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaTopic != "" {
		cfg.KafkaTopic = f.Dependencies.KafkaTopic
	}
	if f.Auth.JWTSecret != "" {
		cfg.JWTSecret = f.Auth.JWTSecret
	}
	if f.Auth.TokenTTL != "" {
		d, err := time.ParseDuration(f.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("parse auth.token_ttl: %w", err)
		}
		cfg.TokenTTL = d
	}
	if f.Marketplace.CommissionRateBP > 0 {
		cfg.CommissionRateBP = f.Marketplace.CommissionRateBP
	}
	if f.Marketplace.ProPrice > 0 {
		cfg.ProPrice = f.Marketplace.ProPrice
	}
	if f.Notifications.Workers > 0 {
		cfg.NotifyWorkers = f.Notifications.Workers
	}
	if f.Notifications.Timeout != "" {
		d, err := time.ParseDuration(f.Notifications.Timeout)
		if err != nil {
			return fmt.Errorf("parse notifications.timeout: %w", err)
		}
		cfg.NotifyTimeout = d
	}
	return nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.CommissionRateBP < 0 || c.CommissionRateBP > 10000 {
		return fmt.Errorf("commission rate %d bp out of range", c.CommissionRateBP)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		if out := trimNonEmpty(strings.Split(v, ",")); len(out) > 0 {
			return out
		}
	}
	return def
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
