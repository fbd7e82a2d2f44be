package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
	RabbitMQ struct {
		URI      string `yaml:"uri"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Results struct {
		DetailTTL string `yaml:"detail_ttl"`
	} `yaml:"results"`
	Roles struct {
		TTL string `yaml:"ttl"`
	} `yaml:"roles"`
	Reminders struct {
		// Interval between reminder runs of the remind command; empty runs once.
		Interval string `yaml:"interval"`
	} `yaml:"reminders"`
}

// Load reads .env (if present) and the YAML config at path, then applies
// environment overrides. A missing YAML file yields an env-only config.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Mongo.URI, "MONGO_URI")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.RabbitMQ.URI, "RABBITMQ_URI")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Reminders.Interval, "REMINDER_INTERVAL")
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
