package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"catalog"`
	Leaderboard struct {
		Limit int `yaml:"limit"`
	} `yaml:"leaderboard"`
	Kiosk Kiosk `yaml:"kiosk"`
}

// Kiosk tunes the display flow.
type Kiosk struct {
	BackendURL      string `yaml:"backend_url"`
	QuestionSeconds int    `yaml:"question_seconds"`
	WelcomeDelay    string `yaml:"welcome_delay"`
	ResultsDelay    string `yaml:"results_delay"`
	RequestTimeout  string `yaml:"request_timeout"`
	SubmitRetries   int    `yaml:"submit_retries"`
}

// Load reads an optional .env file, then YAML config from path, then environment overrides.
// A missing config file leaves defaults in place.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{}
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
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"APP_ENV":           &cfg.Env,
		"DATABASE_URL":      &cfg.Postgres.URL,
		"REDIS_ADDR":        &cfg.Redis.Addr,
		"REDIS_PASSWORD":    &cfg.Redis.Password,
		"CATALOG_PATH":      &cfg.Catalog.Path,
		"KIOSK_BACKEND_URL": &cfg.Kiosk.BackendURL,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	if v, err := strconv.Atoi(os.Getenv("LEADERBOARD_LIMIT")); err == nil && v > 0 {
		cfg.Leaderboard.Limit = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "questions.json"
	}
	if cfg.Leaderboard.Limit <= 0 {
		cfg.Leaderboard.Limit = 20
	}
	if cfg.Kiosk.QuestionSeconds <= 0 {
		cfg.Kiosk.QuestionSeconds = 20
	}
	if cfg.Kiosk.SubmitRetries < 0 {
		cfg.Kiosk.SubmitRetries = 0
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
