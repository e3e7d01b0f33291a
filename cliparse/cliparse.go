package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DotEnvFile is read from the working directory by Load
const DotEnvFile = ".env"

const (
	DefaultPort               = 8001
	DefaultCacheTTL           = 30 * time.Minute
	DefaultCacheSweepInterval = 5 * time.Minute
	DefaultCacheMinHitRate    = 0.5
	DefaultCacheMaxErrors     = 10
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultSpoonacularURL     = "https://api.spoonacular.com"
	DefaultExpiringWithinDays = 3
)

type Config struct {
	Port        int
	DatabaseURL string
	LogLevel    string

	// Secrets (prefer env)
	UserKeySalt string
	AdminKey    string

	CacheConfig
	Providers

	ExpiringWithinDays int
	UnitOverridesPath  string
}

type CacheConfig struct {
	CachePath          string
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration
	CacheMinHitRate    float64
	CacheMaxErrors     int64
}

type Providers struct {
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	SpoonacularAPIKey  string
	SpoonacularBaseURL string
}

// fileConfig mirrors the optional YAML config file
type fileConfig struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
	Cache       struct {
		Path          string  `yaml:"path"`
		TTL           string  `yaml:"ttl"`
		SweepInterval string  `yaml:"sweep_interval"`
		MinHitRate    *float64 `yaml:"min_hit_rate"`
		MaxErrors     int64   `yaml:"max_errors"`
	} `yaml:"cache"`
	OpenAI struct {
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Spoonacular struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"spoonacular"`
	ExpiringWithinDays int    `yaml:"expiring_within_days"`
	UnitOverrides      string `yaml:"unit_overrides"`
}

func defaults() Config {
	return Config{
		Port:     DefaultPort,
		LogLevel: "info",
		CacheConfig: CacheConfig{
			CacheTTL:           DefaultCacheTTL,
			CacheSweepInterval: DefaultCacheSweepInterval,
			CacheMinHitRate:    DefaultCacheMinHitRate,
			CacheMaxErrors:     DefaultCacheMaxErrors,
		},
		Providers: Providers{
			OpenAIModel:        DefaultOpenAIModel,
			SpoonacularBaseURL: DefaultSpoonacularURL,
		},
		ExpiringWithinDays: DefaultExpiringWithinDays,
	}
}

// Load builds a Config from defaults, the .env file, an optional YAML file
// and the environment, in increasing precedence. No field is required here;
// callers validate what they need.
func Load(path string) (Config, error) {
	cfg := defaults()

	// .env sits below the YAML file, so it is read into a map instead of
	// being loaded into the process environment. A missing file is fine.
	dotenv, err := godotenv.Read(DotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", DotEnvFile, err)
	}
	if err := applyEnv(&cfg, func(key string) string { return dotenv[key] }); err != nil {
		return Config{}, fmt.Errorf("%s: %w", DotEnvFile, err)
	}

	if path == "" {
		path = os.Getenv("PREPSENSE_CONFIG")
	}
	if path == "" {
		path = dotenv["PREPSENSE_CONFIG"]
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFlags validates flags and returns the server configuration
func ParseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("prepsense", flag.ContinueOnError)

	var (
		configPath  string
		port        int
		databaseURL string
		userSalt    string
		adminKey    string
		logLevel    string
		cachePath   string
	)
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.IntVar(&port, "p", 0, "Server port")
	fs.StringVar(&databaseURL, "d", "", "Database URL")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cachePath, "cache-path", "", "SQLite cache file (empty for in-memory)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&userSalt, "user-salt", "", "User key salt (prefer env)")
	fs.StringVar(&adminKey, "admin-key", "", "Admin key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(configPath)
	if err != nil {
		return Config{}, err
	}

	// CLI overrides everything else
	if port != 0 {
		cfg.Port = port
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cachePath != "" {
		cfg.CachePath = cachePath
	}
	if userSalt != "" {
		cfg.UserKeySalt = userSalt
	}
	if adminKey != "" {
		cfg.AdminKey = adminKey
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	// Secrets - MUST be provided
	if cfg.UserKeySalt == "" {
		return Config{}, errors.New("USER_KEY_SALT required")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Cache.Path != "" {
		cfg.CachePath = fc.Cache.Path
	}
	if fc.Cache.TTL != "" {
		d, err := time.ParseDuration(fc.Cache.TTL)
		if err != nil {
			return fmt.Errorf("parse config cache.ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if fc.Cache.SweepInterval != "" {
		d, err := time.ParseDuration(fc.Cache.SweepInterval)
		if err != nil {
			return fmt.Errorf("parse config cache.sweep_interval: %w", err)
		}
		cfg.CacheSweepInterval = d
	}
	if r := fc.Cache.MinHitRate; r != nil {
		if *r < 0 || *r > 1 {
			return fmt.Errorf("parse config cache.min_hit_rate: %g is outside [0, 1]", *r)
		}
		cfg.CacheMinHitRate = *r
	}
	if fc.Cache.MaxErrors < 0 {
		return fmt.Errorf("parse config cache.max_errors: must not be negative")
	}
	if fc.Cache.MaxErrors != 0 {
		cfg.CacheMaxErrors = fc.Cache.MaxErrors
	}
	if fc.OpenAI.Model != "" {
		cfg.OpenAIModel = fc.OpenAI.Model
	}
	if fc.OpenAI.BaseURL != "" {
		cfg.OpenAIBaseURL = fc.OpenAI.BaseURL
	}
	if fc.Spoonacular.BaseURL != "" {
		cfg.SpoonacularBaseURL = fc.Spoonacular.BaseURL
	}
	if fc.ExpiringWithinDays != 0 {
		cfg.ExpiringWithinDays = fc.ExpiringWithinDays
	}
	if fc.UnitOverrides != "" {
		cfg.UnitOverridesPath = fc.UnitOverrides
	}
	return nil
}

// applyEnv overlays the variables that getenv returns
func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		cfg.Port = port
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.UserKeySalt, "USER_KEY_SALT")
	setString(&cfg.AdminKey, "ADMIN_KEY")
	setString(&cfg.CachePath, "CACHE_PATH")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.SpoonacularAPIKey, "SPOONACULAR_API_KEY")
	setString(&cfg.SpoonacularBaseURL, "SPOONACULAR_BASE_URL")
	setString(&cfg.UnitOverridesPath, "UNIT_OVERRIDES")

	if v := getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid CACHE_TTL env variable")
		}
		cfg.CacheTTL = d
	}
	if v := getenv("CACHE_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid CACHE_SWEEP_INTERVAL env variable")
		}
		cfg.CacheSweepInterval = d
	}
	if v := getenv("CACHE_MIN_HIT_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return errors.New("invalid CACHE_MIN_HIT_RATE env variable")
		}
		cfg.CacheMinHitRate = f
	}
	if v := getenv("CACHE_MAX_ERRORS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.New("invalid CACHE_MAX_ERRORS env variable")
		}
		cfg.CacheMaxErrors = n
	}
	if v := getenv("EXPIRING_WITHIN_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errors.New("invalid EXPIRING_WITHIN_DAYS env variable")
		}
		cfg.ExpiringWithinDays = n
	}
	return nil
}
