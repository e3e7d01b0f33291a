// cliparse/cliparse_test.go
package cliparse

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("USER_KEY_SALT", "test-salt")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("expected cache ttl 90s, got %v", cfg.CacheTTL)
	}
	if cfg.SpoonacularBaseURL != DefaultSpoonacularURL {
		t.Errorf("expected default spoonacular url, got %q", cfg.SpoonacularBaseURL)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("USER_KEY_SALT", "env-salt")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "postgres://cli", "-user-salt", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.UserKeySalt != "s1" {
		t.Errorf("CLI should override env salt, got %q", cfg.UserKeySalt)
	}
}

func TestParseFlags_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("USER_KEY_SALT", "")

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
	if _, err := ParseFlags([]string{"-d", "postgres://x"}); err == nil {
		t.Error("expected error without USER_KEY_SALT")
	}
}

func TestParseFlags_InvalidEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("USER_KEY_SALT", "s")
	t.Setenv("CACHE_MIN_HIT_RATE", "1.5")

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error for out-of-range CACHE_MIN_HIT_RATE")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prepsense.yaml")
	content := `
port: 7000
database_url: postgres://from-file
cache:
  ttl: 10m
  min_hit_rate: 0.75
openai:
  model: gpt-test
expiring_within_days: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_MODEL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7000 {
		t.Errorf("expected port from file, got %d", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://from-file" {
		t.Errorf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("expected 10m ttl, got %v", cfg.CacheTTL)
	}
	if cfg.CacheMinHitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", cfg.CacheMinHitRate)
	}
	if cfg.OpenAIModel != "gpt-test" {
		t.Errorf("expected model from file, got %q", cfg.OpenAIModel)
	}
	if cfg.ExpiringWithinDays != 5 {
		t.Errorf("expected 5 days, got %d", cfg.ExpiringWithinDays)
	}

	// Environment beats the file
	t.Setenv("PORT", "7100")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7100 {
		t.Errorf("env should override file: got %d", cfg.Port)
	}
}

func TestLoad_DotEnvBelowYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"PORT", "DATABASE_URL", "LOG_LEVEL", "PREPSENSE_CONFIG"} {
		t.Setenv(key, "")
	}

	dotenv := "DATABASE_URL=postgres://from-dotenv\nLOG_LEVEL=debug\nPORT=7200\n"
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "prepsense.yaml")
	if err := os.WriteFile(path, []byte("database_url: postgres://from-yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://from-yaml" {
		t.Errorf("YAML should override .env: got %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" || cfg.Port != 7200 {
		t.Errorf("expected .env values where YAML is silent, got level %q port %d", cfg.LogLevel, cfg.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		t.Errorf(".env must not leak into the process environment, LOG_LEVEL=%q", v)
	}

	t.Setenv("DATABASE_URL", "postgres://from-env")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://from-env" {
		t.Errorf("environment should override YAML: got %q", cfg.DatabaseURL)
	}
}

func TestLoad_YAMLHitRateRange(t *testing.T) {
	t.Setenv("CACHE_MIN_HIT_RATE", "")
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("cache:\n  min_hit_rate: 1.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for min_hit_rate above 1")
	}

	zero := filepath.Join(dir, "zero.yaml")
	if err := os.WriteFile(zero, []byte("cache:\n  min_hit_rate: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(zero)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheMinHitRate != 0 {
		t.Errorf("expected explicit 0 to disable the alert, got %v", cfg.CacheMinHitRate)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLogger_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// A regular file is not a terminal, so records are JSON
	NewLogger(f, slog.LevelInfo).Info("hello", "k", 1)
	b, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 || b[0] != '{' {
		t.Errorf("expected a JSON record, got %q", b)
	}
}
