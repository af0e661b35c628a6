package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Helper to clear all config-related env vars
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"CATALOG_CONFIG_PATH",
		"CATALOG_ADDRESS",
		"CATALOG_READ_TIMEOUT",
		"CATALOG_WRITE_TIMEOUT",
		"CATALOG_SHUTDOWN_TIMEOUT",
		"CATALOG_SERVER_API_KEY",
		"CATALOG_DB_PATH",
		"CATALOG_PAGE_CACHE_PATH",
		"CATALOG_REMOTE_URL",
		"CATALOG_API_TOKEN",
		"CATALOG_PAGE_TIMEOUT",
		"CATALOG_BATCH_TIMEOUT",
		"CATALOG_BATCH_SIZE",
		"CATALOG_BREAKER_FAILURES",
		"CATALOG_BREAKER_COOLDOWN",
		"CATALOG_PROBE_TIMEOUT",
		"CATALOG_DEFAULT_PAGE_SIZE",
		"CATALOG_MAX_CONCURRENT_READS",
		"CATALOG_SYNC_INTERVAL",
		"CATALOG_SYNC_ON_START",
		"CATALOG_LOG_LEVEL",
		"CATALOG_LOG_FORMAT",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Address != "127.0.0.1:8089" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Database.CatalogPath != "data/catalog.db" {
		t.Errorf("Database.CatalogPath = %q", cfg.Database.CatalogPath)
	}
	if cfg.Database.PageCachePath != "data/pagecache.db" {
		t.Errorf("Database.PageCachePath = %q", cfg.Database.PageCachePath)
	}
	if cfg.Remote.PageTimeout.Std() != 15*time.Second {
		t.Errorf("Remote.PageTimeout = %v, want 15s", cfg.Remote.PageTimeout.Std())
	}
	if cfg.Remote.BatchTimeout.Std() != 60*time.Second {
		t.Errorf("Remote.BatchTimeout = %v, want 60s", cfg.Remote.BatchTimeout.Std())
	}
	if cfg.Remote.BatchSize != 100 {
		t.Errorf("Remote.BatchSize = %d, want 100", cfg.Remote.BatchSize)
	}
	if cfg.Catalog.MaxConcurrentReads != 8 {
		t.Errorf("Catalog.MaxConcurrentReads = %d, want 8", cfg.Catalog.MaxConcurrentReads)
	}
	if cfg.Remote.Token != "" {
		t.Errorf("Remote.Token should default to empty, got %q", cfg.Remote.Token)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  address: "0.0.0.0:9000"
  shutdown_timeout: "5s"
database:
  catalog_path: "/var/lib/sfa/catalog.db"
remote:
  base_url: "https://erp.example.com/api"
  batch_size: 250
  batch_timeout: "2m"
worker:
  sync_interval: "30m"
  sync_on_start: true
log:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Server.Address != "0.0.0.0:9000" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Server.ShutdownTimeout.Std() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout.Std())
	}
	if cfg.Database.CatalogPath != "/var/lib/sfa/catalog.db" {
		t.Errorf("CatalogPath = %q", cfg.Database.CatalogPath)
	}
	if cfg.Database.PageCachePath != "data/pagecache.db" {
		t.Errorf("PageCachePath should keep its default, got %q", cfg.Database.PageCachePath)
	}
	if cfg.Remote.BaseURL != "https://erp.example.com/api" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.BatchSize != 250 {
		t.Errorf("BatchSize = %d", cfg.Remote.BatchSize)
	}
	if cfg.Remote.BatchTimeout.Std() != 2*time.Minute {
		t.Errorf("BatchTimeout = %v", cfg.Remote.BatchTimeout.Std())
	}
	if cfg.Worker.SyncInterval.Std() != 30*time.Minute || !cfg.Worker.SyncOnStart {
		t.Errorf("Worker = %+v", cfg.Worker)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
remote:
  base_url: "https://yaml.example.com"
  batch_size: 50
`)
	t.Setenv("CATALOG_REMOTE_URL", "https://env.example.com")
	t.Setenv("CATALOG_BATCH_SIZE", "75")
	t.Setenv("CATALOG_API_TOKEN", "tok-123")
	t.Setenv("CATALOG_PAGE_TIMEOUT", "7s")
	t.Setenv("CATALOG_SYNC_ON_START", "true")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Remote.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want env value", cfg.Remote.BaseURL)
	}
	if cfg.Remote.BatchSize != 75 {
		t.Errorf("BatchSize = %d, want 75", cfg.Remote.BatchSize)
	}
	if cfg.Remote.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", cfg.Remote.Token)
	}
	if cfg.Remote.PageTimeout.Std() != 7*time.Second {
		t.Errorf("PageTimeout = %v, want 7s", cfg.Remote.PageTimeout.Std())
	}
	if !cfg.Worker.SyncOnStart {
		t.Error("SyncOnStart = false, want true")
	}
}

func TestLoadFromFile_TokenNeverReadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
remote:
  token: "leaked"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Remote.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Remote.Token)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [unclosed")
	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("error = %v, want parsing error", err)
	}
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
remote:
  page_timeout: "soon"
`)
	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("error = %v, want invalid duration", err)
	}
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CATALOG_BATCH_TIMEOUT", "later")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable env duration")
	}
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
	}{
		{"bad url", "remote:\n  base_url: \"not a url\"\n", "remote.base_url"},
		{"batch size zero", "remote:\n  batch_size: 0\n", "remote.batch_size"},
		{"batch size too large", "remote:\n  batch_size: 501\n", "remote.batch_size"},
		{"zero page timeout", "remote:\n  page_timeout: \"0s\"\n", "remote.page_timeout"},
		{"no catalog path", "database:\n  catalog_path: \"\"\n", "database.catalog_path"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"zero concurrent reads", "catalog:\n  max_concurrent_reads: 0\n", "catalog.max_concurrent_reads"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, tt.yaml)

			_, err := LoadFromFile(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not name %s", err, tt.wantField)
			}
		})
	}
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	type wrapper struct {
		D Duration `yaml:"d"`
	}

	out, err := yaml.Marshal(wrapper{D: Duration(90 * time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "1m30s") {
		t.Errorf("marshalled = %q, want 1m30s", out)
	}

	var w wrapper
	if err := yaml.Unmarshal(out, &w); err != nil {
		t.Fatal(err)
	}
	if w.D.Std() != 90*time.Second {
		t.Errorf("D = %v, want 90s", w.D.Std())
	}
}
