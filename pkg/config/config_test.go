package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Postgres.Database != "meetings" {
		t.Errorf("Postgres.Database = %q, want meetings", cfg.Postgres.Database)
	}
	if cfg.Kafka.Topics.UsageEvents != "meeting-usage-events" {
		t.Errorf("Kafka.Topics.UsageEvents = %q", cfg.Kafka.Topics.UsageEvents)
	}
	if cfg.Search.DefaultLimit != 5 || cfg.Search.MaxResults != 50 {
		t.Errorf("Search limits = %d/%d, want 5/50", cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9999
  readTimeout: 5s
search:
  defaultLimit: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 30s", cfg.Server.WriteTimeout)
	}
	if cfg.Search.DefaultLimit != 3 {
		t.Errorf("Search.DefaultLimit = %d, want 3", cfg.Search.DefaultLimit)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("Search.MaxResults = %d, want default 50", cfg.Search.MaxResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MA_SERVER_PORT", "7070")
	t.Setenv("MA_POSTGRES_HOST", "db.internal")
	t.Setenv("MA_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MA_SEARCH_MAX_RESULTS", "25")
	t.Setenv("MA_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Search.MaxResults != 25 {
		t.Errorf("Search.MaxResults = %d, want 25", cfg.Search.MaxResults)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("MA_SERVER_PORT", "not-a-port")
	t.Setenv("MA_SEARCH_DEFAULT_LIMIT", "-4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("Search.DefaultLimit = %d, want default 5", cfg.Search.DefaultLimit)
	}
}

func TestDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5433, User: "svc", Password: "pw",
		Database: "meetings", SSLMode: "require",
	}
	want := "host=db port=5433 user=svc password=pw dbname=meetings sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
