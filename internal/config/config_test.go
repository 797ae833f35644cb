package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper to capture slog output for testing warnings/debug messages
func captureSlogOutput(fn func()) string {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(oldLogger)

	fn()
	return buf.String()
}

func writeProps(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dagtemplate.properties")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config file: %v", err)
	}
	return path
}

func TestLoadConfig_FileFoundAndParsed(t *testing.T) {
	path := writeProps(t, strings.Join([]string{
		"# definition service",
		"server.addr = :9090",
		"dags.dir=/srv/dags   # scanned by the orchestrator",
		"ledger.path=/var/lib/dag/ledger.jsonl",
		"keys.dir=/etc/dag/keys",
		"kafka.bootstrap.servers=test.broker:9092",
		"kafka.topic=TestTopic",
		"cache.ttl=90s",
	}, "\n"))

	cfg := LoadConfig(path)
	want := AppConfig{
		ServerAddr:       ":9090",
		DagsDir:          "/srv/dags",
		LedgerPath:       "/var/lib/dag/ledger.jsonl",
		KeysDir:          "/etc/dag/keys",
		BootstrapServers: "test.broker:9092",
		Topic:            "TestTopic",
		CacheTTL:         90 * time.Second,
	}
	if cfg != want {
		t.Errorf("LoadConfig = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nonexistent.properties")
	var cfg AppConfig

	logOutput := captureSlogOutput(func() {
		cfg = LoadConfig(missing)
	})

	if cfg != Defaults() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if !strings.Contains(logOutput, "Failed to load config file") {
		t.Errorf("Expected warning about missing config file, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, missing) {
		t.Errorf("Expected missing file path in logs, got: %s", logOutput)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeProps(t, "kafka.topic=\ndags.dir=/tmp/dags\ncache.ttl=soon\n")
	var cfg AppConfig

	logOutput := captureSlogOutput(func() {
		cfg = LoadConfig(path)
	})

	if cfg.DagsDir != "/tmp/dags" {
		t.Errorf("Expected DagsDir '/tmp/dags', got '%s'", cfg.DagsDir)
	}
	if cfg.Topic != DefaultTopic {
		t.Errorf("Expected default topic, got '%s'", cfg.Topic)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("Expected default cache ttl, got %s", cfg.CacheTTL)
	}
	if !strings.Contains(logOutput, `"key":"kafka.topic"`) {
		t.Errorf("Expected debug log for empty key, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "Invalid duration in config") {
		t.Errorf("Expected warning for bad duration, got: %s", logOutput)
	}
}
