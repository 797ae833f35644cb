package config

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	DefaultServerAddr       = ":8080"
	DefaultDagsDir          = "./dags"
	DefaultLedgerPath       = "./ledger.jsonl"
	DefaultKeysDir          = "./keys"
	DefaultBootstrapServers = "localhost:9092"
	DefaultTopic            = "dag-definitions"
	DefaultCacheTTL         = 5 * time.Minute
)

type AppConfig struct {
	ServerAddr       string
	DagsDir          string
	LedgerPath       string
	KeysDir          string
	BootstrapServers string
	Topic            string
	CacheTTL         time.Duration
}

// Defaults returns the configuration used when no file is available.
func Defaults() AppConfig {
	return AppConfig{
		ServerAddr:       DefaultServerAddr,
		DagsDir:          DefaultDagsDir,
		LedgerPath:       DefaultLedgerPath,
		KeysDir:          DefaultKeysDir,
		BootstrapServers: DefaultBootstrapServers,
		Topic:            DefaultTopic,
		CacheTTL:         DefaultCacheTTL,
	}
}

// loadProperties reads a properties file (key=value format) and returns a map.
func loadProperties(filePath string) (map[string]string, error) {
	props := make(map[string]string)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.SplitN(scanner.Text(), "#", 2)[0]
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if key != "" {
				props[key] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return props, nil
}

// LoadConfig reads filePath, falling back to Defaults for the whole file
// when it cannot be read and per key when a key is missing or invalid.
func LoadConfig(filePath string) AppConfig {
	props, err := loadProperties(filePath)
	if err != nil {
		slog.Warn("Failed to load config file, using default settings", "path", filePath, "error", err)
		return Defaults()
	}

	getStringOrDefault := func(key string, defaultValue string) string {
		if val, ok := props[key]; ok && val != "" {
			return val
		}
		slog.Debug("Config key not found or empty, using default", "key", key, "default_value", defaultValue)
		return defaultValue
	}

	getDurationOrDefault := func(key string, defaultValue time.Duration) time.Duration {
		val, ok := props[key]
		if !ok || val == "" {
			slog.Debug("Config key not found or empty, using default", "key", key, "default_value", defaultValue.String())
			return defaultValue
		}
		d, err := time.ParseDuration(val)
		if err != nil || d < 0 {
			slog.Warn("Invalid duration in config, using default", "key", key, "value", val, "default_value", defaultValue.String())
			return defaultValue
		}
		return d
	}

	return AppConfig{
		ServerAddr:       getStringOrDefault("server.addr", DefaultServerAddr),
		DagsDir:          getStringOrDefault("dags.dir", DefaultDagsDir),
		LedgerPath:       getStringOrDefault("ledger.path", DefaultLedgerPath),
		KeysDir:          getStringOrDefault("keys.dir", DefaultKeysDir),
		BootstrapServers: getStringOrDefault("kafka.bootstrap.servers", DefaultBootstrapServers),
		Topic:            getStringOrDefault("kafka.topic", DefaultTopic),
		CacheTTL:         getDurationOrDefault("cache.ttl", DefaultCacheTTL),
	}
}
