package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tesseradb/tessera/pkg/session"
)

// Config is the whole engine configuration.
type Config struct {
	Server    ServerConfig      `json:"server"`
	Log       LogConfig         `json:"log"`
	Catalog   CatalogConfig     `json:"catalog"`
	Stats     StatsConfig       `json:"stats"`
	Optimizer OptimizerConfig   `json:"optimizer"`
	Session   map[string]string `json:"session"`
}

// ServerConfig configures the MCP HTTP server.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or text
}

// CatalogConfig selects the table metadata backend.
type CatalogConfig struct {
	// Kind is one of: memory, json, sql, excel.
	Kind string `json:"kind"`
	// Name is the catalog name queries refer to.
	Name string `json:"name"`
	// Path locates the json or excel file.
	Path string `json:"path"`
	// Driver and DSN configure the sql kind: mysql, postgres or sqlite.
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// StatsConfig configures the statistics store.
type StatsConfig struct {
	// Dir is the on-disk store location; ignored when InMemory is set.
	Dir      string        `json:"dir"`
	InMemory bool          `json:"in_memory"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// OptimizerConfig bounds the rule driver.
type OptimizerConfig struct {
	MaxIterations int `json:"max_iterations"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8586,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Catalog: CatalogConfig{
			Kind: "memory",
			Name: "default",
		},
		Stats: StatsConfig{
			Dir:      "tessera-stats",
			InMemory: true,
			CacheTTL: time.Hour,
		},
		Optimizer: OptimizerConfig{
			MaxIterations: 10,
		},
		Session: map[string]string{},
	}
}

// LoadConfig loads configuration from a JSON file, layered over defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault tries the TESSERA_CONFIG env var and a few common
// paths, falling back to defaults.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("TESSERA_CONFIG"); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	possiblePaths := []string{
		"tessera.json",
		"./config/tessera.json",
		"/etc/tessera/config.json",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	return DefaultConfig()
}

// validateConfig rejects values the engine cannot run with.
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Catalog.Kind {
	case "memory":
	case "json", "excel":
		if config.Catalog.Path == "" {
			return fmt.Errorf("catalog kind %q requires a path", config.Catalog.Kind)
		}
	case "sql":
		if config.Catalog.Driver == "" || config.Catalog.DSN == "" {
			return fmt.Errorf("catalog kind sql requires driver and dsn")
		}
		switch config.Catalog.Driver {
		case "mysql", "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported catalog driver: %s", config.Catalog.Driver)
		}
	default:
		return fmt.Errorf("unsupported catalog kind: %s", config.Catalog.Kind)
	}

	if config.Optimizer.MaxIterations < 1 {
		return fmt.Errorf("optimizer max_iterations must be at least 1")
	}

	for name, value := range config.Session {
		def, ok := session.LookupProperty(name)
		if !ok {
			return fmt.Errorf("unknown session property in config: %s", name)
		}
		probe := session.New()
		if err := probe.Set(def.Name, value); err != nil {
			return fmt.Errorf("invalid session property %s: %w", name, err)
		}
	}

	return nil
}

// GetListenAddress returns the host:port the server binds.
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
