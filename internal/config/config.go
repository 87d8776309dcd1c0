package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects everything the process needs to serve the stand.
type Config struct {
	ListenPort    string `yaml:"listen_port"`
	DataDir       string `yaml:"data_dir"`
	AdminPIN      string `yaml:"admin_pin"`
	SessionSecret string `yaml:"session_secret"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenPort: "5000",
		DataDir:    ".",
		AdminPIN:   "5024",
		// Override in production; the default only exists so local runs work out of the box.
		SessionSecret: "snackstand_secret_key_123",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file: %w", err)
		}
	}

	cfg.ListenPort = getEnv("SERVER_PORT", cfg.ListenPort)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.AdminPIN = getEnv("ADMIN_PIN", cfg.AdminPIN)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.ListenPort == "" {
		return fmt.Errorf("listen_port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.AdminPIN == "" {
		return fmt.Errorf("admin_pin is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("session_secret is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
