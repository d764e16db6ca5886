// ABOUTME: Configuration loading for patter-tui
// ABOUTME: Loads TOML config from XDG path with environment variable expansion

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server ServerConfig `toml:"server"`
}

type ServerConfig struct {
	URL string `toml:"url"`
}

// defaultConfig returns the config used when no file exists.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{URL: "http://localhost:8080"},
	}
}

// getConfigPath returns the path to the TUI config file.
// Priority: PATTER_TUI_CONFIG env var > XDG_CONFIG_HOME/patter/tui.toml > ~/.config/patter/tui.toml
func getConfigPath() string {
	if envPath := os.Getenv("PATTER_TUI_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "tui.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "patter", "tui.toml")
}

// loadConfig reads the TUI config, expanding environment variables. A
// missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	cfg := defaultConfig()
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
