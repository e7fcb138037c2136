// Package config loads the application configuration: storage and
// database locations plus the gateway listen port.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const appName = "filedrop"

type Config struct {
	Environment string `yaml:"environment"`
	Storage     struct {
		Path     string `yaml:"path"`
		Database string `yaml:"database"`
	} `yaml:"storage"`
	API struct {
		Port string `yaml:"port"`
	} `yaml:"api"`
}

// Load reads config.yaml (or CONFIG_PATH), falling back to defaults
// when the file is missing or malformed. FILEDROP_ENV and
// FILEDROP_PORT override their file counterparts.
func Load(fs afero.Fs, logger *log.Logger) *Config {
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	config := defaultConfig()

	data, err := afero.ReadFile(fs, configPath)
	if err != nil {
		logger.Info("no config file, using defaults", "path", configPath)
	} else if err := yaml.Unmarshal(data, config); err != nil {
		logger.Warn("failed to parse config file, using defaults", "path", configPath, "error", err)
		config = defaultConfig()
	}

	if env := os.Getenv("FILEDROP_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("FILEDROP_PORT"); port != "" {
		config.API.Port = port
	}

	return config
}

func defaultConfig() *Config {
	config := &Config{Environment: "development"}
	config.Storage.Path = "storage"
	config.Storage.Database = filepath.Join("data", "filedrop.db")
	config.API.Port = "8080"
	return config
}

// StorageDir returns the resolved storage directory.
func (c *Config) StorageDir() string {
	return c.resolve(c.Storage.Path)
}

// DatabasePath returns the resolved database file path.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Storage.Database)
}

// resolve anchors relative paths: the user data directory in
// production, the working directory in development.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if c.Environment == "production" {
		return filepath.Join(xdg.DataHome, appName, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
