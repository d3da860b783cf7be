package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"repdata/internal/common"
	"repdata/pkg/models"
)

// ConfigEnv overrides the config file location.
const ConfigEnv = "REPDATA_CONFIG"

// EnvPrefix is the prefix of environment overrides, e.g. REPDATA_PIPELINE_STRATEGY.
const EnvPrefix = "REPDATA"

// GetConfigPath returns the directory holding config.yaml.
func GetConfigPath() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".repdata")
}

// GetConfigFile returns the config file location.
func GetConfigFile() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		if cleaned, err := common.CleanPath(configFile); err == nil {
			return cleaned
		}
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// LoadDotEnv loads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// NewViper returns a viper instance with defaults and REPDATA_* environment
// overrides registered for every config key.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the config file at path into v, applies defaults and
// overrides, and validates the result. A missing file is allowed when the
// environment supplies everything required.
func Load(v *viper.Viper, path string) (*models.Config, error) {
	if path == "" {
		path = GetConfigFile()
	}
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	v.SetConfigFile(cleaned)
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", cleaned, err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &nf)
}

// Save writes cfg to path as YAML with owner-only permissions.
func Save(cfg *models.Config, path string) error {
	if path == "" {
		path = GetConfigFile()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := common.WriteFileSecure(path, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	if path == "" {
		path = GetConfigFile()
	}
	_, err := os.Stat(path)
	return err == nil
}
