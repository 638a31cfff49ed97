// Package config loads kmigrator settings from .kmigrator.yaml, KMIGRATOR_*
// environment variables and the project's .env files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem every component reads and writes through.
var AppFs = afero.NewOsFs()

// FileName is the config file name without extension.
const FileName = ".kmigrator"

// Config holds the application configuration
type Config struct {
	CacheDir            string `mapstructure:"cache_dir"`
	MigrationsDir       string `mapstructure:"migrations_dir"`
	EntryPath           string `mapstructure:"entry_path"`
	DisableModelChoices bool   `mapstructure:"disable_model_choices"`
	NodeBin             string `mapstructure:"node_bin"`
	PythonBin           string `mapstructure:"python_bin"`
	Debug               bool   `mapstructure:"debug"`
	AppLabel            string `mapstructure:"app_label"`
	ViewsSchema         string `mapstructure:"views_schema"`
	SourceSchema        string `mapstructure:"source_schema"`

	// File is the config file in use, if any.
	File string `mapstructure:"-"`
}

// Defaults lists every key with its default value.
var Defaults = map[string]any{
	"cache_dir":             ".kmigrator",
	"migrations_dir":        "migrations",
	"entry_path":            "./index.js",
	"disable_model_choices": true,
	"node_bin":              "node",
	"python_bin":            "python3",
	"debug":                 false,
	"app_label":             "_django_schema",
	"views_schema":          "analytics",
	"source_schema":         "public",
}

// New returns a viper instance with search paths, env binding and defaults.
func New() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "kmigrator"))

	v.SetEnvPrefix("KMIGRATOR")
	v.AutomaticEnv()

	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	return v, nil
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return Load(v)
}

// Load reads the env files and the config file into a Config.
func Load(v *viper.Viper) (*Config, error) {
	// .env.local has higher priority than .env
	if err := loadEnvFile(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnvFile(".env.local", true); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// loadEnvFile sets the variables of a dotenv file. Existing variables are
// kept unless override is set.
func loadEnvFile(name string, override bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for k, val := range vars {
		if _, exists := os.LookupEnv(k); exists && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a Config holding only the default values.
func Default() *Config {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Resolve makes the directory settings absolute. The capture scripts run
// under node and resolve paths against their own working directory.
func (c *Config) Resolve() error {
	for _, p := range []*string{&c.CacheDir, &c.MigrationsDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return err
		}
		*p = abs
	}
	return nil
}

// SaveConfig writes cfg as a .kmigrator.yaml file in dir.
func SaveConfig(cfg *Config, dir string) (string, error) {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("cache_dir", cfg.CacheDir)
	v.Set("migrations_dir", cfg.MigrationsDir)
	v.Set("entry_path", cfg.EntryPath)
	v.Set("disable_model_choices", cfg.DisableModelChoices)
	v.Set("node_bin", cfg.NodeBin)
	v.Set("python_bin", cfg.PythonBin)
	v.Set("app_label", cfg.AppLabel)
	v.Set("views_schema", cfg.ViewsSchema)
	v.Set("source_schema", cfg.SourceSchema)

	if err := AppFs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName+".yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
