package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runner settings. Agent definitions are loaded separately by
// the agent package; nothing here describes a particular agent.
type Config struct {
	// Provider API configuration
	API APIConfig `mapstructure:"api"`

	// Diagnostic logging
	Log LogConfig `mapstructure:"log"`

	// Result rendering
	Output OutputConfig `mapstructure:"output"`
}

type APIConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Key         string `mapstructure:"key"`          // plaintext fallback; prefer env or keychain
	UseKeychain bool   `mapstructure:"use_keychain"` // consult the OS keychain for the key
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // empty = stderr only
	JSON  bool   `mapstructure:"json"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"` // text, json, quiet
}

const (
	// DefaultBaseURL mirrors llm.DefaultBaseURL; config cannot import llm
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	envPrefix = "AGENTRUN"
	dirName   = ".agentrun"
)

// Default returns default configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			UseKeychain: true,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// DefaultConfigPath returns ~/.agentrun/config.yaml
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, dirName, "config.yaml")
}

// Load loads configuration from file. An empty path searches
// ./.agentrun, . and ~/.agentrun for config.yaml; finding nothing is not an error.
func Load(path string) (*Config, error) {
	// .env files first so OPENROUTER_API_KEY and AGENTRUN_* are visible below
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.key", cfg.API.Key)
	v.SetDefault("api.use_keychain", cfg.API.UseKeychain)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("output.format", cfg.Output.Format)

	// AGENTRUN_API_BASE_URL, AGENTRUN_LOG_LEVEL, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(dirName)
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, dirName))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Log.File = expandPath(cfg.Log.File)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides a variable that is already set, so earlier files win.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, dirName, ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("api.base_url", c.API.BaseURL)
	v.Set("api.key", c.API.Key)
	v.Set("api.use_keychain", c.API.UseKeychain)
	v.Set("log.level", c.Log.Level)
	v.Set("log.file", c.Log.File)
	v.Set("log.json", c.Log.JSON)
	v.Set("output.format", c.Output.Format)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// the file may hold a plaintext key
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict config permissions: %w", err)
	}
	return nil
}
