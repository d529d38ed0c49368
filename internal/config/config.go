package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// CatalogConfig configures the artifact catalog cache and its providers.
type CatalogConfig struct {
	SchemaVersion string            `mapstructure:"schema-version"`
	Endpoints     map[string]string `mapstructure:"endpoints"`
	FetchTimeout  string            `mapstructure:"fetch-timeout"`
}

// LLMConfig selects and configures the blueprint generation engine.
type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // "local", "gemini" or "none"
	BaseURL      string `mapstructure:"base-url"` // local chat API base URL
	Model        string `mapstructure:"model"`
	GeminiAPIKey string `mapstructure:"gemini-api-key"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data-dir"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.port", 4600)
	v.SetDefault("catalog.schema-version", "v1")
	v.SetDefault("catalog.fetch-timeout", "8s")
	v.SetDefault("catalog.endpoints", map[string]string{})
	v.SetDefault("llm.provider", "local")
	v.SetDefault("llm.base-url", "http://localhost:11434")
	v.SetDefault("llm.model", "mistral-nemo")
	v.SetDefault("storage.data-dir", defaultDataDir())
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "jobpilot")
	}
	return ".jobpilot"
}

// Load reads configuration from the given file (optional, jobpilot.yaml in the
// current directory when empty) and JOBPILOT_* environment variables.
// Environment variables override file values on all platforms.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("JOBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("jobpilot")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// Missing file is fine, everything has a default.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.LLM.Provider == "gemini" && cfg.LLM.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("llm provider is gemini but no API key is set; " +
			"set it via JOBPILOT_LLM_GEMINI_API_KEY or llm.gemini-api-key in the config file")
	}

	return cfg, nil
}
