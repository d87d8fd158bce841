// Package config loads aiops settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "aiops.yaml"

// EnvPrefix prefixes every environment override, e.g. AIOPS_SERVER_ADDR.
const EnvPrefix = "AIOPS"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Gateways   GatewaysConfig   `mapstructure:"gateways"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// RequestTimeout bounds one POST /task, all three stages included.
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ProviderConfig struct {
	Name        string  `mapstructure:"name"`
	APIKey      Secret  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
}

type ToolsConfig struct {
	Weather WeatherConfig `mapstructure:"weather"`
	GitHub  GitHubConfig  `mapstructure:"github"`
}

type WeatherConfig struct {
	GeocodeURL  string        `mapstructure:"geocode_url"`
	ForecastURL string        `mapstructure:"forecast_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	GeocodeRate float64       `mapstructure:"geocode_rate"`
}

type GitHubConfig struct {
	Token   Secret        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Limit   int           `mapstructure:"limit"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GovernanceConfig struct {
	DenyTools    []string `mapstructure:"deny_tools"`
	DenyPatterns []string `mapstructure:"deny_patterns"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	LLMLogPath string `mapstructure:"llm_log_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
}

type CacheConfig struct {
	// Path of the SQLite geocode cache. Empty disables caching.
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type GatewaysConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   Secret `mapstructure:"token"`
}

type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Secret wraps strings that should be redacted in logs and serialization.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value.
func (s Secret) Value() string {
	return string(s)
}

func (s Secret) IsSet() bool {
	return s != ""
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// legacyEnv maps the variable names the service has always honoured onto
// config keys.
var legacyEnv = map[string]string{
	"provider.api_key":        "LLM_API_KEY",
	"provider.model":          "LLM_MODEL",
	"tools.github.token":      "GITHUB_TOKEN",
	"gateways.telegram.token": "TELEGRAM_BOT_TOKEN",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "AI Ops Assistant")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "gpt-4o-mini")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.temperature", 0.0)

	v.SetDefault("tools.weather.geocode_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("tools.weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("tools.weather.user_agent", "ai-ops-assistant")
	v.SetDefault("tools.weather.timeout", 10*time.Second)
	v.SetDefault("tools.weather.geocode_rate", 1.0)

	v.SetDefault("tools.github.token", "")
	v.SetDefault("tools.github.base_url", "")
	v.SetDefault("tools.github.limit", 5)
	v.SetDefault("tools.github.timeout", 10*time.Second)

	v.SetDefault("governance.deny_tools", []string{})
	v.SetDefault("governance.deny_patterns", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.llm_log_path", "")
	v.SetDefault("logging.max_size_mb", 10)

	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl", 30*24*time.Hour)

	v.SetDefault("gateways.telegram.enabled", false)
	v.SetDefault("gateways.telegram.token", "")

	v.SetDefault("prompts.dir", "")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration. Precedence (highest to lowest):
//  1. Environment (AIOPS_* and the legacy names in legacyEnv)
//  2. .env in the working directory, for variables not already set
//  3. The YAML file at path, or ./aiops.yaml when path is empty
//  4. Built-in defaults
//
// An explicit path must exist; the implicit one may be missing.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if _, err := os.Stat(DefaultFile); err == nil {
		v.SetConfigFile(DefaultFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", DefaultFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv copies variables from a dotenv file into the process
// environment without overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Tools.GitHub.Limit <= 0 {
		return errors.New("tools.github.limit must be positive")
	}
	if c.Tools.Weather.GeocodeRate < 0 {
		return errors.New("tools.weather.geocode_rate must not be negative")
	}
	if c.Gateways.Telegram.Enabled && !c.Gateways.Telegram.Token.IsSet() {
		return errors.New("gateways.telegram.token is required when telegram is enabled")
	}
	return nil
}
