// Package config loads and validates codemap settings from a config file,
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Name is the config file base name and the environment prefix.
const Name = "codemap"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the full application configuration.
type Config struct {
	Debug bool `mapstructure:"debug"`
	JSON  bool `mapstructure:"json"`

	DataDir        string `mapstructure:"data-dir" validate:"required"`
	EmbeddingsFile string `mapstructure:"embeddings-file"`

	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`

	Store       string `mapstructure:"store" validate:"oneof=postgres memory"`
	DatabaseURL string `mapstructure:"database-url" validate:"required_if=Store postgres"`
	Fixtures    string `mapstructure:"fixtures"`

	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`

	TopK int `mapstructure:"top-k" validate:"gte=1,lte=50"`
}

// EmbeddingConfig selects the embedding model and corpus build parallelism.
type EmbeddingConfig struct {
	Model     string `mapstructure:"model" validate:"required"`
	Workers   int    `mapstructure:"workers" validate:"gte=1,lte=64"`
	BatchSize int    `mapstructure:"batch-size" validate:"gte=1,lte=100"`
}

// LLMConfig configures the text-generation client.
type LLMConfig struct {
	APIKey  string        `mapstructure:"api-key" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// Enrich turns on per-match descriptions and requirement extraction.
	Enrich bool `mapstructure:"enrich"`
	// Model overrides the standard tier model when set.
	Model string `mapstructure:"model"`
}

// RedisConfig configures the enrichment cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default-limit" validate:"gte=0"`
	DefaultWindow time.Duration `mapstructure:"default-window" validate:"gt=0"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// Defaults are applied before the config file and environment.
var Defaults = map[string]any{
	"debug":                     false,
	"json":                      false,
	"data-dir":                  "data",
	"embeddings-file":           "",
	"embedding.model":           "text-embedding-004",
	"embedding.workers":         4,
	"embedding.batch-size":      32,
	"llm.api-key":               "",
	"llm.timeout":               30 * time.Second,
	"llm.enrich":                true,
	"llm.model":                 "",
	"store":                     StorePostgres,
	"database-url":              "",
	"fixtures":                  "",
	"redis.addr":                "",
	"redis.password":            "",
	"redis.db":                  0,
	"redis.ttl":                 24 * time.Hour,
	"server.port":               8080,
	"server.shutdown-timeout":   30 * time.Second,
	"rate-limit.enabled":        true,
	"rate-limit.default-limit":  1000,
	"rate-limit.default-window": time.Minute,
	"rate-limit.whitelist":      []string{},
	"rate-limit.blacklist":      []string{},
	"top-k":                     3,
}

// conventionalEnv are unprefixed variables accepted alongside CODEMAP_*.
var conventionalEnv = map[string]string{
	"database-url": "DATABASE_URL",
	"llm.api-key":  "GEMINI_API_KEY",
	"redis.addr":   "REDIS_ADDR",
}

// Bind registers defaults and environment bindings on v.
func Bind(v *viper.Viper) error {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, env := range conventionalEnv {
		prefixed := strings.ToUpper(Name) + "_" + strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToUpper(key))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}
	return nil
}

// Load reads file (or codemap.yaml in the working directory when file is
// empty) into v and returns the validated configuration. A missing default
// file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := Bind(v); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FieldError is one failed rule, keyed by the config key.
type FieldError struct {
	Key   string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Key + " is required"
	case "required_if":
		return f.Key + " is required when " + strings.Replace(f.Param, " ", " is ", 1)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Key, f.Param)
	default:
		if f.Param != "" {
			return fmt.Sprintf("%s failed %s=%s", f.Key, f.Rule, f.Param)
		}
		return fmt.Sprintf("%s failed %s", f.Key, f.Rule)
	}
}

// ValidationError reports every invalid key at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks c and returns a *ValidationError listing every problem.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		param := fe.Param()
		if fe.Tag() == "required_if" {
			param = strings.ToLower(param[:1]) + param[1:]
		}
		out.Fields = append(out.Fields, FieldError{Key: key, Rule: fe.Tag(), Param: param})
	}
	return out
}

