package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type MCPConfig struct {
	CacheSize       int `mapstructure:"cache_size" validate:"min=1"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" validate:"min=0"`
}

// Config mirrors the ASTDOCS_* environment. Rendering keys sit at the top
// level so that ASTDOCS_SHOW_PRIVATE and friends map onto them directly.
type Config struct {
	BoundObjects  bool        `mapstructure:"bound_objects"`
	FoldArgsAfter int         `mapstructure:"fold_args_after" validate:"min=1"`
	ShowPrivate   bool        `mapstructure:"show_private"`
	SplitBy       string      `mapstructure:"split_by" validate:"splitby"`
	WithLinenos   bool        `mapstructure:"with_linenos"`
	Cache         CacheConfig `mapstructure:"cache"`
	MCP           MCPConfig   `mapstructure:"mcp"`
}

// RenderOptions converts the rendering keys.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		FoldArgsAfter: c.FoldArgsAfter,
		SplitBy:       c.SplitBy,
		ShowPrivate:   c.ShowPrivate,
		WithLinenos:   c.WithLinenos,
		BoundObjects:  c.BoundObjects,
	}
}

// cacheBase returns the base cache directory for astdocs.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/astdocs as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "astdocs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "astdocs")
	}
	return filepath.Join(os.TempDir(), "astdocs")
}

// IndexPath returns the path to the SQLite objects index.
func IndexPath() string {
	return filepath.Join(cacheBase(), "index.db")
}

// CASDir returns the path to the rendered-output cache.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// InitializeViper wires defaults, the optional astdocs.toml file and the
// ASTDOCS_ environment into v.
func InitializeViper(v *viper.Viper) error {
	v.SetConfigName("astdocs")
	v.SetConfigType("toml")

	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "astdocs"))
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "astdocs"))
	}

	v.SetDefault("bound_objects", false)
	v.SetDefault("fold_args_after", render.DefaultFoldArgsAfter)
	v.SetDefault("show_private", false)
	v.SetDefault("split_by", "")
	v.SetDefault("with_linenos", false)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", "")
	v.SetDefault("mcp.cache_size", 128)
	v.SetDefault("mcp.cache_ttl_seconds", 300)

	v.SetEnvPrefix("ASTDOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// truthy matches the values the environment accepts as "on".
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

func stringToTruthyBoolHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t.Kind() != reflect.Bool || f.Kind() != reflect.String {
			return data, nil
		}
		return truthy(data.(string)), nil
	}
}

func validSplitBy(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !strings.ContainsRune("mfc", r) {
			return false
		}
	}
	return true
}

// Load reads the configuration through the global viper instance, which
// the CLI binds its flags to.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	if err := InitializeViper(v); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToTruthyBoolHookFunc(),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Cache.Dir == "" {
		config.Cache.Dir = CASDir()
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks value ranges after flags and environment are merged.
func Validate(config *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("splitby", validSplitBy); err != nil {
		return fmt.Errorf("registering validator: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
