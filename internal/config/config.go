package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mikequentel/tweetharvest/internal/model"
)

const (
	DefaultFile    = "harvest.yaml"
	DefaultEnvFile = ".env"

	envPrefix = "HARVEST_"
)

// Backends understood by the source package.
const (
	BackendV1     = "v1"
	BackendV2     = "v2"
	BackendNitter = "nitter"
)

var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	Backend     string            `koanf:"backend"`
	Credentials model.Credentials `koanf:"credentials"`
	API         APIConfig         `koanf:"api"`
	Nitter      NitterConfig      `koanf:"nitter"`
	Timeline    TimelineConfig    `koanf:"timeline"`
	Search      SearchConfig      `koanf:"search"`
	Output      OutputConfig      `koanf:"output"`
	Log         LogConfig         `koanf:"log"`
}

type APIConfig struct {
	// BaseURL overrides the v2 API host. The v1 client has its own fixed base.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type NitterConfig struct {
	Instance string `koanf:"instance"`
}

type TimelineConfig struct {
	Limit model.Limit `koanf:"limit"`
}

type SearchConfig struct {
	Limit model.Limit `koanf:"limit"`
	Lang  string      `koanf:"lang"`
}

type OutputConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

var defaults = map[string]any{
	"backend":         BackendV1,
	"api.timeout":     "30s",
	"nitter.instance": "nitter.net",
	"timeline.limit":  int(model.Unbounded),
	"search.limit":    5,
	"search.lang":     "en",
	"log.level":       "info",
}

// credentialVars maps the conventional X_* variables onto config keys.
var credentialVars = map[string]string{
	"X_CONSUMER_KEY":    "credentials.consumer_key",
	"X_CONSUMER_SECRET": "credentials.consumer_secret",
	"X_ACCESS_TOKEN":    "credentials.access_token",
	"X_ACCESS_SECRET":   "credentials.access_token_secret",
}

// Load builds the configuration from defaults, an optional YAML file, a
// .env file and the environment, in that order. An empty path falls back
// to DefaultFile, which may be absent; an explicit path must exist.
func Load(path, envFile string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := k.Load(env.ProviderWithValue("X_", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return credentialVars[key], value
	}), nil); err != nil {
		return nil, fmt.Errorf("load credential env: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load %s env: %w", envPrefix, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts of the config every command relies on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendV1, BackendV2:
		if !c.Credentials.Complete() {
			return fmt.Errorf("%w for backend %s: need %s", ErrMissingCredentials, c.Backend, strings.Join(c.missingCredentials(), ", "))
		}
	case BackendNitter:
		if c.Nitter.Instance == "" {
			return errors.New("nitter.instance is required for the nitter backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendV1, BackendV2, BackendNitter)
	}
	if !c.Timeline.Limit.Valid() {
		return fmt.Errorf("timeline.limit must be >= 0, got %d", c.Timeline.Limit)
	}
	if !c.Search.Limit.Valid() {
		return fmt.Errorf("search.limit must be >= 0, got %d", c.Search.Limit)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) missingCredentials() []string {
	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"X_CONSUMER_KEY", c.Credentials.ConsumerKey},
		{"X_CONSUMER_SECRET", c.Credentials.ConsumerSecret},
		{"X_ACCESS_TOKEN", c.Credentials.AccessToken},
		{"X_ACCESS_SECRET", c.Credentials.AccessTokenSecret},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	return missing
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
