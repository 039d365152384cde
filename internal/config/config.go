// Package config loads the client configuration: embedded defaults, then an
// optional user file (YAML or TOML), then CRMX_* environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

// Environment variables.
const (
	EnvConfig         = "CRMX_CONFIG"
	EnvBackendURL     = "CRMX_BACKEND_URL"
	EnvIDPURL         = "CRMX_IDP_URL"
	EnvIDPAPIKey      = "CRMX_IDP_API_KEY"
	EnvNATSURL        = "CRMX_NATS_URL"
	EnvS3Bucket       = "CRMX_S3_BUCKET"
	EnvS3Endpoint     = "CRMX_S3_ENDPOINT"
	EnvSessionDir     = "CRMX_SESSION_DIR"
	EnvPollInterval   = "CRMX_POLL_INTERVAL"
	EnvRequestTimeout = "CRMX_REQUEST_TIMEOUT"
	EnvMetricsAddr    = "CRMX_METRICS_ADDR"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// DefaultYAML returns a copy of the embedded defaults.
func DefaultYAML() []byte {
	return slices.Clone(defaultConfigYAML)
}

// Options control where Load looks.
type Options struct {
	// Path is the --config-file flag value.
	Path string
	// EnvFile is the --env-file flag value; empty means DefaultEnvFile if
	// it exists.
	EnvFile string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// UserConfigDir overrides the XDG/home lookup in tests.
	UserConfigDir string
}

// Load builds the merged configuration and returns the user file it read,
// if any.
func Load(opts Options) (*Config, string, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, "", err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg, err := Default()
	if err != nil {
		return nil, "", err
	}

	path, err := resolvePath(opts, getenv)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, "", err
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Default decodes the embedded defaults.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("decode default config: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// resolvePath picks the flag, then $CRMX_CONFIG, then the first existing
// file under the user config directory.
func resolvePath(opts Options, getenv func(string) string) (string, error) {
	if opts.Path != "" {
		return opts.Path, nil
	}
	if p := getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir := opts.UserConfigDir
	if dir == "" {
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = xdg
		} else if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			return "", nil
		}
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		candidate := filepath.Join(dir, "crmx", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// mergeFile decodes path on top of cfg. TOML is converted to YAML first so
// both formats share the yaml struct tags.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
		if data, err = yaml.Marshal(doc); err != nil {
			return fmt.Errorf("convert config %s: %w", path, err)
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := []struct {
		key    string
		target *string
	}{
		{EnvBackendURL, &cfg.Backend.URL},
		{EnvIDPURL, &cfg.Identity.URL},
		{EnvIDPAPIKey, &cfg.Identity.APIKey},
		{EnvNATSURL, &cfg.Events.NATSURL},
		{EnvS3Bucket, &cfg.Attachments.Bucket},
		{EnvS3Endpoint, &cfg.Attachments.Endpoint},
		{EnvSessionDir, &cfg.Session.Dir},
		{EnvMetricsAddr, &cfg.Metrics.Addr},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.target = v
		}
	}
	if cfg.Attachments.Bucket != "" && getenv(EnvS3Bucket) != "" {
		cfg.Attachments.Provider = "s3"
	}
	durations := []struct {
		key    string
		target *Duration
	}{
		{EnvPollInterval, &cfg.Chat.PollInterval},
		{EnvRequestTimeout, &cfg.Backend.Timeout},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		if err := d.target.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for _, s := range c.Screens {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("screen %q is defined twice", s.Name))
		}
		seen[s.Name] = true
	}
	if len(c.Paging.Sizes) == 0 {
		errs = append(errs, errors.New("paging.sizes is empty"))
	} else if err := pager.New(c.Paging.Default).Validate(c.Paging.Sizes); err != nil {
		errs = append(errs, fmt.Errorf("paging.default: %w", err))
	}
	if c.Chat.PollInterval.Std() < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("chat.poll_interval %s is too short", c.Chat.PollInterval))
	}
	if c.Backend.Timeout.Std() < 0 {
		errs = append(errs, errors.New("backend.timeout is negative"))
	}
	if _, err := c.History.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Screen returns the named screen.
func (c *Config) Screen(name string) (model.Screen, error) {
	for _, s := range c.Screens {
		if s.Name == name {
			return s, nil
		}
	}
	return model.Screen{}, fmt.Errorf("unknown screen %q (have %s)", name, strings.Join(c.ScreenNames(), ", "))
}

// ScreenNames lists the configured screens in order.
func (c *Config) ScreenNames() []string {
	names := make([]string, len(c.Screens))
	for i, s := range c.Screens {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the value at a dotted key such as "chat.poll_interval".
// An empty key returns the whole configuration.
func (c *Config) Lookup(key string) (any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if key == "" {
		return doc, nil
	}
	cur := doc
	for _, part := range strings.Split(key, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("config key %q not found", key)
			}
			cur = v
		case []any:
			i := slices.IndexFunc(node, func(item any) bool {
				m, ok := item.(map[string]any)
				return ok && m["name"] == part
			})
			if i < 0 {
				return nil, fmt.Errorf("config key %q not found", key)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("config key %q not found", key)
		}
	}
	return cur, nil
}
