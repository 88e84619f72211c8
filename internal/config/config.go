package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/containeroo/resolver"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing reports that no configuration file exists at the given path.
var ErrConfigMissing = errors.New("config missing")

const (
	defaultTimeout  = 15 * time.Second
	defaultCacheDir = "tasklens"
)

// LoadConfig reads, resolves and defaults the configuration at path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return cfg, err
	}
	setDefaults(&cfg)

	return cfg, nil
}

// ValidateConfig checks the consistency and correctness of cfg.
func ValidateConfig(cfg Config) error {
	var errs []string

	switch u, err := url.Parse(cfg.API.BaseURL); {
	case strings.TrimSpace(cfg.API.BaseURL) == "":
		errs = append(errs, "api.baseURL is required")
	case err != nil:
		errs = append(errs, fmt.Sprintf("api.baseURL is invalid: %v", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Sprintf("api.baseURL %q must use http or https", cfg.API.BaseURL))
	}

	if cfg.API.BearerToken == "" && (cfg.API.Email == "" || cfg.API.Token == "") {
		errs = append(errs, "api: either bearerToken or email+token is required")
	}
	if cfg.API.Timeout < 0 {
		errs = append(errs, "api.timeout must be >= 0")
	}

	seen := make(map[string]string, len(cfg.Terms))
	for common, api := range cfg.Terms {
		if strings.TrimSpace(common) == "" || strings.TrimSpace(api) == "" {
			errs = append(errs, fmt.Sprintf("terms: empty name in %q -> %q", common, api))
			continue
		}
		if other, ok := seen[api]; ok {
			errs = append(errs, fmt.Sprintf("terms: API name %q mapped by both %q and %q", api, other, common))
		}
		seen[api] = common
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// resolveSecrets expands env:/file: references in credential fields.
func resolveSecrets(cfg *Config) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"api.email", &cfg.API.Email},
		{"api.token", &cfg.API.Token},
		{"api.bearerToken", &cfg.API.BearerToken},
		{"user.email", &cfg.User.Email},
	}
	for _, f := range fields {
		if *f.dst == "" {
			continue
		}
		val, err := resolver.ResolveVariable(*f.dst)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f.name, err)
		}
		*f.dst = strings.TrimSpace(val)
	}
	return nil
}

// setDefaults fills in values the file left empty.
func setDefaults(cfg *Config) {
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.User.Email == "" {
		cfg.User.Email = cfg.API.Email
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir()
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
}

// DefaultCacheDir returns the per-user cache location, falling back to a
// relative directory when the user cache dir is unknown.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".cache", defaultCacheDir)
	}
	return filepath.Join(base, defaultCacheDir)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
