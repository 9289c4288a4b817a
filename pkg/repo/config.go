package repo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/mgit/pkg/object"
)

const configFile = "config"

// ErrIdentityUnset is returned when a commit needs an author but user.name
// or user.email is not configured.
var ErrIdentityUnset = errors.New("author identity unknown: set user.name and user.email")

// Config stores repository-local settings in .mgit/config (TOML):
//
//	[user]
//	name = "Ada Lovelace"
//	email = "ada@example.com"
//
//	[core]
//	timezone = "Asia/Tokyo"
//	cache_size = 256
type Config struct {
	User UserConfig `toml:"user"`
	Core CoreConfig `toml:"core"`
}

// UserConfig is the identity recorded in new commits.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// CoreConfig holds storage and formatting settings.
type CoreConfig struct {
	// Timezone is an IANA zone name used for commit timestamps; empty
	// means the local zone.
	Timezone string `toml:"timezone,omitempty"`
	// CacheSize is the number of objects kept in the read cache.
	CacheSize int `toml:"cache_size"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{Core: CoreConfig{CacheSize: object.DefaultCacheSize}}
}

func readConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("read config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// ReadConfig re-reads .mgit/config. Missing config returns the defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	return readConfig(filepath.Join(r.GitDir, configFile))
}

// WriteConfig atomically writes .mgit/config and makes it the active
// configuration.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := r.writeFileAtomic(configFile, buf.Bytes()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	r.Config = cfg
	return nil
}

// configKeys maps dotted keys to accessors on Config.
var configKeys = map[string]struct {
	get func(*Config) string
	set func(*Config, string) error
}{
	"user.name": {
		get: func(c *Config) string { return c.User.Name },
		set: func(c *Config, v string) error { c.User.Name = v; return nil },
	},
	"user.email": {
		get: func(c *Config) string { return c.User.Email },
		set: func(c *Config, v string) error { c.User.Email = v; return nil },
	},
	"core.timezone": {
		get: func(c *Config) string { return c.Core.Timezone },
		set: func(c *Config, v string) error {
			if _, err := time.LoadLocation(v); err != nil {
				return err
			}
			c.Core.Timezone = v
			return nil
		},
	},
	"core.cache_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Core.CacheSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("cache_size must be a non-negative integer, got %q", v)
			}
			c.Core.CacheSize = n
			return nil
		},
	},
}

// ConfigKeys lists the supported dotted keys.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "user.name".
func (c *Config) Get(key string) (string, error) {
	k, ok := configKeys[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return k.get(c), nil
}

// SetConfig updates one dotted key and persists the config.
func (r *Repo) SetConfig(key, value string) error {
	k, ok := configKeys[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("set config: unknown key %q", key)
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return r.WriteConfig(cfg)
}

// Location returns the configured commit time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Core.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Core.Timezone)
	if err != nil {
		return nil, fmt.Errorf("core.timezone: %w", err)
	}
	return loc, nil
}

// Signature stamps the configured identity with now in the configured zone.
func (c *Config) Signature(now time.Time) (object.Signature, error) {
	if strings.TrimSpace(c.User.Name) == "" || strings.TrimSpace(c.User.Email) == "" {
		return object.Signature{}, ErrIdentityUnset
	}
	loc, err := c.Location()
	if err != nil {
		return object.Signature{}, err
	}
	return object.NewSignature(c.User.Name, c.User.Email, now.In(loc)), nil
}
