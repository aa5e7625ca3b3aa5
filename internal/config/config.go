// Package config loads run settings from defaults, a YAML file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

const (
	appDirName = "php-mt-seed"
	configFile = "config.yaml"
	envPrefix  = "PHP_MT_SEED"
)

// Backend names.
const (
	BackendAuto = "auto"
	BackendGPU  = "gpu"
	BackendCPU  = "cpu"
)

// Config holds the settings of one run.
type Config struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Device   int    `mapstructure:"device" yaml:"device"`
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
	Workers  int    `mapstructure:"workers" yaml:"workers"`
	Lanes    uint32 `mapstructure:"lanes" yaml:"lanes"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendAuto)
	v.SetDefault("device", 0)
	v.SetDefault("capacity", result.DefaultCapacity)
	v.SetDefault("workers", 0) // 0 = one per logical CPU
	v.SetDefault("lanes", shard.LanesPerShard)
	v.SetDefault("log_level", "warn")
}

// Load reads file, or the per-user config file when file is empty, merges
// PHP_MT_SEED_* environment variables and any flags already bound to v, and
// validates the result. A missing per-user file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		if p, err := Path(); err == nil {
			file = p
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
			if explicit || !missing {
				return nil, fmt.Errorf("reading config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendGPU, BackendCPU:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendAuto, BackendGPU, BackendCPU)
	}
	if c.Device < 0 {
		return fmt.Errorf("device index must not be negative, got %d", c.Device)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return c.Plan().Validate()
}

// Plan returns the shard plan the settings describe.
func (c *Config) Plan() shard.Plan {
	return shard.Plan{Lanes: c.Lanes}
}

// Save writes cfg to the per-user config file, creating the directory if
// needed.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0600)
}

// Path returns the per-user config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDirName, configFile), nil
}
