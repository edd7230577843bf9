// Package config manages vmattach configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"vmattach/attach"
	"vmattach/cached"
	"vmattach/discovery"
	"vmattach/hotspot"

	"github.com/spf13/viper"
)

// Config holds the vmattach configuration
type Config struct {
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Attach    AttachConfig    `mapstructure:"attach"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// DiscoveryConfig holds scan configuration
type DiscoveryConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	PropertyTTL   time.Duration `mapstructure:"property_ttl"`
	TmpDir        string        `mapstructure:"tmp_dir"`
	WatchPerfData bool          `mapstructure:"watch_perfdata"`
}

// AttachConfig holds agent attach configuration
type AttachConfig struct {
	AgentPath    string        `mapstructure:"agent_path"`
	AgentOptions string        `mapstructure:"agent_options"`
	ConfirmDelay time.Duration `mapstructure:"confirm_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Listen    string `mapstructure:"listen"`
	Namespace string `mapstructure:"namespace"`
}

// New returns a viper instance reading cfgFile, or .vmattach.yaml from the
// home and current directories when cfgFile is empty. Environment
// variables use the VMATTACH_ prefix, e.g. VMATTACH_DISCOVERY_INTERVAL.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".vmattach")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VMATTACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// SetDefaults registers the default of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("discovery.interval", discovery.DefaultInterval)
	v.SetDefault("discovery.property_ttl", cached.DefaultTTL)
	v.SetDefault("discovery.tmp_dir", hotspot.DefaultTmpDir)
	v.SetDefault("discovery.watch_perfdata", true)
	v.SetDefault("attach.agent_path", "")
	v.SetDefault("attach.agent_options", "")
	v.SetDefault("attach.confirm_delay", attach.DefaultConfirmDelay)
	v.SetDefault("attach.timeout", hotspot.DefaultAttachTimeout)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.namespace", "vmattach")
}

// Load reads the config file, if any, and decodes v
func Load(v *viper.Viper) (*Config, error) {
	// Read config file (ignore if not found - use defaults)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unusable settings
func (c *Config) Validate() error {
	var errs []error

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"discovery.interval", c.Discovery.Interval},
		{"discovery.property_ttl", c.Discovery.PropertyTTL},
		{"attach.confirm_delay", c.Attach.ConfirmDelay},
		{"attach.timeout", c.Attach.Timeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", d.key, d.d))
		}
	}

	if c.Discovery.TmpDir == "" {
		errs = append(errs, errors.New("discovery.tmp_dir must not be empty"))
	}

	return errors.Join(errs...)
}
