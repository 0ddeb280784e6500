// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the daemon configuration, read from a JSON config
// file with flag and environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultLogLevel     = "info"
	defaultMetricsPort  = 9090
	defaultNoticeBuffer = 256
)

// Config is the dev-node daemon configuration.
type Config struct {
	LogLevel     string   `mapstructure:"log-level" json:"log-level"`
	MetricsPort  uint16   `mapstructure:"metrics-port" json:"metrics-port"`
	NoticeBuffer int      `mapstructure:"notice-buffer" json:"notice-buffer"`
	ClusterNodes []string `mapstructure:"cluster-nodes" json:"cluster-nodes"`

	clusterNodeIDs []ids.NodeID
}

// Validate checks the configuration and resolves derived fields.
func (c *Config) Validate() error {
	if _, err := log.ToLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.NoticeBuffer <= 0 {
		return fmt.Errorf("notice buffer must be positive, got %d", c.NoticeBuffer)
	}
	c.clusterNodeIDs = c.clusterNodeIDs[:0]
	for _, s := range c.ClusterNodes {
		nodeID, err := ids.NodeIDFromString(s)
		if err != nil {
			return fmt.Errorf("invalid cluster node ID %q: %w", s, err)
		}
		c.clusterNodeIDs = append(c.clusterNodeIDs, nodeID)
	}
	return nil
}

// ClusterNodeIDs returns the parsed cluster node IDs. Empty means the daemon
// runs its own in-process cluster.
func (c *Config) ClusterNodeIDs() []ids.NodeID {
	return c.clusterNodeIDs
}

// NewConfig builds and validates the config from a viper instance.
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := buildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// BuildViper builds the viper instance. The config file is optional; all
// config keys may be provided via config file, flag, or environment
// variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens
	// are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func setDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
	v.SetDefault(NoticeBufferKey, defaultNoticeBuffer)
}

// buildConfig constructs the config using viper. Flags take precedence over
// the config file.
func buildConfig(v *viper.Viper) (Config, error) {
	setDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}

// BuildFlagSet returns the daemon's command line flags.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("veil", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Path to the JSON config file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level")
	fs.Uint16(MetricsPortKey, defaultMetricsPort, "Port for the prometheus metrics endpoint")
	fs.Int(NoticeBufferKey, defaultNoticeBuffer, "Size of the notice buffer")
	fs.StringSlice(ClusterNodesKey, nil, "Node IDs of the remote computation cluster (empty runs in-process)")
	return fs
}
