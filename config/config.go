// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/prtracker/prdemo/config/logger"
	"github.com/prtracker/prdemo/state"
	"github.com/prtracker/prdemo/status/healthtracker"
)

// DefaultConcurrency is the default number of demos parsed in parallel
const DefaultConcurrency = 4

// Config is the config root object
type Config struct {
	// SchemaFile is an optional YAML message table. The built-in table is
	// used when empty.
	SchemaFile  string        `yaml:"schema_file"`
	Storage     Storage       `yaml:"storage"`
	History     History       `yaml:"history"`
	Concurrency int           `yaml:"concurrency"`
	HTTP        HTTP          `yaml:"http"`
	Health      Health        `yaml:"health"`
	Log         logger.Config `yaml:"log"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Storage configures the simpleblob backend that holds demos and exports
type Storage struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
	// DemoPrefix is the name prefix of demo files in the storage
	DemoPrefix string `yaml:"demo_prefix"`
	// ExportPrefix is prepended to export names
	ExportPrefix string `yaml:"export_prefix"`
}

// History configures how ticks are folded into worlds
type History struct {
	// Groups is the approximate number of groups the ticks are folded in,
	// with progress reported after each group.
	Groups int `yaml:"groups"`
}

// HTTP configures the HTTP server with Prometheus metrics and status page
type HTTP struct {
	Address string `yaml:"address"` // Address like ":8500"
}

// Health configures the healthz thresholds
type Health struct {
	// ExportStore tracks failures to store exports
	ExportStore healthtracker.HealthConfig `yaml:"export_store"`
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if c.Storage.Type == "" {
		return fmt.Errorf("storage.type: no storage type configured")
	}
	if c.History.Groups < 1 {
		return fmt.Errorf("history.groups: must be at least 1")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency: must be at least 1")
	}
	if c.HTTP.Address != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			return fmt.Errorf("http.address: %v", err)
		}
	}
	if c.SchemaFile != "" {
		if _, err := os.Stat(c.SchemaFile); err != nil {
			return fmt.Errorf("schema_file: %v", err)
		}
	}
	return nil
}

// String returns the config as a YAML string
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		Storage: Storage{
			Type: "fs",
			Options: map[string]interface{}{
				"root_path": ".",
			},
			ExportPrefix: "exports/",
		},
		History: History{
			Groups: state.DefaultGroups,
		},
		Concurrency: DefaultConcurrency,
		Health: Health{
			ExportStore: healthtracker.DefaultConfig,
		},
		Log:         logger.DefaultConfig,
	}
}
