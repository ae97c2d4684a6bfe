// Package config provides configuration loading and management for rtcontour.
// It handles loading configuration from YAML or TOML files and provides
// default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Transform limits
	Transform struct {
		// MaxAngle is the largest accepted rotation magnitude in degrees
		MaxAngle float64 `yaml:"maxAngle" toml:"max_angle"`

		// MaxDelta is the largest accepted translation magnitude in mm
		MaxDelta float64 `yaml:"maxDelta" toml:"max_delta"`
	} `yaml:"transform" toml:"transform"`

	// Replacement values written by the anonymize command. An empty value
	// leaves the field untouched.
	Anonymize struct {
		Name         string `yaml:"name" toml:"name"`
		BirthDate    string `yaml:"birthDate" toml:"birth_date"`
		OperatorName string `yaml:"operatorName" toml:"operator_name"`
		CreationDate string `yaml:"creationDate" toml:"creation_date"`
	} `yaml:"anonymize" toml:"anonymize"`

	// Output parameters
	Output struct {
		// Dir is where modified documents are written
		Dir string `yaml:"dir" toml:"dir"`

		// Format is "yaml" or "json"
		Format string `yaml:"format" toml:"format"`

		// ReissueUIDs gives every written document fresh instance UIDs
		ReissueUIDs bool `yaml:"reissueUIDs" toml:"reissue_uids"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"output" toml:"output"`

	// HTTP service parameters
	Server struct {
		Addr         string        `yaml:"addr" toml:"addr"`
		ReadTimeout  time.Duration `yaml:"readTimeout" toml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout" toml:"write_timeout"`

		// MaxBodyBytes bounds the size of a request body
		MaxBodyBytes int64 `yaml:"maxBodyBytes" toml:"max_body_bytes"`
	} `yaml:"server" toml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Transform.MaxAngle = 360
	cfg.Transform.MaxDelta = 1000

	cfg.Anonymize.Name = "PatientName"
	cfg.Anonymize.BirthDate = "19720101"
	cfg.Anonymize.OperatorName = "OperatorName"
	cfg.Anonymize.CreationDate = "19720101"

	cfg.Output.Dir = "out"
	cfg.Output.Format = "yaml"
	cfg.Output.ReissueUIDs = true
	cfg.Output.Verbose = false

	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.MaxBodyBytes = 32 << 20

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by
// extension. If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects limits and formats the rest of the tool cannot use.
func (c *Config) Validate() error {
	if c.Transform.MaxAngle <= 0 || c.Transform.MaxDelta <= 0 {
		return fmt.Errorf("transform limits must be positive, got angle %v and delta %v",
			c.Transform.MaxAngle, c.Transform.MaxDelta)
	}
	switch strings.ToLower(c.Output.Format) {
	case "yaml", "yml", "json":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML or TOML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	var err error
	if isTOML(configPath) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
