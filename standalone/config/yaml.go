//go:build !tinygo

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a YAML configuration and returns a validated MachineConfig
func LoadYAML(data []byte) (*MachineConfig, error) {
	var config MachineConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&config)
}

// LoadFile reads a configuration file. Files ending in .json are parsed as
// JSON, everything else as YAML.
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(path) > 5 && path[len(path)-5:] == ".json" {
		return LoadConfig(data)
	}
	return LoadYAML(data)
}

// EncodeYAML renders a configuration, e.g. to write out the defaults
func EncodeYAML(config *MachineConfig) ([]byte, error) {
	return yaml.Marshal(config)
}
