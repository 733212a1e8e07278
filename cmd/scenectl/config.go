package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional scenectl.yaml sidecar (spec §6.5): a handful
// of settings that don't belong on the command line. A flag (or its env
// variable) takes precedence; a field here is used only where the matching
// flag is unset. LogLevel is parsed but not applied anywhere.
type fileConfig struct {
	MQTTURL   string `yaml:"mqtt-url"`
	ScriptDir string `yaml:"script-dir"`
	LogLevel  string `yaml:"log-level"`
}

// loadConfig reads path if it exists; a missing file is not an error, since
// the config is entirely optional.
func loadConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
