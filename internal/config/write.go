package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/geoclient/internal/paths"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// fileConfig is the structure written to config.yaml.
type fileConfig struct {
	Server    string         `yaml:"server"`
	DataDir   string         `yaml:"data_dir,omitempty"`
	Timeout   string         `yaml:"timeout"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	Settings  types.Settings `yaml:"settings"`
}

// WriteDefault creates config.yaml in configDir with the default server,
// the given data directory and the backend's endpoint paths. An existing
// file is left alone and reported with created == false.
func WriteDefault(configDir, server, dataDir string) (path string, created bool, err error) {
	path = paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return path, false, fmt.Errorf("create config directory: %w", err)
	}

	if server == "" {
		server = types.DefaultServer
	}
	cfg := fileConfig{
		Server:    server,
		DataDir:   dataDir,
		Timeout:   types.DefaultTimeout.String(),
		LogLevel:  types.DefaultLogLevel,
		LogFormat: types.DefaultLogFormat,
		Settings:  types.DefaultEndpoints(),
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return path, false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}
