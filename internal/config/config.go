// Package config loads n2kbridge's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MDNS controls service advertisement for the bridge's metrics endpoint.
type MDNS struct {
	Enable bool   `yaml:"enable"`
	Name   string `yaml:"name"`
}

// Config is n2kbridge's full configuration surface. CLI flags (see
// cmd/n2kbridge) override whatever a loaded file sets.
type Config struct {
	// Transport selects the CAN backend: "socketcan" or "actisense".
	Transport string `yaml:"transport"`
	// Interface is the SocketCAN interface name (e.g. "can0").
	Interface string `yaml:"interface"`
	// Device is the Actisense NGT-1 serial device path.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	DeviceName uint64 `yaml:"device_name"`
	InitialSrc uint8  `yaml:"initial_src"`

	MetricsAddr string `yaml:"metrics_addr"`
	MDNS        MDNS   `yaml:"mdns"`
}

// Default returns the configuration used when no file and no overriding
// flags are given.
func Default() Config {
	return Config{
		Transport:   "socketcan",
		Interface:   "can0",
		Baud:        115200,
		InitialSrc:  128,
		MetricsAddr: ":9400",
	}
}

// Load reads and parses a YAML config file, starting from Default and
// overlaying whatever the file sets.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}
