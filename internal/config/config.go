package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "samsungcac"
	configFile = "config.yaml"

	// CurrentVersion is the config file schema version.
	CurrentVersion = 1
)

var fileMutex sync.Mutex

// Config is the persisted CLI configuration. The authentication token is
// never written here.
type Config struct {
	Version  int               `yaml:"version"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	LogLevel string            `yaml:"log_level,omitempty"`
	Timeout  time.Duration     `yaml:"timeout,omitempty"`
	Devices  map[string]string `yaml:"devices,omitempty"`
}

// New returns an empty configuration at the current version.
func New() *Config {
	return &Config{
		Version: CurrentVersion,
		Devices: make(map[string]string),
	}
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/samsungcac or $HOME/.config/samsungcac
//   - macOS: $HOME/.config/samsungcac
//   - Windows: %LOCALAPPDATA%\samsungcac
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	case "darwin":
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the full path to the configuration file.
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path. A missing file yields New().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	if cfg.Devices == nil {
		cfg.Devices = make(map[string]string)
	}
	return &cfg, nil
}

// Save writes the configuration to path atomically with user-only
// permissions.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# samsungcac configuration
#
# The controller authentication token is never stored in this file.
# Pass it with --token or SAMSUNGCAC_TOKEN.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// SetAlias maps name to a device DUID. An empty duid removes the alias.
func (c *Config) SetAlias(name, duid string) error {
	if name == "" {
		return errors.New("alias name cannot be empty")
	}
	if c.Devices == nil {
		c.Devices = make(map[string]string)
	}
	if duid == "" {
		delete(c.Devices, name)
		return nil
	}
	c.Devices[name] = duid
	return nil
}

// ResolveDevice returns the DUID for an alias, or ref itself when it is
// not an alias.
func (c *Config) ResolveDevice(ref string) string {
	if duid, ok := c.Devices[ref]; ok {
		return duid
	}
	return ref
}

// AliasFor returns the alias of duid, if one exists. When several
// aliases point at the same device the alphabetically first one wins.
func (c *Config) AliasFor(duid string) (string, bool) {
	var names []string
	for name, id := range c.Devices {
		if id == duid {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}
