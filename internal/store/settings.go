// Package store persists runtime settings and profiles under the user
// config directory.
package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings is the daemon configuration, read from config.toml.
type Settings struct {
	Device  DeviceSettings  `toml:"device"`
	Bridge  BridgeSettings  `toml:"bridge"`
	Server  ServerSettings  `toml:"server"`
	Logging LoggingSettings `toml:"logging"`
}

type DeviceSettings struct {
	Model       string `toml:"model"`
	InPort      string `toml:"in_port"`
	OutPort     string `toml:"out_port"`
	AutoConnect bool   `toml:"auto_connect"`
	AutoStart   bool   `toml:"auto_start"`
	// RunAtLogin registers the daemon as a login item on save.
	RunAtLogin bool `toml:"run_at_login"`
}

type BridgeSettings struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

type ServerSettings struct {
	Listen string `toml:"listen"`
}

type LoggingSettings struct {
	Level string `toml:"level"`
	Debug bool   `toml:"debug"`
}

// DefaultSettings returns the configuration used when no config.toml
// exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		Device: DeviceSettings{
			Model:       "minimk3",
			AutoConnect: true,
			AutoStart:   true,
		},
		Bridge: BridgeSettings{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    55555,
		},
		Server: ServerSettings{
			Listen: "127.0.0.1:8722",
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "padmapper"), nil
}

// SettingsPath returns the full path to config.toml.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadSettings reads config.toml, returning defaults when the file does
// not exist. A missing file also writes the defaults back so the user has
// something to edit.
func LoadSettings() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return LoadSettingsFrom(path)
}

// LoadSettingsFrom reads settings from an explicit path.
func LoadSettingsFrom(path string) (*Settings, error) {
	s := DefaultSettings()
	if _, err := toml.DecodeFile(path, s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := SaveSettingsTo(path, s); werr != nil {
				return s, werr
			}
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// SaveSettingsTo writes settings as TOML.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}
