// Package config loads and saves user preferences from
// ~/.config/loopy/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ClickConfig stores metronome click preferences.
type ClickConfig struct {
	Enabled          bool  `json:"enabled"`
	Note             uint8 `json:"note,omitempty"`
	Volume           int   `json:"volume,omitempty"`
	AccentVolume     int   `json:"accentVolume,omitempty"`
	BeatsPerBar      int   `json:"beatsPerBar,omitempty"`
	EverySubdivision bool  `json:"everySubdivision,omitempty"`
}

// MIDIConfig stores preferred MIDI ports. Empty means first available.
type MIDIConfig struct {
	OutPort string `json:"outPort,omitempty"`
	InPort  string `json:"inPort,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	Tempo        float64     `json:"tempo,omitempty"`
	StepsPerBeat int         `json:"stepsPerBeat,omitempty"`
	Click        ClickConfig `json:"click"`
	MIDI         MIDIConfig  `json:"midi"`
}

// DefaultConfig returns a config with sensible defaults: 120 BPM on a
// 16th-note grid with an accented quarter-note click.
func DefaultConfig() *Config {
	return &Config{
		Tempo:        120,
		StepsPerBeat: 4,
		Click: ClickConfig{
			Enabled:      true,
			Note:         60,
			Volume:       100,
			AccentVolume: 127,
			BeatsPerBar:  4,
		},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "loopy"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
