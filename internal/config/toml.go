// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Camera   CameraConfig   `toml:"camera"`
	Service  ServiceConfig  `toml:"service"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Module        *string  `toml:"module"`
	TargetsFile   *string  `toml:"targets-file"`
	Interval      *string  `toml:"interval"`
	Display       *string  `toml:"display"`
	Simulate      *bool    `toml:"simulate"`
	SimHandsPct   *float64 `toml:"sim-hands"`
	SimCorrectPct *float64 `toml:"sim-correct"`
	SimLatency    *string  `toml:"sim-latency"`
	Overlay       *bool    `toml:"overlay"`
}

// CameraConfig maps capture settings.
type CameraConfig struct {
	Device      *string `toml:"device"`
	InputFormat *string `toml:"input-format"`
	Width       *int    `toml:"width"`
	Height      *int    `toml:"height"`
	Quality     *int    `toml:"quality"`
	FFmpeg      *string `toml:"ffmpeg"`
	ImageDir    *string `toml:"image-dir"`
}

// ServiceConfig maps the remote API settings.
type ServiceConfig struct {
	APIURL    *string `toml:"api-url"`
	DetectURL *string `toml:"detect-url"`
	Token     *string `toml:"token"`
	UserID    *string `toml:"user-id"`
	Timeout   *string `toml:"timeout"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
