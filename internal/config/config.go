// Package config loads posematch settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Playback index modes.
const (
	IndexModeFrame = "frame"
	IndexModeClock = "clock"
)

// Config holds all posematch configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Camera   CameraConfig   `toml:"camera"`
	Detector DetectorConfig `toml:"detector"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Hooks    HooksConfig    `toml:"hooks"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type StorageConfig struct {
	DataDir        string `toml:"data_dir"`
	CompressFrames bool   `toml:"compress_frames"`
}

type CameraConfig struct {
	DeviceID        int     `toml:"device_id"`
	FPS             int     `toml:"fps"`
	IdleFPS         int     `toml:"idle_fps"`
	MotionThreshold float64 `toml:"motion_threshold"`
}

type DetectorConfig struct {
	MinConfidence   float64 `toml:"min_confidence"`
	MinTrackingConf float64 `toml:"min_tracking_conf"`
}

type ScoringConfig struct {
	UseWeights   bool    `toml:"use_weights"`
	PreWindow    int     `toml:"pre_window"`
	PostWindow   int     `toml:"post_window"`
	WeightWindow int     `toml:"weight_window"`
	WeightScale  float64 `toml:"weight_scale"`
	IndexMode    string  `toml:"index_mode"`
}

type HooksConfig struct {
	Dir       string `toml:"dir"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "web/static",
		},
		Storage: StorageConfig{
			DataDir:        "~/.posematch",
			CompressFrames: true,
		},
		Camera: CameraConfig{
			DeviceID:        0,
			FPS:             30,
			IdleFPS:         5,
			MotionThreshold: 1.0,
		},
		Detector: DetectorConfig{
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
		},
		Scoring: ScoringConfig{
			UseWeights:   false,
			PreWindow:    1,
			PostWindow:   3,
			WeightWindow: 2,
			WeightScale:  200,
			IndexMode:    IndexModeFrame,
		},
		Hooks: HooksConfig{
			Dir:       "~/.posematch/hooks",
			TimeoutMs: 5000,
		},
	}
}

// Load reads config from path, or from the standard locations when path is
// empty, falling back to defaults when no file exists. The result is
// validated and has ~ expanded in its paths.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if _, err := toml.DecodeFile(p, &cfg); err != nil {
					return cfg, fmt.Errorf("parse config %s: %w", p, err)
				}
				break
			}
		}
	}

	cfg.Server.StaticDir = expandHome(cfg.Server.StaticDir)
	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)
	cfg.Hooks.Dir = expandHome(cfg.Hooks.Dir)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every setting that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS))
	}
	if c.Camera.IdleFPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.idle_fps must be positive, got %d", c.Camera.IdleFPS))
	}
	if c.Scoring.PreWindow < 0 || c.Scoring.PostWindow < 0 || c.Scoring.WeightWindow < 0 {
		errs = append(errs, errors.New("scoring windows must not be negative"))
	}
	if c.Scoring.WeightScale < 0 {
		errs = append(errs, fmt.Errorf("scoring.weight_scale must not be negative, got %v", c.Scoring.WeightScale))
	}
	switch c.Scoring.IndexMode {
	case IndexModeFrame, IndexModeClock:
	default:
		errs = append(errs, fmt.Errorf("unknown scoring.index_mode %q", c.Scoring.IndexMode))
	}
	if c.Hooks.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("hooks.timeout_ms must be positive, got %d", c.Hooks.TimeoutMs))
	}
	return errors.Join(errs...)
}

// DBPath returns the SQLite database file inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "posematch.db")
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "posematch", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "posematch", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
