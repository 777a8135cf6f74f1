// Package config loads cmgui settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// PickConfig controls the selection buffer used by picking.
type PickConfig struct {
	InitialBufferSize int `toml:"initial_buffer_size"`
	BufferIncrement   int `toml:"buffer_increment"`
}

// KernelConfig controls glyph tessellation.
type KernelConfig struct {
	MeshCells int `toml:"mesh_cells"`
}

// GraphicsConfig controls field-driven graphics tessellation.
type GraphicsConfig struct {
	SurfaceDivisions int `toml:"surface_divisions"`
	LineDivisions    int `toml:"line_divisions"`
}

// Config is the complete settings tree.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Pick     PickConfig     `toml:"pick"`
	Kernel   KernelConfig   `toml:"kernel"`
	Graphics GraphicsConfig `toml:"graphics"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Pick: PickConfig{
			InitialBufferSize: 10000,
			BufferIncrement:   10000,
		},
		Kernel: KernelConfig{MeshCells: 24},
		Graphics: GraphicsConfig{
			SurfaceDivisions: 4,
			LineDivisions:    4,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals TOML data into cfg and validates the result.
func Decode(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate rejects settings that would stall picking or tessellation.
func (c Config) Validate() error {
	var errs []error
	if c.Pick.InitialBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("pick.initial_buffer_size must be positive, got %d", c.Pick.InitialBufferSize))
	}
	if c.Pick.BufferIncrement <= 0 {
		errs = append(errs, fmt.Errorf("pick.buffer_increment must be positive, got %d", c.Pick.BufferIncrement))
	}
	if c.Kernel.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("kernel.mesh_cells must be positive, got %d", c.Kernel.MeshCells))
	}
	if c.Graphics.SurfaceDivisions <= 0 {
		errs = append(errs, fmt.Errorf("graphics.surface_divisions must be positive, got %d", c.Graphics.SurfaceDivisions))
	}
	if c.Graphics.LineDivisions <= 0 {
		errs = append(errs, fmt.Errorf("graphics.line_divisions must be positive, got %d", c.Graphics.LineDivisions))
	}
	return errors.Join(errs...)
}

// Marshal renders cfg as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
