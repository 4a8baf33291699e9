// Package config loads viewer settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root of a viewer settings file.
type Config struct {
	Window  Window  `toml:"window"`
	Render  Render  `toml:"render"`
	Logging Logging `toml:"logging"`
	Assets  Assets  `toml:"assets"`
}

// Window describes the output window.
type Window struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	VSync      bool   `toml:"vsync"`
	Resizable  bool   `toml:"resizable"`
	Fullscreen bool   `toml:"fullscreen"`
}

// Render holds draw path switches.
type Render struct {
	// VAO enables per-program vertex array objects where the driver has them.
	VAO            bool       `toml:"vao"`
	FrustumCulling bool       `toml:"frustum_culling"`
	ClearColor     [4]float32 `toml:"clear_color"`
	TraversalMask  uint32     `toml:"traversal_mask"`
	FieldOfView    float32    `toml:"fov"`
	Near           float32    `toml:"near"`
	Far            float32    `toml:"far"`
}

// Logging configures the process logger.
type Logging struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Assets lists models loaded at startup.
type Assets struct {
	Models  []string `toml:"models"`
	Workers int      `toml:"workers"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Window: Window{
			Width:     1280,
			Height:    720,
			Title:     "Scene Graph Viewer",
			VSync:     true,
			Resizable: true,
		},
		Render: Render{
			VAO:            true,
			FrustumCulling: true,
			ClearColor:     [4]float32{0.1, 0.1, 0.12, 1},
			TraversalMask:  ^uint32(0),
			FieldOfView:    45,
			Near:           0.1,
			Far:            1000,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads path over Default, so a file only needs the keys it changes.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over Default and validates the result. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Render.FieldOfView <= 0 || c.Render.FieldOfView >= 180 {
		errs = append(errs, fmt.Errorf("fov %v must be in (0, 180)", c.Render.FieldOfView))
	}
	if c.Render.Near <= 0 || c.Render.Far <= c.Render.Near {
		errs = append(errs, fmt.Errorf("clip range [%v, %v] must satisfy 0 < near < far", c.Render.Near, c.Render.Far))
	}
	for i, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_color[%d] = %v out of [0, 1]", i, v))
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	if c.Assets.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Assets.Workers))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
