package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

type WindowConfig struct {
	// The application name used in windowing.
	Title string `toml:"title"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	// Window starting position x axis.
	PosX uint32 `toml:"pos_x"`
	// Window starting position y axis.
	PosY uint32 `toml:"pos_y"`
}

type RendererConfig struct {
	MaxFramesInFlight int        `toml:"max_frames_in_flight"`
	Validation        bool       `toml:"validation"`
	VSync             bool       `toml:"vsync"`
	ClearColor        [4]float32 `toml:"clear_color"`
}

type ShaderConfig struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// Rebuild the pipeline when a compiled shader changes on disk.
	HotReload bool `toml:"hot_reload"`
}

type AssetConfig struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// ApplicationConfig mirrors the TOML configuration file section by section.
type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Assets   AssetConfig    `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Title:  "HELLO VULKAN!",
			Width:  800,
			Height: 600,
			PosX:   100,
			PosY:   100,
		},
		Renderer: RendererConfig{
			MaxFramesInFlight: 2,
			Validation:        false,
			VSync:             true,
			ClearColor:        renderer.DefaultClearValues().Color,
		},
		Shaders: ShaderConfig{
			Vertex:    "assets/shaders/simple_shader.vert.spv",
			Fragment:  "assets/shaders/simple_shader.frag.spv",
			HotReload: false,
		},
		Assets: AssetConfig{
			Dir: "assets",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error; every key left out keeps its default value.
func LoadConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogInfo("configuration file %s not found, using defaults", path)
		return config, nil
	}
	if err != nil {
		err = fmt.Errorf("failed to read configuration %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	if err := parseConfig(data, config); err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	return config, nil
}

func parseConfig(data []byte, config *ApplicationConfig) error {
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(config); err != nil {
		return fmt.Errorf("%w: %s", core.ErrConfig, err)
	}
	return config.Validate()
}

// Validate reports the first invalid value, wrapped in core.ErrConfig.
func (c *ApplicationConfig) Validate() error {
	switch {
	case c.Window.Title == "":
		return fmt.Errorf("%w: window.title must not be empty", core.ErrConfig)
	case c.Window.Width == 0 || c.Window.Height == 0:
		return fmt.Errorf("%w: window size must be positive, got %dx%d", core.ErrConfig, c.Window.Width, c.Window.Height)
	case c.Renderer.MaxFramesInFlight < 1:
		return fmt.Errorf("%w: renderer.max_frames_in_flight must be at least 1, got %d", core.ErrConfig, c.Renderer.MaxFramesInFlight)
	case c.Shaders.Vertex == "" || c.Shaders.Fragment == "":
		return fmt.Errorf("%w: shaders.vertex and shaders.fragment are required", core.ErrConfig)
	case !slices.Contains(logLevels, c.Log.Level):
		return fmt.Errorf("%w: unknown log.level %q", core.ErrConfig, c.Log.Level)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: renderer.clear_color[%d] = %g is outside [0, 1]", core.ErrConfig, i, v)
		}
	}
	return nil
}

// ClearValues turns the configured clear colour into render pass clear values.
func (c *ApplicationConfig) ClearValues() renderer.ClearValues {
	clear := renderer.DefaultClearValues()
	clear.Color = c.Renderer.ClearColor
	return clear
}
