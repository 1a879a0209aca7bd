// Package config loads airsketch settings from defaults, an optional YAML file,
// a .env file and AIRSKETCH_* environment variables, in that order.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/airsketch/internal/stroke"
)

// DefaultDotEnv is the .env file consulted by Load.
const DefaultDotEnv = ".env"

// Config is the complete runtime configuration.
type Config struct {
	Brush     BrushConfig     `yaml:"brush"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Camera    CameraConfig    `yaml:"camera"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Detector  DetectorConfig  `yaml:"detector"`
	Server    ServerConfig    `yaml:"server"`
	Tray      TrayConfig      `yaml:"tray"`
	Data      DataConfig      `yaml:"data"`
	Log       LogConfig       `yaml:"log"`
}

type BrushConfig struct {
	Color string `yaml:"color"` // #rrggbb or a palette name
	Width int    `yaml:"width"`
	Cap   string `yaml:"cap"`
}

type SmoothingConfig struct {
	Window int `yaml:"window"`
}

type CameraConfig struct {
	Index  int  `yaml:"index"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
	// MotionThreshold skips detection on still frames when > 0 (percent of pixels).
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// CanvasConfig maps normalized landmarks to pixels:
// px = int(x*ReferenceWidth) * ScalingFactor.
type CanvasConfig struct {
	ReferenceWidth  int `yaml:"reference_width"`
	ReferenceHeight int `yaml:"reference_height"`
	ScalingFactor   int `yaml:"scaling_factor"`
}

// Width is the canvas width in pixels.
func (c CanvasConfig) Width() int { return c.ReferenceWidth * c.ScalingFactor }

// Height is the canvas height in pixels.
func (c CanvasConfig) Height() int { return c.ReferenceHeight * c.ScalingFactor }

type DetectorConfig struct {
	MinConfidence   float64 `yaml:"min_confidence"`
	ModelComplexity int     `yaml:"model_complexity"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

// DBPath is the sqlite database inside the data directory.
func (d DataConfig) DBPath() string { return filepath.Join(d.Dir, "airsketch.db") }

// DrawingsDir is where drawings saved without a directory go.
func (d DataConfig) DrawingsDir() string { return filepath.Join(d.Dir, "drawings") }

// LogConfig controls logging. An empty File logs to <data.dir>/logs/airsketch.log;
// "off" disables the log file.
type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
}

// LogFile resolves the log file path, or "" when file logging is off.
func (c Config) LogFile() string {
	switch c.Log.File {
	case "off":
		return ""
	case "":
		return filepath.Join(c.Data.Dir, "logs", "airsketch.log")
	default:
		return c.Log.File
	}
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".airsketch")

	return Config{
		Brush:     BrushConfig{Color: "#000000", Width: 8, Cap: "round"},
		Smoothing: SmoothingConfig{Window: stroke.DefaultSmoothingWindow},
		Camera:    CameraConfig{Index: 0, FPS: 60, Mirror: true},
		Canvas:    CanvasConfig{ReferenceWidth: 640, ReferenceHeight: 360, ScalingFactor: 2},
		Detector:  DetectorConfig{MinConfidence: 0.7, ModelComplexity: 1},
		Server:    ServerConfig{Addr: ":8080"},
		Tray:      TrayConfig{Enabled: true},
		Data:      DataConfig{Dir: dataDir},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (Config, error) {
	return load(path, DefaultDotEnv)
}

func load(path, dotenvPath string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errFileUnreadable(path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errFileInvalid(path, err)
		}
	}

	get, err := envLookup(dotenvPath)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&cfg, get)

	cfg.Data.Dir = expandHome(cfg.Data.Dir)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every option and returns the first problem as a *ConfigError.
func (c Config) Validate() error {
	if _, err := c.Brush.Stroke(); err != nil {
		return errInvalidBrush(err)
	}
	if c.Smoothing.Window < 1 {
		return errInvalidValue("smoothing.window", c.Smoothing.Window, "a positive integer")
	}
	if c.Camera.Index < 0 {
		return errInvalidValue("camera.index", c.Camera.Index, "0 or greater")
	}
	if c.Camera.FPS < 1 {
		return errInvalidValue("camera.fps", c.Camera.FPS, "a positive integer")
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		return errInvalidValue("camera.motion_threshold", c.Camera.MotionThreshold, "a percentage between 0 and 100")
	}
	if c.Canvas.ReferenceWidth < 1 || c.Canvas.ReferenceHeight < 1 {
		return errInvalidValue("canvas.reference_width/height", []int{c.Canvas.ReferenceWidth, c.Canvas.ReferenceHeight}, "positive integers")
	}
	if c.Canvas.ScalingFactor < 1 {
		return errInvalidValue("canvas.scaling_factor", c.Canvas.ScalingFactor, "1 or greater")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return errInvalidValue("detector.min_confidence", c.Detector.MinConfidence, "a value between 0 and 1")
	}
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 1 {
		return errInvalidValue("detector.model_complexity", c.Detector.ModelComplexity, "0 or 1")
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		return errInvalidValue("data.dir", `""`, "a writable directory")
	}
	return nil
}

// Stroke converts the brush options into a stroke.Brush.
func (b BrushConfig) Stroke() (stroke.Brush, error) {
	col, err := stroke.LookupColor(b.Color)
	if err != nil {
		return stroke.Brush{}, err
	}
	lineCap, err := stroke.ParseCap(b.Cap)
	if err != nil {
		return stroke.Brush{}, err
	}
	brush := stroke.Brush{Color: col, Width: b.Width, Cap: lineCap}
	if err := brush.Validate(); err != nil {
		return stroke.Brush{}, err
	}
	return brush, nil
}

// EnsureDirs creates the data and drawings directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.Data.Dir, c.Data.DrawingsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
