package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AIRSKETCH_"

// lookupFunc returns the raw value of an environment key.
type lookupFunc func(key string) string

// envLookup reads the process environment first and falls back to values from
// a .env file. The .env file never overrides variables already set.
func envLookup(dotenvPath string) (lookupFunc, error) {
	values := map[string]string{}
	if dotenvPath != "" {
		read, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			values = read
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, errFileInvalid(dotenvPath, err)
		}
	}

	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return values[key]
	}, nil
}

func stringEnv(get lookupFunc, key, defaultValue string) string {
	if value := strings.TrimSpace(get(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(get lookupFunc, key string, defaultValue int) int {
	if value := strings.TrimSpace(get(EnvPrefix + key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func floatEnv(get lookupFunc, key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(get(EnvPrefix + key)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// boolEnv accepts true/1/yes/on and false/0/no/off, case-insensitive.
func boolEnv(get lookupFunc, key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(get(EnvPrefix + key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// applyEnv overlays AIRSKETCH_* variables onto cfg.
func applyEnv(cfg *Config, get lookupFunc) {
	cfg.Brush.Color = stringEnv(get, "BRUSH_COLOR", cfg.Brush.Color)
	cfg.Brush.Width = intEnv(get, "BRUSH_WIDTH", cfg.Brush.Width)
	cfg.Brush.Cap = stringEnv(get, "BRUSH_CAP", cfg.Brush.Cap)

	cfg.Smoothing.Window = intEnv(get, "SMOOTHING_WINDOW", cfg.Smoothing.Window)

	cfg.Camera.Index = intEnv(get, "CAMERA_INDEX", cfg.Camera.Index)
	cfg.Camera.FPS = intEnv(get, "CAMERA_FPS", cfg.Camera.FPS)
	cfg.Camera.Mirror = boolEnv(get, "CAMERA_MIRROR", cfg.Camera.Mirror)
	cfg.Camera.MotionThreshold = floatEnv(get, "CAMERA_MOTION_THRESHOLD", cfg.Camera.MotionThreshold)

	cfg.Canvas.ReferenceWidth = intEnv(get, "CANVAS_REFERENCE_WIDTH", cfg.Canvas.ReferenceWidth)
	cfg.Canvas.ReferenceHeight = intEnv(get, "CANVAS_REFERENCE_HEIGHT", cfg.Canvas.ReferenceHeight)
	cfg.Canvas.ScalingFactor = intEnv(get, "SCALING_FACTOR", cfg.Canvas.ScalingFactor)

	cfg.Detector.MinConfidence = floatEnv(get, "DETECTOR_MIN_CONFIDENCE", cfg.Detector.MinConfidence)
	cfg.Detector.ModelComplexity = intEnv(get, "DETECTOR_MODEL_COMPLEXITY", cfg.Detector.ModelComplexity)

	cfg.Server.Addr = stringEnv(get, "SERVER_ADDR", cfg.Server.Addr)
	cfg.Tray.Enabled = boolEnv(get, "TRAY", cfg.Tray.Enabled)
	cfg.Data.Dir = stringEnv(get, "DATA_DIR", cfg.Data.Dir)

	cfg.Log.Development = boolEnv(get, "LOG_DEVELOPMENT", cfg.Log.Development)
	cfg.Log.Level = stringEnv(get, "LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = stringEnv(get, "LOG_FILE", cfg.Log.File)
}
