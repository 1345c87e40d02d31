package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// MaxHistoryLimit is the largest undo history a session may keep.
const MaxHistoryLimit = 50

type Config struct {
	Port           int     `envconfig:"PORT" default:"8080"`
	DatabaseURL    string  `envconfig:"DATABASE_URL" default:"sqlite://./data/designs.db"`
	JWTSecret      string  `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AuthDisabled   bool    `envconfig:"AUTH_DISABLED" default:"false"`
	AssetDir       string  `envconfig:"ASSET_DIR" default:"./data/assets"`
	FontDir        string  `envconfig:"FONT_DIR" default:"./data/fonts"`
	AllowedOrigins string  `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	SnapThreshold  float64 `envconfig:"SNAP_THRESHOLD" default:"8"`
	GridSpacing    float64 `envconfig:"GRID_SPACING" default:"10"`
	HistoryLimit   int     `envconfig:"HISTORY_LIMIT" default:"50"`
	MaxExportScale float64 `envconfig:"MAX_EXPORT_SCALE" default:"4"`
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit < 1 || cfg.HistoryLimit > MaxHistoryLimit {
		return nil, fmt.Errorf("HISTORY_LIMIT must be between 1 and %d, got %d", MaxHistoryLimit, cfg.HistoryLimit)
	}
	return &cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Origins splits ALLOWED_ORIGINS into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
