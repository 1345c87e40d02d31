package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.SnapThreshold != 8 || cfg.GridSpacing != 10 || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SNAP_THRESHOLD", "4.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 || cfg.SnapThreshold != 4.5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level = %v", cfg.SlogLevel())
	}
	if o := cfg.Origins(); len(o) != 2 || o[0] != "http://a.test" || o[1] != "http://b.test" {
		t.Fatalf("origins = %q", o)
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "lots")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric HISTORY_LIMIT")
	}
}

func TestLoadRejectsHistoryAboveCap(t *testing.T) {
	for _, v := range []string{"200", "51", "0"} {
		t.Setenv("HISTORY_LIMIT", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for HISTORY_LIMIT=%s", v)
		}
	}
	t.Setenv("HISTORY_LIMIT", "20")
	if cfg, err := Load(); err != nil || cfg.HistoryLimit != 20 {
		t.Fatalf("HISTORY_LIMIT=20: %+v %v", cfg, err)
	}
}
