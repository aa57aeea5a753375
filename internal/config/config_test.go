package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("default port: %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("default driver: %s", cfg.Database.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default log level: %s", cfg.Logging.Level)
	}
	if cfg.Payout.AutoRunSchedule != "" {
		t.Fatalf("scheduler should default to disabled: %q", cfg.Payout.AutoRunSchedule)
	}
}

func TestLoadFromPathYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
server:
  port: 9090
database:
  dsn: postgres://file-dsn
payout:
  auto_run_schedule: "0 3 1 * *"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_DSN", "postgres://env-dsn")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port from yaml: %d", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://env-dsn" {
		t.Fatalf("env should override yaml: %s", cfg.Database.DSN)
	}
	if cfg.Payout.AutoRunSchedule != "0 3 1 * *" {
		t.Fatalf("schedule: %s", cfg.Payout.AutoRunSchedule)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected validation error for out-of-range port")
	}
}
