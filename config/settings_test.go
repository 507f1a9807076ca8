package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("", WithEnvFile(""))
	if err != nil {
		t.Fatal(err)
	}
	if s.Pipelines != "pipelines.yaml" || s.Log.Level != "info" || s.Log.Format != "console" {
		t.Errorf("defaults: %+v", s)
	}
	if s.Async.MaxConcurrent != 16 || s.Async.ShutdownTimeout != 10*time.Second {
		t.Errorf("async defaults: %+v", s.Async)
	}
	if s.Store.DSN != "" || s.Telemetry.Tracing {
		t.Errorf("store/telemetry should be off by default: %+v %+v", s.Store, s.Telemetry)
	}
}

func TestLoadSettings_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
pipelines: defs.yaml
log:
  level: debug
  format: json
async:
  max_concurrent: 2
  shutdown_timeout: 3s
telemetry:
  metrics: true
`)
	t.Setenv("RUNPIPE_LOG_LEVEL", "warn")
	t.Setenv("RUNPIPE_STORE_DSN", "file:runs.db")

	s, err := LoadSettings(path, WithEnvFile(""))
	if err != nil {
		t.Fatal(err)
	}
	if s.Pipelines != "defs.yaml" || s.Log.Format != "json" {
		t.Errorf("file values: %+v", s)
	}
	if s.Log.Level != "warn" {
		t.Errorf("env should override file: level=%q", s.Log.Level)
	}
	if s.Store.DSN != "file:runs.db" {
		t.Errorf("store dsn from env: %q", s.Store.DSN)
	}
	if s.Async.MaxConcurrent != 2 || s.Async.ShutdownTimeout != 3*time.Second || !s.Telemetry.Metrics {
		t.Errorf("async/telemetry: %+v %+v", s.Async, s.Telemetry)
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "RUNPIPE_PIPELINES=from-dotenv.yaml\n")
	// godotenv sets process variables; t.Setenv registers cleanup for the key.
	t.Setenv("RUNPIPE_PIPELINES", "")
	os.Unsetenv("RUNPIPE_PIPELINES")

	s, err := LoadSettings("", WithEnvFile(env))
	if err != nil {
		t.Fatal(err)
	}
	if s.Pipelines != "from-dotenv.yaml" {
		t.Errorf("pipelines: %q", s.Pipelines)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "log:\n  level: loud\n")
	if _, err := LoadSettings(path, WithEnvFile("")); err == nil {
		t.Error("expected validation error for unknown log level")
	}
	if _, err := LoadSettings(filepath.Join(dir, "missing.yml"), WithEnvFile("")); err == nil {
		t.Error("expected error for missing settings file")
	}
}
