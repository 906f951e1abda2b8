package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "certapp.yaml")
	body := []byte(`
port: "9000"
log_level: debug
output_dir: /tmp/certs
render:
  default_multiplier: 2
session:
  ttl: 30m
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPort, "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Port = "7070"
	want.LogLevel = "debug"
	want.OutputDir = "/tmp/certs"
	want.Render.DefaultMultiplier = 2
	want.Session.TTL = 30 * time.Minute
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(EnvPort, "")
	dir := t.TempDir()
	tests := map[string]string{
		"multiplier": "render:\n  default_multiplier: 8\n  max_multiplier: 2\n",
		"font":       "render:\n  font_path: /fonts/x.ttf\n",
		"yaml":       "render: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
