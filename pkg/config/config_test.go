package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Name    string        `envconfig:"NAME" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
	Limit   int           `envconfig:"LIMIT" default:"20"`
}

// Not parallel: the package keeps process-wide env state.
func TestNewExportsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CFGTEST_NAME=concierge\nCFGTEST_LIMIT=7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CFGTEST_LIMIT", "9")
	t.Cleanup(func() {
		_ = os.Unsetenv("CFGTEST_NAME")
		SetEnvFile("")
	})

	SetEnvFile(path)
	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Name != "concierge" {
		t.Fatalf("unexpected name: %q", conf.Name)
	}
	if conf.Limit != 9 {
		t.Fatalf("expected process env to win, got %d", conf.Limit)
	}
	if conf.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout default: %s", conf.Timeout)
	}
}

func TestNewMissingEnvFile(t *testing.T) {
	t.Cleanup(func() { SetEnvFile("") })

	SetEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	if _, err := New[sampleConfig]("CFGTEST_MISSING"); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
