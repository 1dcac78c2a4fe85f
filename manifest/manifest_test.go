package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "nbc.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[runtime]
max-stack-depth = 64
max-execution-time = "2s"
max-memory-usage = 1048576

[database]
driver = "duckdb"
dsn = "analytics.db"

[logging]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Runtime.MaxStackDepth != 64 {
		t.Errorf("MaxStackDepth = %d, want 64", m.Runtime.MaxStackDepth)
	}
	if m.Runtime.MaxExecutionTime.Duration != 2*time.Second {
		t.Errorf("MaxExecutionTime = %s, want 2s", m.Runtime.MaxExecutionTime.Duration)
	}
	if m.Runtime.MaxMemoryUsage != 1048576 {
		t.Errorf("MaxMemoryUsage = %d, want 1048576", m.Runtime.MaxMemoryUsage)
	}
	if m.Database.Driver != "duckdb" || m.Database.DSN != "analytics.db" {
		t.Errorf("database = %+v", m.Database)
	}
	if m.Logging.Verbosity == nil || *m.Logging.Verbosity != 2 {
		t.Errorf("Verbosity = %v, want 2", m.Logging.Verbosity)
	}
	if m.Dir == "" || !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute path", m.Dir)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[runtime]
max-stack-depth = 10
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Runtime.MaxStackDepth != 10 {
		t.Errorf("MaxStackDepth = %d, want 10", m.Runtime.MaxStackDepth)
	}
	if m.Runtime.MaxExecutionTime.Duration != 30*time.Second {
		t.Errorf("MaxExecutionTime = %s, want default 30s", m.Runtime.MaxExecutionTime.Duration)
	}
	if m.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want default sqlite", m.Database.Driver)
	}
	if m.Logging.Verbosity == nil || *m.Logging.Verbosity != 1 {
		t.Errorf("Verbosity = %v, want default 1", m.Logging.Verbosity)
	}
}

func TestVerbosityZeroKept(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[logging]
verbosity = 0
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// An explicit 0 is a quiet setting, not an absent key.
	if m.Logging.Verbosity == nil || *m.Logging.Verbosity != 0 {
		t.Errorf("Verbosity = %v, want explicit 0", m.Logging.Verbosity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of missing nbc.toml did not fail")
	}
}

func TestLoadBadToml(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[runtime`)
	if _, err := Load(dir); err == nil {
		t.Error("Load of malformed nbc.toml did not fail")
	}
}

func TestLoadBadDuration(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[runtime]
max-execution-time = "sideways"
`)
	if _, err := Load(dir); err == nil {
		t.Error("Load with unparseable duration did not fail")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[runtime]
max-stack-depth = 99
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad found nothing")
	}
	if m.Runtime.MaxStackDepth != 99 {
		t.Errorf("MaxStackDepth = %d, want 99", m.Runtime.MaxStackDepth)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("FindAndLoad = %+v, want nil when no manifest exists", m)
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	cfg := m.RuntimeConfig()
	if cfg.MaxStackDepth != 256 {
		t.Errorf("MaxStackDepth = %d, want 256", cfg.MaxStackDepth)
	}
	if cfg.MaxExecutionTime != 30*time.Second {
		t.Errorf("MaxExecutionTime = %s, want 30s", cfg.MaxExecutionTime)
	}
	if cfg.MaxMemoryUsage != 0 {
		t.Errorf("MaxMemoryUsage = %d, want unbounded", cfg.MaxMemoryUsage)
	}
}
