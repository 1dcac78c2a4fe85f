// Package manifest handles nbc.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/noodle-lang/nbc/vm"
)

// Manifest represents an nbc.toml runtime configuration.
type Manifest struct {
	Runtime  Runtime  `toml:"runtime"`
	Database Database `toml:"database"`
	Logging  Logging  `toml:"logging"`

	// Dir is the directory containing the nbc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the execution bounds.
type Runtime struct {
	MaxStackDepth    int      `toml:"max-stack-depth"`
	MaxExecutionTime duration `toml:"max-execution-time"`
	MaxMemoryUsage   uint64   `toml:"max-memory-usage"`
}

// Database configures the optional database collaborator.
type Database struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Logging configures log output. Verbosity is a pointer so an explicit 0 in
// nbc.toml is distinguishable from an absent key.
type Logging struct {
	Verbosity *int `toml:"verbosity"`
}

// duration wraps time.Duration for TOML strings like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Load parses an nbc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "nbc.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find an nbc.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "nbc.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration used when no nbc.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	def := vm.DefaultConfig()
	if m.Runtime.MaxStackDepth == 0 {
		m.Runtime.MaxStackDepth = def.MaxStackDepth
	}
	if m.Runtime.MaxExecutionTime.Duration == 0 {
		m.Runtime.MaxExecutionTime.Duration = def.MaxExecutionTime
	}
	if m.Database.Driver == "" {
		m.Database.Driver = "sqlite"
	}
	if m.Logging.Verbosity == nil {
		v := 1
		m.Logging.Verbosity = &v
	}
}

// RuntimeConfig converts the manifest's runtime section to engine bounds.
func (m *Manifest) RuntimeConfig() vm.Config {
	return vm.Config{
		MaxStackDepth:    m.Runtime.MaxStackDepth,
		MaxExecutionTime: m.Runtime.MaxExecutionTime.Duration,
		MaxMemoryUsage:   m.Runtime.MaxMemoryUsage,
	}
}
