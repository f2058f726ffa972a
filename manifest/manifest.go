// Package manifest handles dictu.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "dictu.toml"

// Manifest represents a dictu.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the dictu.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Runtime tunes a VM instance.
type Runtime struct {
	StackSize    int      `toml:"stack-size"`
	FrameLimit   int      `toml:"frame-limit"`
	GCGrowFactor float64  `toml:"gc-grow-factor"`
	GCMinHeap    int      `toml:"gc-min-heap"`
	GCStress     bool     `toml:"gc-stress"`
	ModulePaths  []string `toml:"module-paths"`
}

// Log configures diagnostic logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default runtime limits.
const (
	DefaultStackSize    = 256 * 64
	DefaultFrameLimit   = 1000
	DefaultGCGrowFactor = 2
	DefaultGCMinHeap    = 1024 * 1024
)

// DefaultRuntime returns the runtime settings used when no manifest
// overrides them.
func DefaultRuntime() Runtime {
	return Runtime{
		StackSize:    DefaultStackSize,
		FrameLimit:   DefaultFrameLimit,
		GCGrowFactor: DefaultGCGrowFactor,
		GCMinHeap:    DefaultGCMinHeap,
	}
}

// WithDefaults fills every unset field of r from DefaultRuntime.
func (r Runtime) WithDefaults() Runtime {
	d := DefaultRuntime()
	if r.StackSize <= 0 {
		r.StackSize = d.StackSize
	}
	if r.FrameLimit <= 0 {
		r.FrameLimit = d.FrameLimit
	}
	if r.GCGrowFactor <= 1 {
		r.GCGrowFactor = d.GCGrowFactor
	}
	if r.GCMinHeap <= 0 {
		r.GCMinHeap = d.GCMinHeap
	}
	return r
}

// Load parses a dictu.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
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

	m.Runtime = m.Runtime.WithDefaults()
	if m.Project.Entry == "" {
		m.Project.Entry = "main.du"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a dictu.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
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

// EntryPath returns the absolute path of the project's entry script.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// ModuleDirs returns absolute paths for the configured module search
// directories.
func (m *Manifest) ModuleDirs() []string {
	var paths []string
	for _, d := range m.Runtime.ModulePaths {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}
