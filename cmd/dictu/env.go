package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/dictu/compiler"
	"github.com/chazu/dictu/internal/logging"
	"github.com/chazu/dictu/manifest"
	"github.com/chazu/dictu/stdlib"
	"github.com/chazu/dictu/vm"
)

// loadManifest finds the project configuration: the --config directory
// when given, else the nearest dictu.toml above the working directory.
// A missing manifest is not an error.
func loadManifest() (*manifest.Manifest, error) {
	if configDir != "" {
		m, err := manifest.Load(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return m, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("finding config: %w", err)
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return m, nil
}

// runtimeConfig resolves the settings every VM of this invocation uses
// and configures logging.
func runtimeConfig() (manifest.Runtime, error) {
	m, err := loadManifest()
	if err != nil {
		return manifest.Runtime{}, err
	}

	cfg := manifest.DefaultRuntime()
	level, logFile := verbosity, ""
	if m != nil {
		cfg = m.Runtime
		paths := make([]string, len(cfg.ModulePaths))
		for i, p := range cfg.ModulePaths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(m.Dir, p)
			}
			paths[i] = p
		}
		cfg.ModulePaths = paths
		level = max(level, m.Log.Verbosity)
		logFile = m.Log.File
	}
	if gcStress {
		cfg.GCStress = true
	}

	logging.Configure(level, logFile)
	if m != nil {
		log.Infof("using config %s", filepath.Join(m.Dir, manifest.FileName))
	}
	return cfg, nil
}

// newVM creates a VM with the compiler and native modules attached.
func newVM(cfg manifest.Runtime, opts ...vm.Option) *vm.VM {
	opts = append([]vm.Option{vm.WithConfig(cfg)}, opts...)
	v := vm.New(opts...)
	v.UseCompiler(compiler.Compile)
	stdlib.Register(v)
	return v
}

// exitFor maps an interpreter result to the command's error.
func exitFor(res vm.InterpretResult) error {
	switch res {
	case vm.InterpretCompileError:
		return &exitError{code: exitCompileError}
	case vm.InterpretRuntimeError:
		return &exitError{code: exitRuntimeError}
	}
	return nil
}
