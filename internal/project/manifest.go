// Package project loads symforge.toml manifests: a declarative seed for a
// symbol set, naming the target plus the types, functions, and data the
// engine starts from before interactive edits.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const manifestName = "symforge.toml"

// Manifest is a parsed symforge.toml plus where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the TOML layout.
type Config struct {
	Module  ModuleConfig  `toml:"module"`
	Options OptionsConfig `toml:"options"`
	Types   TypesConfig   `toml:"types"`

	Functions []FunctionConfig `toml:"functions"`
	Globals   []GlobalConfig   `toml:"globals"`
	Publics   []PublicConfig   `toml:"publics"`
}

type ModuleConfig struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
}

type OptionsConfig struct {
	CreatePointers *bool `toml:"create_pointers"`
	CreateArrays   *bool `toml:"create_arrays"`
}

type TypesConfig struct {
	Basic    []BasicConfig   `toml:"basic"`
	UDTs     []UDTConfig     `toml:"udt"`
	Enums    []EnumConfig    `toml:"enum"`
	Typedefs []TypedefConfig `toml:"typedef"`
}

type BasicConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
	Size int    `toml:"size"`
}

type UDTConfig struct {
	Name   string        `toml:"name"`
	Bases  []BaseConfig  `toml:"bases"`
	Fields []FieldConfig `toml:"fields"`
}

type BaseConfig struct {
	Type   string `toml:"type"`
	Offset *int64 `toml:"offset"`
}

type FieldConfig struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Offset *int64 `toml:"offset"`
}

type EnumConfig struct {
	Name       string           `toml:"name"`
	Underlying string           `toml:"underlying"`
	Values     []EnumerantConfig `toml:"values"`
}

type EnumerantConfig struct {
	Name  string `toml:"name"`
	Value *int64 `toml:"value"`
}

type TypedefConfig struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
}

type FunctionConfig struct {
	Name   string        `toml:"name"`
	Return string        `toml:"return"`
	Ranges []RangeConfig `toml:"ranges"`
	Params []VarConfig   `toml:"params"`
	Locals []VarConfig   `toml:"locals"`
}

type RangeConfig struct {
	Offset uint64 `toml:"offset"`
	Size   uint64 `toml:"size"`
}

type VarConfig struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type GlobalConfig struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	Addr uint64 `toml:"addr"`
}

type PublicConfig struct {
	Name string `toml:"name"`
	Addr uint64 `toml:"addr"`
}

// Find walks up from startDir looking for a symforge.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("module") {
		return nil, fmt.Errorf("%s: missing [module]", path)
	}
	if !meta.IsDefined("module", "name") || strings.TrimSpace(cfg.Module.Name) == "" {
		return nil, fmt.Errorf("%s: missing [module].name", path)
	}
	if !meta.IsDefined("module", "target") || strings.TrimSpace(cfg.Module.Target) == "" {
		return nil, fmt.Errorf("%s: missing [module].target", path)
	}
	for _, fn := range cfg.Functions {
		if fn.Name == "" {
			return nil, fmt.Errorf("%s: function without a name", path)
		}
		if len(fn.Ranges) == 0 {
			return nil, fmt.Errorf("%s: function %q has no code ranges", path, fn.Name)
		}
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}
