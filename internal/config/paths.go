package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Paths fixes every location this tool reads or writes. It is built once at
// process start and handed to each component; nothing reads global state.
type Paths struct {
	Home           string // base directory, default ~/.config/llamate
	ConfigFile     string // global settings file
	ModelsDir      string // one YAML record per model
	GGUFDir        string // default artifact storage
	BinDir         string // downloaded binaries
	SwapConfigFile string // rendered supervisor document
}

// DefaultBase returns the default base directory (~/.config/llamate).
func DefaultBase() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "llamate"), nil
}

// NewPaths builds a Paths rooted at base. Empty base means the default root.
func NewPaths(base string) (Paths, error) {
	base, err := expandHome(base)
	if err != nil {
		return Paths{}, err
	}
	if base == "" {
		base, err = DefaultBase()
		if err != nil {
			return Paths{}, err
		}
	}
	return Paths{
		Home:           base,
		ConfigFile:     filepath.Join(base, "config.yaml"),
		ModelsDir:      filepath.Join(base, "models"),
		GGUFDir:        filepath.Join(base, "ggufs"),
		BinDir:         filepath.Join(base, "bin"),
		SwapConfigFile: filepath.Join(base, "llama-swap.yaml"),
	}, nil
}

// ServerBin returns the default serving binary path under BinDir.
func (p Paths) ServerBin() string {
	return filepath.Join(p.BinDir, exeName("llama-server"))
}

// SwapBin returns the supervisor binary path under BinDir.
func (p Paths) SwapBin() string {
	return filepath.Join(p.BinDir, exeName("llama-swap"))
}

// EnsureDirs creates the directory tree this tool works in.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Home, p.ModelsDir, p.GGUFDir, p.BinDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
