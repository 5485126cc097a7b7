// Package config holds funxc constants and the funxc.yaml configuration.
//
// The configuration file selects the typed backend preference, the output
// kind, the depth budget used by the closedness lattice, the artifact cache
// location and executable build settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level funxc.yaml configuration.
type Config struct {
	// Backend is the preferred typed backend: "ssa" tries the SSA backend
	// first and falls back to the structural one, "structural" uses only the
	// structural backend. Defaults to "ssa".
	Backend string `yaml:"backend,omitempty"`

	// Kind is the output shape, "program" or "library". Defaults to "program".
	Kind string `yaml:"kind,omitempty"`

	// Package is the Go package name of generated libraries.
	// Programs always use package main.
	Package string `yaml:"package,omitempty"`

	// DepthBudget bounds recursive type lowering. Defaults to 64.
	DepthBudget int `yaml:"depth_budget,omitempty"`

	// Cache configures the artifact cache.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// Build configures executable builds.
	Build BuildConfig `yaml:"build,omitempty"`
}

// CacheConfig configures the sqlite artifact cache.
type CacheConfig struct {
	// Path is the database file. Relative paths are resolved against the
	// directory containing funxc.yaml. Defaults to the user cache directory.
	Path string `yaml:"path,omitempty"`

	// Disabled turns caching off.
	Disabled bool `yaml:"disabled,omitempty"`
}

// BuildConfig configures `funxc build`.
type BuildConfig struct {
	// Output is the executable path.
	Output string `yaml:"output,omitempty"`

	// GOOS and GOARCH select a cross-compilation target (empty = native).
	GOOS   string `yaml:"goos,omitempty"`
	GOARCH string `yaml:"goarch,omitempty"`

	// RuntimeDir is a local checkout of the funxc module. When set, built
	// programs use a replace directive instead of downloading the runtime.
	RuntimeDir string `yaml:"runtime_dir,omitempty"`
}

// Default returns the configuration used when no funxc.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a funxc.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// ParseConfig parses funxc.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for funxc.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file, or empty string if none exists.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Apply overrides the configured backend, kind and package with the
// non-empty arguments, as given on the command line, and validates the
// result.
func (c *Config) Apply(backend, kind, pkg string) error {
	if backend != "" {
		c.Backend = backend
	}
	if kind != "" {
		c.Kind = kind
	}
	if pkg != "" {
		c.Package = pkg
	}
	return c.validate("command line")
}

func (c *Config) validate(path string) error {
	switch c.Backend {
	case "", BackendSSA, BackendStructural:
	default:
		return fmt.Errorf("%s: backend: unknown backend %q (want %s or %s)",
			path, c.Backend, BackendSSA, BackendStructural)
	}

	switch c.Kind {
	case "", KindProgram, KindLibrary:
	default:
		return fmt.Errorf("%s: kind: unknown output kind %q (want %s or %s)",
			path, c.Kind, KindProgram, KindLibrary)
	}

	if c.Package != "" && !isGoIdentifier(c.Package) {
		return fmt.Errorf("%s: package: %q is not a valid Go package name", path, c.Package)
	}

	if c.DepthBudget < 0 {
		return fmt.Errorf("%s: depth_budget: must not be negative, got %d", path, c.DepthBudget)
	}

	if (c.Build.GOOS == "") != (c.Build.GOARCH == "") {
		return fmt.Errorf("%s: build: goos and goarch must be set together", path)
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSSA
	}
	if c.Kind == "" {
		c.Kind = KindProgram
	}
	if c.Package == "" {
		c.Package = DefaultLibraryPackage
	}
	if c.DepthBudget == 0 {
		c.DepthBudget = CgTypeDepthBudget
	}
}

func (c *Config) resolvePaths(configDir string) {
	if c.Cache.Path != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(configDir, c.Cache.Path)
	}
	if c.Build.RuntimeDir != "" && !filepath.IsAbs(c.Build.RuntimeDir) {
		c.Build.RuntimeDir = filepath.Join(configDir, c.Build.RuntimeDir)
	}
}

// BackendOrder returns the typed backends to try, most preferred first.
func (c *Config) BackendOrder() []string {
	if c.Backend == BackendStructural {
		return []string{BackendStructural}
	}
	return []string{BackendSSA, BackendStructural}
}

// CachePath returns the cache database path, falling back to the user cache dir.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache dir: %w", err)
	}
	return filepath.Join(dir, "funxc", "artifacts.db"), nil
}

func isGoIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
