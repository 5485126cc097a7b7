package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}\n"), "funxc.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != BackendSSA {
		t.Errorf("backend = %q, want %q", cfg.Backend, BackendSSA)
	}
	if cfg.Kind != KindProgram {
		t.Errorf("kind = %q, want %q", cfg.Kind, KindProgram)
	}
	if cfg.Package != DefaultLibraryPackage {
		t.Errorf("package = %q, want %q", cfg.Package, DefaultLibraryPackage)
	}
	if cfg.DepthBudget != CgTypeDepthBudget {
		t.Errorf("depth_budget = %d, want %d", cfg.DepthBudget, CgTypeDepthBudget)
	}
}

func TestParseConfig_Full(t *testing.T) {
	yaml := `
backend: structural
kind: library
package: mathlib
depth_budget: 16
cache:
  path: .funxc/cache.db
build:
  output: bin/app
  goos: linux
  goarch: arm64
`
	cfg, err := ParseConfig([]byte(yaml), "funxc.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != BackendStructural {
		t.Errorf("backend = %q, want structural", cfg.Backend)
	}
	if cfg.Kind != KindLibrary {
		t.Errorf("kind = %q, want library", cfg.Kind)
	}
	if cfg.Package != "mathlib" {
		t.Errorf("package = %q, want mathlib", cfg.Package)
	}
	if cfg.DepthBudget != 16 {
		t.Errorf("depth_budget = %d, want 16", cfg.DepthBudget)
	}
	if cfg.Build.GOOS != "linux" || cfg.Build.GOARCH != "arm64" {
		t.Errorf("build target = %s/%s, want linux/arm64", cfg.Build.GOOS, cfg.Build.GOARCH)
	}
	if got := cfg.BackendOrder(); len(got) != 1 || got[0] != BackendStructural {
		t.Errorf("BackendOrder() = %v, want [structural]", got)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown backend", "backend: llvm\n", "unknown backend"},
		{"unknown kind", "kind: plugin\n", "unknown output kind"},
		{"bad package", "package: 9lives\n", "not a valid Go package name"},
		{"negative budget", "depth_budget: -1\n", "must not be negative"},
		{"half target", "build:\n  goos: linux\n", "goos and goarch"},
		{"malformed", "backend: [\n", "parsing"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tt.yaml), "funxc.yaml")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "funxc.yaml") && tt.wantErr != "parsing" {
				t.Errorf("error %q is not qualified with the config path", err.Error())
			}
		})
	}
}

func TestBackendOrder_PrefersSSA(t *testing.T) {
	got := Default().BackendOrder()
	if len(got) != 2 || got[0] != BackendSSA || got[1] != BackendStructural {
		t.Errorf("BackendOrder() = %v, want [ssa structural]", got)
	}
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "funxc.yaml")
	content := "cache:\n  path: cache/artifacts.db\nbuild:\n  runtime_dir: ../funxc\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if want := filepath.Join(dir, "cache", "artifacts.db"); cfg.Cache.Path != want {
		t.Errorf("cache.path = %q, want %q", cfg.Cache.Path, want)
	}
	if want := filepath.Join(dir, "..", "funxc"); cfg.Build.RuntimeDir != filepath.Clean(want) {
		t.Errorf("build.runtime_dir = %q, want %q", cfg.Build.RuntimeDir, filepath.Clean(want))
	}
	got, err := cfg.CachePath()
	if err != nil || got != cfg.Cache.Path {
		t.Errorf("CachePath() = %q, %v", got, err)
	}
}

func TestFindConfig_WalksParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "funxc.yml")
	if err := os.WriteFile(want, []byte("kind: library\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != want {
		t.Errorf("FindConfig = %q, want %q", got, want)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Apply(BackendStructural, "", "mylib"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Backend != BackendStructural || cfg.Kind != KindProgram || cfg.Package != "mylib" {
		t.Errorf("cfg = %+v, want structural program in package mylib", cfg)
	}

	err := Default().Apply("", "shared", "")
	if err == nil || !strings.Contains(err.Error(), `command line: kind: unknown output kind "shared"`) {
		t.Errorf("Apply(kind=shared) error = %v", err)
	}
}
