package build

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/emit"
	"github.com/funvibe/funxc/internal/kernel"
)

func skipIfShortOrNoGo(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not found")
	}
}

func TestGoMod_Remote(t *testing.T) {
	t.Parallel()
	content, err := New().goMod()
	if err != nil {
		t.Fatal(err)
	}
	want := "require " + config.RuntimeModulePath + " v" + config.Version
	if !strings.Contains(content, want) {
		t.Errorf("go.mod = %q, want it to contain %q", content, want)
	}
	if strings.Contains(content, "replace") {
		t.Errorf("go.mod = %q, want no replace directive", content)
	}
}

func TestGoMod_LocalRuntime(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content, err := New(WithRuntimeDir(dir)).goMod()
	if err != nil {
		t.Fatal(err)
	}
	want := "replace " + config.RuntimeModulePath + " => " + dir
	if !strings.Contains(content, want) {
		t.Errorf("go.mod = %q, want it to contain %q", content, want)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Build = config.BuildConfig{Output: "out/prog", GOOS: "linux", GOARCH: "arm64", RuntimeDir: "/src/funxc"}
	b := FromConfig(cfg, WithVerbose(true))
	if b.outputPath != "out/prog" || b.targetOS != "linux" || b.targetArch != "arm64" || b.runtimeDir != "/src/funxc" || !b.verbose {
		t.Errorf("builder = %+v, want the build section applied", b)
	}
}

func TestBuild_WritesWorkspace(t *testing.T) {
	dir := t.TempDir()
	b := New(WithWorkDir(dir))
	// Without a go command on PATH the build fails after the workspace is
	// written; either way the files must be present.
	t.Setenv("PATH", "")
	if _, err := b.Build("demo.go", []byte("package main\n\nfunc main() {}\n")); err == nil {
		t.Fatal("Build succeeded without a go command")
	}
	for _, name := range []string{"demo.go", "go.mod"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestBuild_E2E(t *testing.T) {
	skipIfShortOrNoGo(t)

	main := kernel.Def{Name: "main", Expr: &kernel.Block{Kind: kernel.DoBlock, Items: []kernel.BlockItem{{
		Kind: kernel.ItemExpr,
		Expr: kernel.Apply(&kernel.Builtin{Name: "println"}, &kernel.TextLit{Value: "built"}),
	}}}}
	out, err := emit.Emit(&kernel.Module{Name: "demo", Defs: []kernel.Def{main}, Registry: kernel.NewRegistry()},
		emit.Options{Kind: config.KindProgram})
	if err != nil {
		t.Fatal(err)
	}

	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatal(err)
	}
	b := New(WithRuntimeDir(root), WithOutput(filepath.Join(t.TempDir(), "demo")))
	defer b.Cleanup()
	res, err := b.Build(out.File.Filename, []byte(out.File.Content))
	if err != nil {
		t.Fatal(err)
	}

	got, err := exec.Command(res.BinaryPath).CombinedOutput()
	if err != nil {
		t.Fatalf("running %s: %v\n%s", res.BinaryPath, err, got)
	}
	if string(got) != "built\n" {
		t.Errorf("output = %q, want %q", got, "built\n")
	}
}
