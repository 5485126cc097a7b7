// Package build turns generated Go source into an executable by assembling
// a throwaway Go module around it and running the Go toolchain.
package build

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/funvibe/funxc/internal/config"
)

// Builder assembles the temporary Go project and builds the program.
type Builder struct {
	// runtimeDir is a local checkout of the runtime module. Used for the
	// replace directive in go.mod. Optional.
	runtimeDir string

	// runtimeVersion is the runtime module version to require.
	runtimeVersion string

	// outputPath is the final binary output path.
	outputPath string

	// targetOS is the GOOS for cross-compilation (empty = native).
	targetOS string

	// targetArch is the GOARCH for cross-compilation (empty = native).
	targetArch string

	// workDir is the temporary build directory.
	workDir string

	// verbose enables detailed build output.
	verbose bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithOutput sets the output binary path.
func WithOutput(path string) Option {
	return func(b *Builder) { b.outputPath = path }
}

// WithCrossCompile sets the target OS/arch for cross-compilation.
func WithCrossCompile(goos, goarch string) Option {
	return func(b *Builder) { b.targetOS = goos; b.targetArch = goarch }
}

// WithRuntimeDir builds against a local runtime checkout.
func WithRuntimeDir(dir string) Option {
	return func(b *Builder) { b.runtimeDir = dir }
}

// WithVerbose enables verbose build output.
func WithVerbose(v bool) Option {
	return func(b *Builder) { b.verbose = v }
}

// WithWorkDir builds in an existing directory instead of a temporary one.
func WithWorkDir(dir string) Option {
	return func(b *Builder) { b.workDir = dir }
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{runtimeVersion: "v" + config.Version}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromConfig creates a Builder from the build section of cfg.
func FromConfig(cfg *config.Config, opts ...Option) *Builder {
	base := []Option{
		WithOutput(cfg.Build.Output),
		WithCrossCompile(cfg.Build.GOOS, cfg.Build.GOARCH),
		WithRuntimeDir(cfg.Build.RuntimeDir),
	}
	return New(append(base, opts...)...)
}

// Result contains the output of a successful build.
type Result struct {
	// BinaryPath is the path to the built binary.
	BinaryPath string

	// WorkDir is the temporary build directory (caller may want to inspect it).
	WorkDir string
}

// Build writes the generated file into the workspace, adds a go.mod
// requiring the runtime and runs go build.
func (b *Builder) Build(filename string, source []byte) (*Result, error) {
	if err := b.ensureWorkDir(); err != nil {
		return nil, fmt.Errorf("workspace setup: %w", err)
	}
	b.tracef("workspace: %s", b.workDir)

	if err := os.WriteFile(filepath.Join(b.workDir, filename), source, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", filename, err)
	}
	b.tracef("wrote %s", filename)

	gomod, err := b.goMod()
	if err != nil {
		return nil, fmt.Errorf("generating go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.workDir, "go.mod"), []byte(gomod), 0o644); err != nil {
		return nil, fmt.Errorf("writing go.mod: %w", err)
	}
	b.tracef("go.mod:\n%s", gomod)

	if err := b.goModTidy(); err != nil {
		return nil, fmt.Errorf("go mod tidy: %w", err)
	}
	binaryPath, err := b.goBuild()
	if err != nil {
		return nil, fmt.Errorf("go build: %w", err)
	}
	return &Result{BinaryPath: binaryPath, WorkDir: b.workDir}, nil
}

// Cleanup removes the temporary workspace.
func (b *Builder) Cleanup() {
	if b.workDir != "" {
		os.RemoveAll(b.workDir)
		b.workDir = ""
	}
}

func (b *Builder) ensureWorkDir() error {
	if b.workDir != "" {
		return os.MkdirAll(b.workDir, 0o755)
	}
	dir, err := os.MkdirTemp("", "funxc-build-*")
	if err != nil {
		return err
	}
	b.workDir = dir
	return nil
}

// goMod renders the workspace go.mod.
func (b *Builder) goMod() (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module funxcprog\n\ngo %s\n\nrequire %s %s\n",
		config.GoVersion, config.RuntimeModulePath, b.runtimeVersion)
	if b.runtimeDir != "" {
		abs, err := filepath.Abs(b.runtimeDir)
		if err != nil {
			return "", fmt.Errorf("resolving runtime dir: %w", err)
		}
		fmt.Fprintf(&sb, "\nreplace %s => %s\n", config.RuntimeModulePath, abs)
	}
	return sb.String(), nil
}

func (b *Builder) goModTidy() error {
	cmd := exec.Command("go", "mod", "tidy")
	cmd.Dir = b.workDir
	cmd.Env = append(os.Environ(), "GOWORK=off")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s\n%w", string(output), err)
	}
	b.tracef("go mod tidy OK")
	return nil
}

// goBuild runs go build and returns the path to the built binary.
func (b *Builder) goBuild() (string, error) {
	outputPath := b.outputPath
	if outputPath == "" {
		outputPath = filepath.Join(b.workDir, "program")
	}
	if (b.targetOS == "windows" || b.targetOS == "" && runtime.GOOS == "windows") && !strings.HasSuffix(outputPath, ".exe") {
		outputPath += ".exe"
	}
	outputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return "", err
	}

	cmd := exec.Command("go", "build", "-trimpath", "-ldflags=-s -w", "-o", outputPath, ".")
	cmd.Dir = b.workDir
	env := append(os.Environ(), "GOWORK=off", "CGO_ENABLED=0")
	if b.targetOS != "" {
		env = append(env, "GOOS="+b.targetOS)
	}
	if b.targetArch != "" {
		env = append(env, "GOARCH="+b.targetArch)
	}
	cmd.Env = env

	b.tracef("go build -o %s .", outputPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("go build failed:\n%s\n%w", string(output), err)
	}
	b.tracef("go build OK")
	return outputPath, nil
}

func (b *Builder) tracef(format string, args ...any) {
	if b.verbose {
		fmt.Fprintf(os.Stderr, "[funxc] "+format+"\n", args...)
	}
}
