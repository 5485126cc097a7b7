package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/funvibe/funxc/internal/build"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/emit"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/object"
	"github.com/funvibe/funxc/internal/pipeline"
)

// shapeFlags are the output-shaping flags shared by several commands.
type shapeFlags struct {
	backend, kind, pkg string
	verbose, noCache   bool
}

func (s *shapeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.backend, "backend", "", "preferred typed backend: ssa or structural")
	fs.StringVar(&s.kind, "kind", "", "output kind: program or library")
	fs.StringVar(&s.pkg, "package", "", "package name of generated libraries")
	fs.BoolVar(&s.verbose, "v", false, "verbose output")
	fs.BoolVar(&s.noCache, "no-cache", false, "bypass the artifact cache")
}

// configFor loads the configuration for file with the flags applied.
func (s *shapeFlags) configFor(file string) (*config.Config, error) {
	cfg, err := loadConfig(file)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(s.backend, s.kind, s.pkg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// emit
// -----------------------------------------------------------------------------

func cmdEmit(args []string) int {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	out := fs.String("o", "", "output file, or directory when several inputs are given (default stdout for one input)")
	var shape shapeFlags
	shape.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()
	if len(files) == 0 {
		log.Print("emit: no input files")
		return 2
	}

	cfgs := make([]*config.Config, len(files))
	for i, f := range files {
		cfg, err := shape.configFor(f)
		if err != nil {
			return fail(err)
		}
		cfgs[i] = cfg
	}
	trace := traceWriter(shape.verbose)
	c := openCache(cfgs[0], shape.noCache, trace)
	if c != nil {
		defer c.Close()
	}

	results := make([]*pipeline.PipelineContext, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f string) {
			defer wg.Done()
			results[i] = pipeline.SourcePipeline(c, trace).Run(pipeline.NewContext(f, cfgs[i]))
		}(i, f)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		errs = append(errs, r.Errors...)
	}
	if err := errors.Join(errs...); err != nil {
		return fail(err)
	}

	if len(files) == 1 && !isDir(*out) {
		if *out == "" {
			os.Stdout.Write(results[0].Source)
			return 0
		}
		if err := os.WriteFile(*out, results[0].Source, 0o644); err != nil {
			return fail(err)
		}
		return 0
	}

	dir := *out
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}
	written := make(map[string]string)
	for _, r := range results {
		if prev, ok := written[r.Filename]; ok {
			return fail(fmt.Errorf("%s and %s both generate %s", prev, r.FilePath, r.Filename))
		}
		written[r.Filename] = r.FilePath
		path := filepath.Join(dir, r.Filename)
		if err := os.WriteFile(path, r.Source, 0o644); err != nil {
			return fail(err)
		}
		if shape.verbose {
			fmt.Fprintf(os.Stderr, "[funxc] %s -> %s\n", r.FilePath, path)
		}
	}
	return 0
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// -----------------------------------------------------------------------------
// build
// -----------------------------------------------------------------------------

func cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", "", "executable path (default: module name in the current directory)")
	keep := fs.Bool("work", false, "keep the temporary build directory")
	var shape shapeFlags
	shape.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		log.Print("build: expects exactly one input file")
		return 2
	}
	file := fs.Arg(0)

	cfg, err := shape.configFor(file)
	if err != nil {
		return fail(err)
	}
	if cfg.Kind != config.KindProgram {
		return fail(fmt.Errorf("build: %s is configured as a %s; only programs can be built", file, cfg.Kind))
	}
	trace := traceWriter(shape.verbose)
	c := openCache(cfg, shape.noCache, trace)
	if c != nil {
		defer c.Close()
	}

	ctx := pipeline.SourcePipeline(c, trace).Run(pipeline.NewContext(file, cfg))
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	opts := []build.Option{build.WithVerbose(shape.verbose)}
	switch {
	case *out != "":
		opts = append(opts, build.WithOutput(*out))
	case cfg.Build.Output == "":
		opts = append(opts, build.WithOutput(strings.TrimSuffix(ctx.Filename, ".go")))
	}
	b := build.FromConfig(cfg, opts...)
	res, err := b.Build(ctx.Filename, ctx.Source)
	if *keep {
		if res != nil {
			fmt.Fprintf(os.Stderr, "work dir: %s\n", res.WorkDir)
		}
	} else {
		defer b.Cleanup()
	}
	if err != nil {
		return fail(err)
	}
	fmt.Println(res.BinaryPath)
	return 0
}

// -----------------------------------------------------------------------------
// object
// -----------------------------------------------------------------------------

func cmdObject(args []string) int {
	fs := flag.NewFlagSet("object", flag.ContinueOnError)
	out := fs.String("o", "", "object file (default: module name with .fxo)")
	dump := fs.Bool("dump", false, "print the content of an existing object file instead")
	var shape shapeFlags
	shape.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		log.Print("object: expects exactly one input file")
		return 2
	}
	file := fs.Arg(0)

	if *dump {
		data, err := os.ReadFile(file)
		if err != nil {
			return fail(err)
		}
		f, err := object.Decode(data)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", file, err))
		}
		fmt.Printf("module %s\nbuild %s\ncodegen %s\n", f.Module, f.BuildID, f.CodegenVersion)
		for _, fn := range f.Funcs {
			fmt.Printf("\n%s", fn)
		}
		return 0
	}

	cfg, err := shape.configFor(file)
	if err != nil {
		return fail(err)
	}
	trace := traceWriter(shape.verbose)
	c := openCache(cfg, shape.noCache, trace)
	if c != nil {
		defer c.Close()
	}
	ctx := pipeline.ObjectPipeline(c, trace).Run(pipeline.NewContext(file, cfg))
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	path := *out
	if path == "" {
		path = strings.TrimSuffix(emit.FileName(ctx.Module.Name), ".go") + ".fxo"
	}
	if err := os.WriteFile(path, ctx.Object, 0o644); err != nil {
		return fail(err)
	}
	if shape.verbose && ctx.ObjectDefs != nil {
		fmt.Fprintf(os.Stderr, "[funxc] %s: %s\n", path, strings.Join(ctx.ObjectDefs, ", "))
	}
	return 0
}

// -----------------------------------------------------------------------------
// jit
// -----------------------------------------------------------------------------

func cmdJit(args []string) int {
	fs := flag.NewFlagSet("jit", flag.ContinueOnError)
	def := fs.String("def", "", "definition to run")
	argList := fs.String("args", "", "comma-separated arguments")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *def == "" {
		log.Print("jit: usage: funxc jit -def name [-args a,b] <file>")
		return 2
	}

	m, err := kernel.LoadModule(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	c, err := emit.JIT(m, *def)
	if err != nil {
		return fail(err)
	}

	var texts []string
	if *argList != "" {
		texts = strings.Split(*argList, ",")
	}
	if len(texts) != len(c.Params) {
		return fail(fmt.Errorf("%s expects %d arguments, got %d", *def, len(c.Params), len(texts)))
	}
	bits := make([]uint64, len(texts))
	for i, text := range texts {
		if bits[i], err = emit.ParseArg(c.Params[i].Type, strings.TrimSpace(text)); err != nil {
			return fail(fmt.Errorf("argument %s: %w", c.Params[i].Name, err))
		}
	}
	res, err := c.Call(bits...)
	if err != nil {
		return fail(err)
	}
	fmt.Println(emit.FormatResult(c.Result, res))
	return 0
}

// -----------------------------------------------------------------------------
// plan
// -----------------------------------------------------------------------------

func cmdPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	var shape shapeFlags
	shape.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		log.Print("plan: expects exactly one input file")
		return 2
	}
	file := fs.Arg(0)
	cfg, err := shape.configFor(file)
	if err != nil {
		return fail(err)
	}
	m, err := kernel.LoadModule(file)
	if err != nil {
		return fail(err)
	}

	// The plan does not depend on the output kind; library mode avoids
	// requiring a main definition.
	opts := emit.OptionsFrom(cfg)
	opts.Kind = config.KindLibrary
	out, err := emit.Emit(m, opts)
	if err != nil {
		return fail(err)
	}

	fmt.Print(out.Plan.Comment())
	fmt.Println()
	for _, g := range kernel.Groups(m.Defs) {
		t, ok := out.Types[g.Name]
		switch {
		case !ok:
			fmt.Printf("%-20s untyped\n", g.Name)
		case t.IsClosed():
			line := fmt.Sprintf("%-20s closed  %s", g.Name, t)
			if b := out.Typed[g.Name]; b != "" {
				line += "  [" + b + "]"
			}
			fmt.Println(line)
		default:
			fmt.Printf("%-20s open    %s\n", g.Name, t)
		}
	}
	return 0
}

// -----------------------------------------------------------------------------
// cache
// -----------------------------------------------------------------------------

func cmdCache(args []string) int {
	if len(args) != 1 || args[0] != "clean" {
		log.Print("cache: usage: funxc cache clean")
		return 2
	}
	wd, err := os.Getwd()
	if err != nil {
		return fail(err)
	}
	cfg, err := loadConfig(filepath.Join(wd, "x"))
	if err != nil {
		return fail(err)
	}
	c := openCache(cfg, false, nil)
	if c == nil {
		return fail(errors.New("cache is disabled"))
	}
	defer c.Close()
	n, err := c.Clean(context.Background())
	if err != nil {
		return fail(err)
	}
	fmt.Printf("removed %d artifacts from %s\n", n, c.Path())
	return 0
}
