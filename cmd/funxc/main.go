// Command funxc compiles kernel modules to Go source, object buffers and
// native executables.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/funxc/internal/cache"
	"github.com/funvibe/funxc/internal/config"
)

const usageText = `usage: funxc <command> [flags] <file>...

commands:
  emit     write Go source for kernel modules
  build    build a native executable
  object   write an object buffer of the natively compilable definitions
  jit      compile one definition in memory and run it
  plan     print the reuse plan and the closedness of every definition
  cache    manage the artifact cache ("cache clean")
  version  print the version
`

var colorize = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func red(s string) string {
	if !colorize {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

func usage() { fmt.Fprint(os.Stderr, usageText) }

func fail(err error) int {
	log.Print(red(err.Error()))
	return 1
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("funxc: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "emit":
		os.Exit(cmdEmit(args))
	case "build":
		os.Exit(cmdBuild(args))
	case "object":
		os.Exit(cmdObject(args))
	case "jit":
		os.Exit(cmdJit(args))
	case "plan":
		os.Exit(cmdPlan(args))
	case "cache":
		os.Exit(cmdCache(args))
	case "version":
		fmt.Printf("funxc %s (codegen %s)\n", config.Version, config.CodegenVersion)
	case "-h", "--help", "help":
		usage()
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}
}

// loadConfig finds the funxc.yaml governing file, falling back to the
// defaults when there is none.
func loadConfig(file string) (*config.Config, error) {
	path, err := config.FindConfig(filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

// openCache opens the artifact cache of cfg. A disabled or unusable cache
// yields nil, which turns the cache stages off.
func openCache(cfg *config.Config, noCache bool, trace io.Writer) *cache.Cache {
	if noCache || cfg.Cache.Disabled {
		return nil
	}
	path, err := cfg.CachePath()
	if err != nil {
		log.Printf("cache disabled: %v", err)
		return nil
	}
	c, err := cache.Open(path)
	if err != nil {
		log.Printf("cache disabled: %v", err)
		return nil
	}
	if trace != nil {
		fmt.Fprintf(trace, "[funxc] cache: %s\n", path)
	}
	return c
}

func traceWriter(verbose bool) io.Writer {
	if verbose {
		return os.Stderr
	}
	return nil
}
