package pipeline

import (
	"errors"
	"os"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
)

// PipelineContext carries the state of one compilation through the stages.
type PipelineContext struct {
	FilePath string
	Config   *config.Config

	// Input is the raw kernel document; LoadProcessor fills it from
	// FilePath when empty.
	Input  []byte
	Module *kernel.Module

	// Artifacts. Filename and Source hold generated Go; Object holds an
	// object buffer and ObjectDefs the definitions it contains.
	Filename   string
	Source     []byte
	Object     []byte
	ObjectDefs []string

	// Typed maps definitions with a _typed sibling to the backend used.
	Typed map[string]string

	// CacheHit is set when the artifact was served from the cache.
	CacheHit bool

	Errors []error
}

// NewContext returns a context for compiling the file at path.
func NewContext(path string, cfg *config.Config) *PipelineContext {
	if cfg == nil {
		cfg = config.Default()
	}
	return &PipelineContext{FilePath: path, Config: cfg}
}

// Failed reports whether any stage recorded an error.
func (c *PipelineContext) Failed() bool { return len(c.Errors) > 0 }

// Err joins the recorded errors, or returns nil.
func (c *PipelineContext) Err() error { return errors.Join(c.Errors...) }

// LoadProcessor reads and decodes the kernel module.
type LoadProcessor struct{}

func (LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() || ctx.Module != nil {
		return ctx
	}
	if ctx.Input == nil {
		data, err := os.ReadFile(ctx.FilePath)
		if err != nil {
			ctx.Errors = append(ctx.Errors, err)
			return ctx
		}
		ctx.Input = data
	}
	m, err := kernel.DecodeModule(ctx.Input, ctx.FilePath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Module = m
	return ctx
}
