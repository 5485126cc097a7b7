package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/funxc/internal/cache"
	"github.com/funvibe/funxc/internal/emit"
)

// EmitProcessor generates Go source for the loaded module.
type EmitProcessor struct{}

func (EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil || ctx.Failed() || ctx.Source != nil {
		return ctx
	}
	out, err := emit.Emit(ctx.Module, emit.OptionsFrom(ctx.Config))
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Filename = out.File.Filename
	ctx.Source = []byte(out.File.Content)
	ctx.Typed = out.Typed
	return ctx
}

// ObjectProcessor encodes the natively compilable definitions of the loaded
// module into an object buffer.
type ObjectProcessor struct{}

func (ObjectProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil || ctx.Failed() || ctx.Object != nil {
		return ctx
	}
	data, names, err := emit.EmitObject(ctx.Module, emit.OptionsFrom(ctx.Config))
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Object = data
	ctx.ObjectDefs = names
	return ctx
}

// CacheLookup serves an artifact of Kind from Cache when one exists for
// the current input and options. A nil Cache disables the stage.
type CacheLookup struct {
	Cache *cache.Cache
	Kind  string
	// Trace receives verbose output when non-nil.
	Trace io.Writer
}

func (p CacheLookup) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil || ctx.Module == nil || ctx.Failed() {
		return ctx
	}
	a, ok, err := p.Cache.Get(context.Background(), p.Kind, cacheKey(ctx))
	if err != nil {
		// A broken cache only costs a recompile.
		trace(p.Trace, "cache lookup failed: %v", err)
		return ctx
	}
	if !ok {
		trace(p.Trace, "cache miss for %s", ctx.FilePath)
		return ctx
	}
	var meta artifactMeta
	if err := yaml.Unmarshal(a.Meta, &meta); err != nil || p.Kind == cache.KindSource && meta.Filename == "" {
		trace(p.Trace, "cache entry for %s has no usable metadata", ctx.FilePath)
		return ctx
	}
	trace(p.Trace, "cache hit for %s", ctx.FilePath)
	ctx.CacheHit = true
	switch p.Kind {
	case cache.KindSource:
		ctx.Filename = meta.Filename
		ctx.Source = a.Data
		ctx.Typed = meta.Typed
	case cache.KindObject:
		ctx.Object = a.Data
		ctx.ObjectDefs = meta.ObjectDefs
	}
	return ctx
}

// artifactMeta is the part of a stage result that is not the artifact
// itself.
type artifactMeta struct {
	Filename   string            `yaml:"filename,omitempty"`
	Typed      map[string]string `yaml:"typed,omitempty"`
	ObjectDefs []string          `yaml:"object_defs,omitempty"`
}

// CacheStore records the artifact of Kind produced by earlier stages.
type CacheStore struct {
	Cache *cache.Cache
	Kind  string
	Trace io.Writer
}

func (p CacheStore) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil || ctx.Module == nil || ctx.Failed() || ctx.CacheHit {
		return ctx
	}
	var a cache.Artifact
	var meta artifactMeta
	switch p.Kind {
	case cache.KindSource:
		a.Data = ctx.Source
		meta = artifactMeta{Filename: ctx.Filename, Typed: ctx.Typed}
	case cache.KindObject:
		a.Data = ctx.Object
		meta = artifactMeta{ObjectDefs: ctx.ObjectDefs}
	}
	if a.Data == nil {
		return ctx
	}
	var err error
	if a.Meta, err = yaml.Marshal(meta); err != nil {
		trace(p.Trace, "cache store failed: %v", err)
		return ctx
	}
	if err := p.Cache.Put(context.Background(), p.Kind, cacheKey(ctx), a); err != nil {
		trace(p.Trace, "cache store failed: %v", err)
	}
	return ctx
}

func cacheKey(ctx *PipelineContext) string {
	cfg := ctx.Config
	return cache.Key(ctx.Input,
		cfg.Kind,
		cfg.Package,
		strings.Join(cfg.BackendOrder(), ","),
		strconv.Itoa(cfg.DepthBudget),
	)
}

func trace(w io.Writer, format string, args ...any) {
	if w != nil {
		fmt.Fprintf(w, "[funxc] "+format+"\n", args...)
	}
}

// SourcePipeline returns the stages that turn a kernel file into Go
// source, consulting c when it is not nil.
func SourcePipeline(c *cache.Cache, traceTo io.Writer) *Pipeline {
	return New(
		LoadProcessor{},
		CacheLookup{Cache: c, Kind: cache.KindSource, Trace: traceTo},
		EmitProcessor{},
		CacheStore{Cache: c, Kind: cache.KindSource, Trace: traceTo},
	)
}

// ObjectPipeline returns the stages that turn a kernel file into an
// object buffer.
func ObjectPipeline(c *cache.Cache, traceTo io.Writer) *Pipeline {
	return New(
		LoadProcessor{},
		CacheLookup{Cache: c, Kind: cache.KindObject, Trace: traceTo},
		ObjectProcessor{},
		CacheStore{Cache: c, Kind: cache.KindObject, Trace: traceTo},
	)
}
