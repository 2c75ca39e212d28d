package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"

	embedded "github.com/UjwalAKrishna/drawrag-core/cue"
	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// Load source labels used in metrics and logs
const (
	sourceEmbedded = "embedded"
	sourcePath     = "path"
	sourceInline   = "inline"

	statusSuccess = "success"
	statusError   = "error"
)

// schemaFile is the catalog schema within the embedded filesystem.
const schemaFile = "schema.cue"

// Loader evaluates CUE catalog sources and decodes them into
// registries, caching decoded definition sets by content digest.
type Loader struct {
	ctx         *cue.Context
	cache       *Cache
	logger      logr.Logger
	parallelism int

	schemaOnce sync.Once
	schema     cue.Value
	schemaErr  error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger. The default discards all output.
func WithLogger(logger logr.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithParallelism bounds the decode worker pool. Values below one are
// ignored.
func WithParallelism(n int) LoaderOption {
	return func(l *Loader) {
		if n >= 1 {
			l.parallelism = n
		}
	}
}

// NewLoader creates a catalog loader with an empty cache.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		ctx:         cuecontext.New(),
		cache:       NewCache(),
		logger:      logr.Discard(),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadEmbedded loads the builtin catalog compiled into the binary.
func (l *Loader) LoadEmbedded() (*registry.Static, error) {
	start := time.Now()

	entries, err := fs.ReadDir(embedded.CatalogFS, embedded.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}

	digest := xxhash.New()
	overlay := make(map[string]load.Source, len(entries))
	args := make([]string, 0, len(entries))
	for _, e := range entries {
		name := path.Join(embedded.CatalogDir, e.Name())
		data, err := fs.ReadFile(embedded.CatalogFS, name)
		if err != nil {
			return nil, fmt.Errorf("read embedded catalog: %w", err)
		}
		digest.Write(data)
		overlay["/"+name] = load.FromBytes(data)
		args = append(args, "/"+name)
	}

	key := fmt.Sprintf("embedded:%x", digest.Sum64())
	if defs, ok := l.cache.Get(key); ok {
		RecordCacheHit()
		return registry.NewStatic(defs...), nil
	}
	RecordCacheMiss()

	value, err := l.build(args, &load.Config{Dir: "/", Overlay: overlay})
	return l.finish(key, sourceEmbedded, start, value, err)
}

// LoadPath loads a catalog from the .cue files directly inside dir.
func (l *Loader) LoadPath(dir string) (*registry.Static, error) {
	start := time.Now()

	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .cue files found in %s", dir)
	}
	sort.Strings(matches)

	digest := xxhash.New()
	overlay := make(map[string]load.Source, len(matches))
	args := make([]string, 0, len(matches))
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		digest.Write(data)
		overlay[abs] = load.FromBytes(data)
		args = append(args, abs)
	}

	key := fmt.Sprintf("path:%x", digest.Sum64())
	if defs, ok := l.cache.Get(key); ok {
		RecordCacheHit()
		return registry.NewStatic(defs...), nil
	}
	RecordCacheMiss()

	value, err := l.build(args, &load.Config{Overlay: overlay})
	return l.finish(key, sourcePath, start, value, err)
}

// LoadInline compiles an inline CUE catalog source. The source is
// unified with the builtin schema, so entries inherit its constraints
// and port defaults without restating them.
func (l *Loader) LoadInline(src string) (*registry.Static, error) {
	start := time.Now()

	if src == "" {
		return nil, errors.New("inline catalog source is empty")
	}

	key := fmt.Sprintf("inline:%x", xxhash.Sum64String(src))
	if defs, ok := l.cache.Get(key); ok {
		RecordCacheHit()
		return registry.NewStatic(defs...), nil
	}
	RecordCacheMiss()

	schema, err := l.embeddedSchema()
	if err != nil {
		return l.finish(key, sourceInline, start, cue.Value{}, err)
	}

	compiled := l.ctx.CompileString(src, cue.Filename("inline.cue"))
	if compiled.Err() != nil {
		return l.finish(key, sourceInline, start, cue.Value{},
			fmt.Errorf("compile inline catalog: %w", compiled.Err()))
	}
	unified := schema.Unify(compiled)
	if err := unified.Validate(); err != nil {
		return l.finish(key, sourceInline, start, cue.Value{},
			fmt.Errorf("inline catalog conflicts with schema: %w", err))
	}
	return l.finish(key, sourceInline, start, unified, nil)
}

// embeddedSchema compiles the builtin schema file once per loader.
func (l *Loader) embeddedSchema() (cue.Value, error) {
	l.schemaOnce.Do(func() {
		data, err := fs.ReadFile(embedded.CatalogFS, path.Join(embedded.CatalogDir, schemaFile))
		if err != nil {
			l.schemaErr = fmt.Errorf("read catalog schema: %w", err)
			return
		}
		v := l.ctx.CompileBytes(data, cue.Filename(schemaFile))
		if v.Err() != nil {
			l.schemaErr = fmt.Errorf("compile catalog schema: %w", v.Err())
			return
		}
		l.schema = v
	})
	return l.schema, l.schemaErr
}

// build loads and evaluates one CUE instance from explicit file args.
func (l *Loader) build(args []string, cfg *load.Config) (cue.Value, error) {
	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, errors.New("no CUE instances found")
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("load CUE instance: %w", inst.Err)
	}
	value := l.ctx.BuildInstance(inst)
	if value.Err() != nil {
		return cue.Value{}, fmt.Errorf("build CUE value: %w", value.Err())
	}
	return value, nil
}

// finish decodes an evaluated catalog value, records metrics, and
// caches the decoded definitions under key.
func (l *Loader) finish(key, source string, start time.Time, value cue.Value, err error) (*registry.Static, error) {
	if err != nil {
		RecordLoad(source, statusError, time.Since(start).Seconds())
		return nil, err
	}

	defs, err := decodeCatalog(value, l.parallelism)
	if err != nil {
		RecordLoad(source, statusError, time.Since(start).Seconds())
		return nil, err
	}

	l.cache.Set(key, defs)
	SetDefinitionCount(len(defs))
	RecordLoad(source, statusSuccess, time.Since(start).Seconds())
	l.logger.V(1).Info("catalog loaded", "source", source, "definitions", len(defs))
	return registry.NewStatic(defs...), nil
}
