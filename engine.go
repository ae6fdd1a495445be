package glyph

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Engine is the compilation/render entry point: it owns the configured
// loaders, the default autoescape policy, the globals every template
// sees, and a cache of already-parsed templates keyed by name.
type Engine struct {
	loaders         []Loader
	autoescape      bool
	stringIfInvalid string
	globals         Context
	logger          *slog.Logger

	mu    sync.Mutex
	cache map[string]*Template
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLoaders sets the ordered list of loaders FromCache consults.
func WithLoaders(loaders ...Loader) Option {
	return func(e *Engine) { e.loaders = loaders }
}

// WithDirs is shorthand for WithLoaders(one FilesystemLoader per dir),
// mirroring the "dirs" engine configuration key.
func WithDirs(dirs ...string) Option {
	loaders := make([]Loader, len(dirs))
	for i, d := range dirs {
		loaders[i] = &FilesystemLoader{Root: d}
	}
	return WithLoaders(loaders...)
}

// WithAppDirs is shorthand for WithLoaders(a single AppDirectoriesLoader
// searching "templates" under each given root), mirroring the
// "app_dirs" engine configuration key.
func WithAppDirs(appDirs ...string) Option {
	return WithLoaders(&AppDirectoriesLoader{AppDirs: appDirs})
}

// WithAutoescape sets the default autoescape policy new templates
// render with, absent an {% autoescape %} override.
func WithAutoescape(on bool) Option {
	return func(e *Engine) { e.autoescape = on }
}

// WithStringIfInvalid sets the text substituted for a variable whose
// lookup or filter chain fails at render time. Defaults to "".
func WithStringIfInvalid(s string) Option {
	return func(e *Engine) { e.stringIfInvalid = s }
}

// WithGlobal registers a value visible to every template rendered by
// this engine, under the given bare identifier.
func WithGlobal(name string, value any) Option {
	return func(e *Engine) { e.globals[name] = value }
}

// WithDebugLogging turns on structured compile/render tracing.
func WithDebugLogging() Option {
	return func(e *Engine) { e.logger = newDebugLogger() }
}

// NewEngine builds an Engine with sane defaults (autoescape on, no
// loaders, empty globals) then applies opts in order.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		autoescape: true,
		globals:    make(Context),
		cache:      make(map[string]*Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromString parses src as an anonymous (uncached, unnamed) template.
func (e *Engine) FromString(src string) (*Template, error) {
	return newTemplate(e, "<string>", src)
}

// FromBytes is a convenience wrapper around FromString.
func (e *Engine) FromBytes(src []byte) (*Template, error) {
	return e.FromString(string(src))
}

// FromCache resolves name via the configured loaders (first match
// wins), parses it, and memoizes the result so subsequent calls for the
// same name skip both the loader round trip and the parse.
func (e *Engine) FromCache(name string) (*Template, error) {
	e.mu.Lock()
	if tpl, ok := e.cache[name]; ok {
		e.mu.Unlock()
		return tpl, nil
	}
	e.mu.Unlock()

	src, _, err := e.loadSource(name)
	if err != nil {
		return nil, err
	}

	tpl, err := newTemplate(e, name, src)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[name] = tpl
	e.mu.Unlock()

	return tpl, nil
}

func (e *Engine) loadSource(name string) (source, origin string, err error) {
	var tried error
	for _, loader := range e.loaders {
		src, origin, lerr := loader.GetSource(name)
		if lerr == nil {
			return src, origin, nil
		}
		tried = multierror.Append(tried, lerr)
	}
	if tried == nil {
		return "", "", fmt.Errorf("template %q: no loaders configured", name)
	}
	return "", "", &TemplateDoesNotExist{Name: name, Tried: tried}
}
