package glyph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Loader resolves a template name to its source text. GetSource returns
// the origin (a human-readable location, e.g. an absolute path) along
// with the source, for use in error messages and cache keys.
type Loader interface {
	GetSource(name string) (source string, origin string, err error)
}

// rejectDotDot refuses any path segment of "..", the same boundary a
// filesystem loader needs regardless of OS path semantics, so a
// template name can never escape its configured root.
func rejectDotDot(name string) error {
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return fmt.Errorf("template name %q may not contain '..' segments", name)
		}
	}
	return nil
}

// FilesystemLoader loads templates from a single directory root.
type FilesystemLoader struct {
	Root string
}

func (l *FilesystemLoader) GetSource(name string) (string, string, error) {
	if err := rejectDotDot(name); err != nil {
		return "", "", err
	}
	full := filepath.Join(l.Root, filepath.FromSlash(name))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", full, err
	}
	return string(data), full, nil
}

// AppDirectoriesLoader searches a "templates" subdirectory under each
// of a list of application roots, in order, mirroring Django's
// app_directories loader.
type AppDirectoriesLoader struct {
	AppDirs []string
}

func (l *AppDirectoriesLoader) GetSource(name string) (string, string, error) {
	if err := rejectDotDot(name); err != nil {
		return "", "", err
	}
	var combined error
	for _, dir := range l.AppDirs {
		full := filepath.Join(dir, "templates", filepath.FromSlash(name))
		data, err := os.ReadFile(full)
		if err == nil {
			return string(data), full, nil
		}
		combined = multierror.Append(combined, fmt.Errorf("%s: %w", full, err))
	}
	if combined == nil {
		return "", "", fmt.Errorf("no app directories configured")
	}
	return "", "", combined
}

// LocMemLoader serves templates straight out of an in-memory map,
// useful for tests and for embedding small templates without a
// filesystem round trip.
type LocMemLoader struct {
	Templates map[string]string
}

func (l *LocMemLoader) GetSource(name string) (string, string, error) {
	src, ok := l.Templates[name]
	if !ok {
		return "", "", fmt.Errorf("template %q not found in locmem loader", name)
	}
	return src, "locmem:" + name, nil
}

// CachedLoader wraps an ordered list of inner loaders, memoizing every
// successful lookup's source and origin so repeated loads of the same
// template skip re-reading it. Misses are not cached, and parsing is
// left to the caller.
type CachedLoader struct {
	Inner []Loader

	mu    sync.Mutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	source, origin string
}

func NewCachedLoader(inner ...Loader) *CachedLoader {
	return &CachedLoader{Inner: inner, cache: make(map[string]cachedEntry)}
}

func (l *CachedLoader) GetSource(name string) (string, string, error) {
	l.mu.Lock()
	if entry, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return entry.source, entry.origin, nil
	}
	l.mu.Unlock()

	src, origin, err := l.loadFromInner(name)
	if err != nil {
		return "", "", err
	}

	l.mu.Lock()
	l.cache[name] = cachedEntry{source: src, origin: origin}
	l.mu.Unlock()

	return src, origin, nil
}

func (l *CachedLoader) loadFromInner(name string) (string, string, error) {
	var tried error
	for _, loader := range l.Inner {
		src, origin, err := loader.GetSource(name)
		if err == nil {
			return src, origin, nil
		}
		tried = multierror.Append(tried, err)
	}
	if tried == nil {
		tried = fmt.Errorf("no loaders configured")
	}
	return "", "", &TemplateDoesNotExist{Name: name, Tried: tried}
}

// TemplateDoesNotExist aggregates every loader's miss for a single
// lookup, so the caller can see exactly which locations were tried
// rather than only the first or last failure.
type TemplateDoesNotExist struct {
	Name  string
	Tried error
}

func (e *TemplateDoesNotExist) Error() string {
	return fmt.Sprintf("template %q does not exist (tried: %v)", e.Name, e.Tried)
}

func (e *TemplateDoesNotExist) Unwrap() error { return e.Tried }
