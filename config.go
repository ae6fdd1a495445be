package glyph

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/samber/lo"
)

// EngineConfig is the file-based counterpart to the Option functions,
// for deployments that want template engine settings alongside the
// rest of an application's TOML configuration rather than wired up in
// Go code.
//
//	[engine]
//	dirs = ["templates"]
//	app_dirs = ["app1", "app2"]
//	autoescape = true
//	string_if_invalid = ""
//
//	[[loaders]]
//	kind = "filesystem"
//	dir = "templates"
//
//	[[loaders]]
//	kind = "locmem"
//	[loaders.entries]
//	"greeting.html" = "Hello, {{ name }}!"
type EngineConfig struct {
	Dirs            []string `toml:"dirs"`
	AppDirs         []string `toml:"app_dirs"`
	Autoescape      bool     `toml:"autoescape"`
	StringIfInvalid string   `toml:"string_if_invalid"`
	Loaders         []LoaderConfig
}

type LoaderConfig struct {
	Kind    string            `toml:"kind"`
	Dir     string            `toml:"dir"`
	Entries map[string]string `toml:"entries"`
}

// LoadEngineConfig reads path as TOML, following the optional-file
// convention used for the rest of the retrieval pack's site
// configuration loaders: a missing file is not an error, it just
// yields defaults (autoescape on, no loaders).
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{Autoescape: true}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading engine config %q: %w", path, err)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing engine config %q: %w", path, err)
	}

	engineTree, ok := tree.Get("engine").(*toml.Tree)
	if ok {
		if dirs, ok := engineTree.Get("dirs").([]interface{}); ok {
			for _, d := range dirs {
				if s, ok := d.(string); ok {
					cfg.Dirs = append(cfg.Dirs, s)
				}
			}
		}
		if appDirs, ok := engineTree.Get("app_dirs").([]interface{}); ok {
			for _, d := range appDirs {
				if s, ok := d.(string); ok {
					cfg.AppDirs = append(cfg.AppDirs, s)
				}
			}
		}
		if ae, ok := engineTree.Get("autoescape").(bool); ok {
			cfg.Autoescape = ae
		}
		if siv, ok := engineTree.Get("string_if_invalid").(string); ok {
			cfg.StringIfInvalid = siv
		}
	}

	if loaderTrees, ok := tree.Get("loaders").([]*toml.Tree); ok {
		for _, lt := range loaderTrees {
			lc := LoaderConfig{}
			if kind, ok := lt.Get("kind").(string); ok {
				lc.Kind = kind
			}
			if dir, ok := lt.Get("dir").(string); ok {
				lc.Dir = dir
			}
			if entries, ok := lt.Get("entries").(*toml.Tree); ok {
				lc.Entries = make(map[string]string)
				for _, k := range entries.Keys() {
					// GetPath, not Get: Get splits on "." and would
					// lose template names like "greeting.html".
					if s, ok := entries.GetPath([]string{k}).(string); ok {
						lc.Entries[k] = s
					}
				}
			}
			cfg.Loaders = append(cfg.Loaders, lc)
		}
	}

	return cfg, nil
}

// Build turns a parsed EngineConfig into Engine Options, resolving each
// LoaderConfig entry to a concrete Loader implementation.
func (cfg *EngineConfig) Build() []Option {
	opts := []Option{
		WithAutoescape(cfg.Autoescape),
		WithStringIfInvalid(cfg.StringIfInvalid),
	}

	// lo.Map keeps this a pure expression instead of a hand-rolled
	// accumulator loop; cfg.Dirs is typically short (one or two
	// configured roots) so the extra allocation doesn't matter.
	loaders := lo.Map(cfg.Dirs, func(d string, _ int) Loader {
		return &FilesystemLoader{Root: d}
	})
	if len(cfg.AppDirs) > 0 {
		loaders = append(loaders, &AppDirectoriesLoader{AppDirs: cfg.AppDirs})
	}
	for _, lc := range cfg.Loaders {
		switch lc.Kind {
		case "filesystem":
			loaders = append(loaders, &FilesystemLoader{Root: lc.Dir})
		case "app_directories":
			loaders = append(loaders, &AppDirectoriesLoader{AppDirs: []string{lc.Dir}})
		case "locmem":
			loaders = append(loaders, &LocMemLoader{Templates: lc.Entries})
		}
	}
	if len(loaders) > 0 {
		opts = append(opts, WithLoaders(loaders...))
	}

	return opts
}
