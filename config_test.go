package glyph

import (
	"os"
	"path/filepath"
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner, the same convention the
// rest of the retrieval pack uses for its suite-style tests.
func TestConfig(t *testing.T) { TestingT(t) }

type ConfigSuite struct{}

var _ = Suite(&ConfigSuite{})

func (s *ConfigSuite) TestMissingFileYieldsDefaults(c *C) {
	cfg, err := LoadEngineConfig(filepath.Join(c.MkDir(), "does-not-exist.toml"))
	c.Assert(err, IsNil)
	c.Assert(cfg.Autoescape, Equals, true)
	c.Assert(cfg.Dirs, HasLen, 0)
}

func (s *ConfigSuite) TestParsesEngineTable(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "engine.toml")
	body := `
[engine]
dirs = ["templates", "vendor/templates"]
autoescape = false
string_if_invalid = "N/A"
`
	c.Assert(os.WriteFile(path, []byte(body), 0o644), IsNil)

	cfg, err := LoadEngineConfig(path)
	c.Assert(err, IsNil)
	c.Assert(cfg.Autoescape, Equals, false)
	c.Assert(cfg.StringIfInvalid, Equals, "N/A")
	c.Assert(cfg.Dirs, DeepEquals, []string{"templates", "vendor/templates"})
}

func (s *ConfigSuite) TestParsesAppDirs(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "engine.toml")
	body := `
[engine]
app_dirs = ["app1", "app2"]
`
	c.Assert(os.WriteFile(path, []byte(body), 0o644), IsNil)

	cfg, err := LoadEngineConfig(path)
	c.Assert(err, IsNil)
	c.Assert(cfg.AppDirs, DeepEquals, []string{"app1", "app2"})
}

func (s *ConfigSuite) TestBuildWiresAppDirs(c *C) {
	app1 := c.MkDir()
	app2 := c.MkDir()
	c.Assert(os.MkdirAll(filepath.Join(app2, "templates"), 0o755), IsNil)
	c.Assert(os.WriteFile(filepath.Join(app2, "templates", "page.html"), []byte("from app2"), 0o644), IsNil)

	cfg := &EngineConfig{Autoescape: true, AppDirs: []string{app1, app2}}
	eng := NewEngine(cfg.Build()...)
	c.Assert(eng.loaders, HasLen, 1)

	tpl, err := eng.FromCache("page.html")
	c.Assert(err, IsNil)
	out, err := tpl.Execute(nil)
	c.Assert(err, IsNil)
	c.Assert(out, Equals, "from app2")
}

func (s *ConfigSuite) TestParsesLoaderTables(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "engine.toml")
	body := `
[[loaders]]
kind = "filesystem"
dir = "templates"

[[loaders]]
kind = "locmem"
[loaders.entries]
"greeting.html" = "Hello, {{ name }}!"
`
	c.Assert(os.WriteFile(path, []byte(body), 0o644), IsNil)

	cfg, err := LoadEngineConfig(path)
	c.Assert(err, IsNil)
	c.Assert(cfg.Loaders, HasLen, 2)
	c.Assert(cfg.Loaders[0].Kind, Equals, "filesystem")
	c.Assert(cfg.Loaders[0].Dir, Equals, "templates")
	c.Assert(cfg.Loaders[1].Kind, Equals, "locmem")
	c.Assert(cfg.Loaders[1].Entries["greeting.html"], Equals, "Hello, {{ name }}!")
}

func (s *ConfigSuite) TestBuildWiresLoadersAndOptions(c *C) {
	cfg := &EngineConfig{
		Dirs:            []string{"a", "b"},
		Autoescape:      false,
		StringIfInvalid: "X",
		Loaders: []LoaderConfig{
			{Kind: "locmem", Entries: map[string]string{"m.html": "M"}},
		},
	}

	eng := NewEngine(cfg.Build()...)
	c.Assert(eng.autoescape, Equals, false)
	c.Assert(eng.stringIfInvalid, Equals, "X")
	// two FilesystemLoaders (from Dirs) plus one LocMemLoader (from Loaders).
	c.Assert(eng.loaders, HasLen, 3)

	tpl, err := eng.FromCache("m.html")
	c.Assert(err, IsNil)
	out, err := tpl.Execute(nil)
	c.Assert(err, IsNil)
	c.Assert(out, Equals, "M")
}

func (s *ConfigSuite) TestBuildWithNoDirsOrLoadersOmitsWithLoaders(c *C) {
	cfg := &EngineConfig{Autoescape: true}
	eng := NewEngine(cfg.Build()...)
	c.Assert(eng.loaders, HasLen, 0)
}
