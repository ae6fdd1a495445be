package glyph

// Version is the module version string, exposed to templates under the
// "glyph" metadata namespace (e.g. {{ glyph.version }}).
const Version = "v1"

// Must panics if err is non-nil, otherwise returns tpl. For use at
// package-init time with template literals you know are well-formed:
//
//	var base = glyph.Must(engine.FromString(baseSrc))
func Must(tpl *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return tpl
}
