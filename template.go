package glyph

import "strings"

// Template is a single parsed template: its source, the token stream it
// lexed to, and the document tree the parser built from that stream.
type Template struct {
	name   string
	source string
	engine *Engine
	root   *nodeDocument
}

func newTemplate(engine *Engine, name, source string) (*Template, error) {
	tpl := &Template{name: name, source: source, engine: engine}

	tokens, err := Lex(name, source)
	if err != nil {
		return nil, err
	}

	p := newParser(name, tokens, source)
	root, err := p.Parse()
	if err != nil {
		return nil, err
	}
	tpl.root = root

	if engine.logger != nil {
		engine.logf("compiled template", "name", name, "trace", traceID())
	}

	return tpl, nil
}

// Execute renders the template against ctx and returns the result.
// Lookup misses and filter failures are never fatal — they render as
// the engine's string_if_invalid instead — and an {% if %} condition
// that fails to evaluate (an ordering comparison between incomparable
// kinds, for example) counts as false rather than aborting the render.
func (tpl *Template) Execute(ctx Context) (string, error) {
	execCtx := newExecutionContext(tpl, ctx)

	var b strings.Builder
	if err := tpl.root.Execute(execCtx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
