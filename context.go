package glyph

import (
	"maps"
)

// Context provides the variables a template is rendered with.
//
//	tpl.Execute(&glyph.Context{"user": user})
type Context map[string]any

// Update merges other into c in place and returns c.
func (c Context) Update(other Context) Context {
	maps.Copy(c, other)
	return c
}

// ExecutionContext holds the runtime state threaded through Execute/
// Evaluate calls: the template being rendered, the current autoescape
// setting (toggled by {% autoescape %}), and the three variable scopes
// a lookup walks in order.
type ExecutionContext struct {
	template *Template

	// Autoescape controls whether nodeVariable HTML-escapes its output.
	// Its zero-value scoping (save/restore around {% autoescape %})
	// mirrors a dynamically-scoped variable.
	Autoescape bool

	// Public is the caller-supplied Context, read-only by convention.
	Public Context

	// Private holds engine-managed values invisible to the caller
	// (currently just the "glyph" metadata namespace).
	Private Context

	// Shared is carried, unmodified, across an entire render; reserved
	// for future cross-node communication.
	Shared Context
}

var metaContext = Context{"version": Version}

func newExecutionContext(tpl *Template, pub Context) *ExecutionContext {
	if pub == nil {
		pub = Context{}
	}
	priv := Context{"glyph": metaContext}
	return &ExecutionContext{
		template:   tpl,
		Public:     pub,
		Private:    priv,
		Autoescape: tpl.engine.autoescape,
	}
}

// resolve looks a bare identifier up across Private, Public, then the
// engine's registered globals, in that order, falling back to
// MissingValue (a Null flagged as a failed lookup).
func (ctx *ExecutionContext) resolve(name string) *Value {
	if v, ok := ctx.Private[name]; ok {
		return AsValue(v)
	}
	if v, ok := ctx.Public[name]; ok {
		return AsValue(v)
	}
	if v, ok := ctx.template.engine.globals[name]; ok {
		return AsValue(v)
	}
	return MissingValue()
}

func (ctx *ExecutionContext) Error(msg string, token *Token) *Error {
	e := &Error{
		Sender:  "execution",
		Message: msg,
		Source:  ctx.template.source,
	}
	if token != nil {
		e.Filename = token.Filename
		e.Line = token.Line
		e.Column = token.Col
		e.Span = Span{Start: token.Start, End: token.End}
	}
	return e
}
