package glyph

import "io"

// INode is anything that can render itself into the output stream given
// the current execution context: plain text, a variable output, or a
// compiled tag.
type INode interface {
	Execute(ctx *ExecutionContext, w io.Writer) error
}

// IEvaluator is anything inside a {{ }} or an if-expression that
// produces a Value rather than writing output directly.
type IEvaluator interface {
	Evaluate(ctx *ExecutionContext) (*Value, error)
}

// nodeDocument is the root of a parsed template.
type nodeDocument struct {
	nodes []INode
}

func (doc *nodeDocument) Execute(ctx *ExecutionContext, w io.Writer) error {
	for _, n := range doc.nodes {
		if err := n.Execute(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// nodeText renders a raw TokenText chunk verbatim; text is never
// subject to autoescaping.
type nodeText struct {
	token *Token
}

func (n *nodeText) Execute(ctx *ExecutionContext, w io.Writer) error {
	_, err := io.WriteString(w, n.token.Val)
	return err
}

// nodeComment corresponds to a {# ... #} chunk; it renders nothing.
type nodeComment struct{}

func (n *nodeComment) Execute(ctx *ExecutionContext, w io.Writer) error {
	return nil
}

// NodeWrapper collects the child nodes of a block tag (everything
// between the opening tag and whichever closer WrapUntilTag stopped at).
type NodeWrapper struct {
	Endtag      string
	EndtagToken *Token
	nodes       []INode
}

func (wrapper *NodeWrapper) Execute(ctx *ExecutionContext, w io.Writer) error {
	for _, n := range wrapper.nodes {
		if err := n.Execute(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// nodeVariable is a {{ FilterExpression }} output node. It evaluates
// the expression, then HTML-escapes the stringified result unless
// autoescape is off for this scope or the value carries the safe bit.
type nodeVariable struct {
	expr  IEvaluator
	token *Token
}

func (n *nodeVariable) Execute(ctx *ExecutionContext, w io.Writer) error {
	val, err := n.expr.Evaluate(ctx)
	if err != nil {
		// Render-time evaluation failures are substituted silently with
		// the engine's configured string_if_invalid, never raised.
		_, werr := io.WriteString(w, ctx.template.engine.stringIfInvalid)
		return werr
	}
	out := val.String()
	if ctx.Autoescape && !val.IsSafe() {
		out = htmlEscape(out)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Literal wraps a compile-time constant (string, number, true/false,
// none) so it can appear anywhere an IEvaluator is expected.
type Literal struct {
	val *Value
}

func (l *Literal) Evaluate(ctx *ExecutionContext) (*Value, error) {
	return l.val, nil
}

// VarRef resolves a dotted lookup path ("user.profile.name") against
// the execution context's Public/Private scopes, then chains Value.Get
// across the remaining segments. A miss at any point never errors; it
// resolves to the engine's configured string_if_invalid rather than an
// empty string, per the spec's silent-lookup-miss rule.
type VarRef struct {
	segments []string
	token    *Token
}

func (r *VarRef) Evaluate(ctx *ExecutionContext) (*Value, error) {
	if len(r.segments) == 0 {
		return Null(), nil
	}
	v := ctx.resolve(r.segments[0])
	for _, seg := range r.segments[1:] {
		v = v.Get(seg)
	}
	if v.IsMissing() {
		return Str(ctx.template.engine.stringIfInvalid), nil
	}
	return v, nil
}

// FilterExpression is a VarRef/Literal base value followed by zero or
// more pipe-chained filter applications, e.g. "name|default:'x'|upper".
type FilterExpression struct {
	base    IEvaluator
	filters []*filterCall
}

func (fe *FilterExpression) Evaluate(ctx *ExecutionContext) (*Value, error) {
	val, err := fe.base.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	for _, fc := range fe.filters {
		val, err = fc.Execute(val, ctx)
		if err != nil {
			// Render-time filter errors are swallowed (spec §7: "filter arg
			// wrong type" is one of the named silent-substitution cases),
			// substituting string_if_invalid rather than failing the render.
			val = Str(ctx.template.engine.stringIfInvalid)
		}
	}
	return val, nil
}
