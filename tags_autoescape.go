package glyph

import "io"

// tagAutoescapeNode implements {% autoescape on|off %} ... {% endautoescape %}:
// it saves ctx.Autoescape, overrides it for the wrapped block, then
// restores it — the same save/toggle/restore shape a dynamically scoped
// flag needs regardless of language.
type tagAutoescapeNode struct {
	wrapper    *NodeWrapper
	autoescape bool
}

func (n *tagAutoescapeNode) Execute(ctx *ExecutionContext, w io.Writer) error {
	old := ctx.Autoescape
	ctx.Autoescape = n.autoescape
	err := n.wrapper.Execute(ctx, w)
	ctx.Autoescape = old
	return err
}

// endOfTag builds a zero-width span immediately after tok, for errors
// that point "at the end of the opening tag" rather than at any
// particular token within it (spec §4.4's missing-argument case).
func endOfTag(tok *Token) Span {
	return Span{Start: tok.End, End: tok.End}
}

func tagAutoescapeParser(doc *Parser, start *Token, args *Parser) (INode, error) {
	node := &tagAutoescapeNode{}

	if args.remaining() == 0 {
		return nil, &Error{
			Filename: args.name, Source: args.source, Sender: "parser",
			Line: start.Line, Column: start.Col, Span: endOfTag(start),
			Message: "'autoescape' tag missing an 'on' or 'off' argument.",
		}
	}

	modeTok := args.MatchType(TokenIdentifier)
	if modeTok == nil {
		return nil, args.errorAt("'autoescape' argument should be 'on' or 'off'.", args.current())
	}
	switch modeTok.Val {
	case "on":
		node.autoescape = true
	case "off":
		node.autoescape = false
	default:
		return nil, args.errorAt("'autoescape' argument should be 'on' or 'off'.", modeTok)
	}

	if args.remaining() > 0 {
		surplusStart := args.current()
		surplusEnd := args.tokens[len(args.tokens)-1]
		return nil, &Error{
			Filename: args.name, Source: args.source, Sender: "parser",
			Line: surplusStart.Line, Column: surplusStart.Col,
			Span:    Span{Start: surplusStart.Start, End: surplusEnd.End},
			Message: "'autoescape' tag requires exactly one argument.",
		}
	}

	wrapper, _, err := doc.WrapUntilTag("autoescape", start, "endautoescape")
	if err != nil {
		return nil, err
	}
	node.wrapper = wrapper

	return node, nil
}

func init() {
	RegisterTag("autoescape", tagAutoescapeParser)
}
