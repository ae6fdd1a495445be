package glyph

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser walks a flat Token stream (as produced by Lex, or a tag's
// argument sub-stream) with a single cursor, in the same idx/tokens
// style the lexer's sibling state machine uses for the surrounding
// template text.
type Parser struct {
	name   string
	source string
	idx    int
	tokens []*Token
}

func newParser(name string, tokens []*Token, source string) *Parser {
	return &Parser{name: name, source: source, tokens: tokens}
}

func (p *Parser) current() *Token {
	return p.get(p.idx)
}

func (p *Parser) get(i int) *Token {
	if i >= 0 && i < len(p.tokens) {
		return p.tokens[i]
	}
	return nil
}

func (p *Parser) consume() { p.idx++ }

func (p *Parser) remaining() int {
	if p.idx >= len(p.tokens) {
		return 0
	}
	return len(p.tokens) - p.idx
}

func (p *Parser) peekType(typ TokenType) bool {
	t := p.current()
	return t != nil && t.Typ == typ
}

func (p *Parser) peekTypeAt(shift int, typ TokenType) *Token {
	t := p.get(p.idx + shift)
	if t != nil && t.Typ == typ {
		return t
	}
	return nil
}

// MatchType consumes and returns the current token if it has type typ.
func (p *Parser) MatchType(typ TokenType) *Token {
	t := p.current()
	if t != nil && t.Typ == typ {
		p.consume()
		return t
	}
	return nil
}

// Match consumes and returns the current token if it has type typ and
// value val.
func (p *Parser) Match(typ TokenType, val string) *Token {
	t := p.current()
	if t != nil && t.Typ == typ && t.Val == val {
		p.consume()
		return t
	}
	return nil
}

// MatchOne tries each value in turn, consuming and returning the first
// that matches.
func (p *Parser) MatchOne(typ TokenType, vals ...string) *Token {
	for _, v := range vals {
		if t := p.Match(typ, v); t != nil {
			return t
		}
	}
	return nil
}

// Peek reports whether the current token has type typ and value val,
// without consuming it.
func (p *Parser) Peek(typ TokenType, val string) *Token {
	t := p.current()
	if t != nil && t.Typ == typ && t.Val == val {
		return t
	}
	return nil
}

func (p *Parser) errorf(tok *Token, format string, args ...any) error {
	return p.errorAt(fmt.Sprintf(format, args...), tok)
}

func (p *Parser) errorAt(msg string, tok *Token) error {
	if tok == nil {
		tok = p.current()
	}
	e := &Error{Sender: "parser", Message: msg, Filename: p.name, Source: p.source}
	if tok != nil {
		e.Line = tok.Line
		e.Column = tok.Col
		e.Span = Span{Start: tok.Start, End: tok.End}
	}
	return e
}

// Parse consumes the entire token stream and returns the document's
// top-level node list.
func (p *Parser) Parse() (*nodeDocument, error) {
	doc := &nodeDocument{}
	for p.remaining() > 0 {
		node, err := p.parseDocElement()
		if err != nil {
			return nil, err
		}
		doc.nodes = append(doc.nodes, node)
	}
	return doc, nil
}

// parseDocElement parses exactly one of: a text run, a {# #} comment
// (discarded into a no-op node), a {{ }} variable output, or a {% %} tag.
func (p *Parser) parseDocElement() (INode, error) {
	t := p.current()
	if t == nil {
		return nil, p.errorf(nil, "unexpected EOF")
	}
	switch t.Typ {
	case TokenText:
		p.consume()
		return &nodeText{token: t}, nil
	case TokenComment:
		p.consume()
		return &nodeComment{}, nil
	case TokenVariableBegin:
		return p.parseVariableElement()
	case TokenTagBegin:
		return p.parseTagElement()
	default:
		return nil, p.errorAt(fmt.Sprintf("unexpected token %q", t.Val), t)
	}
}

func (p *Parser) parseVariableElement() (INode, error) {
	begin := p.current()
	p.consume() // {{

	expr, err := p.parseFilterExpression()
	if err != nil {
		return nil, err
	}

	if p.MatchType(TokenVariableEnd) == nil {
		return nil, p.errorf(nil, "malformed variable tag, expected '}}'")
	}

	return &nodeVariable{expr: expr, token: begin}, nil
}

func (p *Parser) parseTagElement() (INode, error) {
	p.consume() // {%

	nameTok := p.MatchType(TokenIdentifier)
	if nameTok == nil {
		return nil, p.errorf(nil, "tag name must be an identifier")
	}

	def, exists := tagRegistry[nameTok.Val]
	if !exists {
		return nil, p.errorAt(fmt.Sprintf("tag %q does not exist", nameTok.Val), nameTok)
	}

	argTokens, err := p.collectUntilTagEnd(nameTok)
	if err != nil {
		return nil, err
	}
	args := newParser(p.name, argTokens, p.source)

	return def.parser(p, nameTok, args)
}

// collectUntilTagEnd gathers every token up to (and consuming) the
// closing TokenTagEnd, for use as a tag's self-contained argument
// stream.
func (p *Parser) collectUntilTagEnd(opening *Token) ([]*Token, error) {
	var toks []*Token
	for {
		if p.remaining() == 0 {
			return nil, p.errorf(opening, "unexpected EOF, tag %q not closed", opening.Val)
		}
		if p.peekType(TokenTagEnd) {
			p.consume()
			return toks, nil
		}
		toks = append(toks, p.current())
		p.consume()
	}
}

// WrapUntilTag collects doc elements until it finds a {% %} tag whose
// name is one of names, consuming that tag's opening ("{%", name) and
// returning the wrapped nodes plus a fresh Parser over that closing
// tag's own argument tokens (e.g. the condition after "elif"). Running
// out of tokens first is the parser's UnclosedTag case (spec §4.3):
// the error names openingName and points at the opening tag's span.
func (p *Parser) WrapUntilTag(openingName string, opening *Token, names ...string) (*NodeWrapper, *Parser, error) {
	wrapper := &NodeWrapper{}

	for {
		if p.remaining() == 0 {
			msg := fmt.Sprintf("Unclosed '%s' tag. Looking for one of: %s", openingName, strings.Join(names, ", "))
			e := p.errorAt(msg, opening).(*Error)
			e.Labels = []Label{{Span: e.Span, Text: "started here"}}
			return nil, nil, e
		}

		if p.peekType(TokenTagBegin) {
			identTok := p.peekTypeAt(1, TokenIdentifier)
			if identTok != nil {
				for _, n := range names {
					if identTok.Val == n {
						p.consume() // {%
						p.consume() // name
						argTokens, err := p.collectUntilTagEnd(identTok)
						if err != nil {
							return nil, nil, err
						}
						wrapper.Endtag = n
						wrapper.EndtagToken = identTok
						return wrapper, newParser(p.name, argTokens, p.source), nil
					}
				}
			}
		}

		node, err := p.parseDocElement()
		if err != nil {
			return nil, nil, err
		}
		wrapper.nodes = append(wrapper.nodes, node)
	}
}

func (p *Parser) parseFilterExpression() (IEvaluator, error) {
	base, err := p.parseVariableOrLiteral()
	if err != nil {
		return nil, err
	}
	fe := &FilterExpression{base: base}
	for p.Match(TokenSymbol, "|") != nil {
		fc, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		fe.filters = append(fe.filters, fc)
	}
	return fe, nil
}

// parseFilterArg parses a filter's ":" argument: any single literal or
// variable reference (not a full filter-chained expression — matching
// the reference grammar, a filter argument is never itself piped).
func (p *Parser) parseFilterArg() (IEvaluator, error) {
	return p.parseVariableOrLiteral()
}

func (p *Parser) parseVariableOrLiteral() (IEvaluator, error) {
	t := p.current()
	if t == nil {
		return nil, p.errorf(nil, "unexpected EOF, expected a value")
	}

	switch {
	case t.Typ == TokenString:
		p.consume()
		return &Literal{val: Str(t.Val)}, nil
	case t.Typ == TokenNumber:
		p.consume()
		return &Literal{val: parseNumberLiteral(t.Val)}, nil
	case t.Typ == TokenSymbol && t.Val == "-":
		p.consume()
		numTok := p.MatchType(TokenNumber)
		if numTok == nil {
			return nil, p.errorAt("expected a number after unary '-'", p.current())
		}
		v := parseNumberLiteral(numTok.Val)
		if v.IsFloat() {
			v = Float(-v.Float())
		} else {
			v = Int(-v.Integer())
		}
		return &Literal{val: v}, nil
	case t.Typ == TokenKeyword && (t.Val == "true" || t.Val == "True"):
		p.consume()
		return &Literal{val: Bool(true)}, nil
	case t.Typ == TokenKeyword && (t.Val == "false" || t.Val == "False"):
		p.consume()
		return &Literal{val: Bool(false)}, nil
	case t.Typ == TokenKeyword && (t.Val == "none" || t.Val == "None"):
		p.consume()
		return &Literal{val: Null()}, nil
	case t.Typ == TokenIdentifier:
		return p.parseVarRef()
	default:
		return nil, p.errorAt(fmt.Sprintf("unexpected token %q, expected a value", t.Val), t)
	}
}

func (p *Parser) parseVarRef() (*VarRef, error) {
	nameTok := p.MatchType(TokenIdentifier)
	if nameTok == nil {
		return nil, p.errorAt("expected an identifier", p.current())
	}
	ref := &VarRef{segments: []string{nameTok.Val}, token: nameTok}
	for p.Match(TokenSymbol, ".") != nil {
		if seg := p.MatchType(TokenIdentifier); seg != nil {
			ref.segments = append(ref.segments, seg.Val)
			continue
		}
		if seg := p.MatchType(TokenNumber); seg != nil {
			ref.segments = append(ref.segments, seg.Val)
			continue
		}
		return nil, p.errorAt("expected an identifier or index after '.'", p.current())
	}
	return ref, nil
}

func parseNumberLiteral(s string) *Value {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Float(0)
		}
		return Float(f)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Int(0)
	}
	return Int(n)
}
