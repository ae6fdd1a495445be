// Package glyph implements a Django-syntax, Jinja-adjacent template engine
// for Go: lexer, parser, expression evaluator and an autoescape-aware
// renderer with span-annotated diagnostics.
package glyph

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// EOF is the rune the lexer returns once input is exhausted. -1 can
	// never appear in valid UTF-8, so it doubles as a sentinel.
	EOF rune = -1
)

// TokenType classifies a lexical token. The first group (Text, Variable,
// Tag, Comment) are chunk-level tokens produced by Lex; the rest are
// expression-level tokens produced by stateExprLoop on the contents of a
// Variable or Tag chunk.
type TokenType int

const (
	TokenError TokenType = iota

	// TokenText is raw output outside of any {{ }}, {% %} or {# #} delimiter.
	TokenText
	// TokenVariableBegin/TokenVariableEnd bracket a {{ ... }} chunk.
	TokenVariableBegin
	TokenVariableEnd
	// TokenTagBegin/TokenTagEnd bracket a {% ... %} chunk.
	TokenTagBegin
	TokenTagEnd

	// TokenComment brackets a {# ... #} chunk, delimiters included. The
	// parser discards it, but Lex still emits it so the token stream's
	// spans tile the source exactly (see Lex's doc comment).
	TokenComment

	TokenKeyword
	TokenIdentifier
	TokenString
	TokenNumber
	TokenSymbol
)

var (
	tokenSpaceChars                = " \n\r\t"
	tokenIdentifierChars           = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	tokenIdentifierCharsWithDigits = tokenIdentifierChars + "0123456789"
	tokenDigits                    = "0123456789"

	// TokenSymbols is ordered longest-first so greedy matching picks "=="
	// before "=".
	TokenSymbols = []string{
		"==", ">=", "<=", "!=", "<>",
		"(", ")", "+", "-", "*", "<", ">", "/", ",", ".", "!", "|", ":", "[", "]",
	}

	// TokenKeywords are reserved words of the if-expression sub-language
	// and cannot be used as filter or identifier names.
	TokenKeywords = []string{"and", "or", "not", "in", "is", "true", "True", "false", "False", "none", "None"}

	tokenKeywordsMap = func() map[string]struct{} {
		m := make(map[string]struct{}, len(TokenKeywords))
		for _, k := range TokenKeywords {
			m[k] = struct{}{}
		}
		return m
	}()

	stringEscapeReplacer = strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\'`, `'`,
		`\n`, "\n",
		`\t`, "\t",
		`\r`, "\r",
	)
)

// Token is a single lexical element, tagged with a byte-offset span into
// the originating source so that diagnostics can be rendered against the
// original text without re-scanning.
type Token struct {
	Filename string
	Typ      TokenType
	Val      string
	Start    int // byte offset, inclusive
	End      int // byte offset, exclusive
	Line     int // 1-based
	Col      int // 1-based, rune column on Line
}

func (t *Token) String() string {
	return t.Val
}

type lexerStateFn func() lexerStateFn

// lexer is a state-machine tokenizer, in two modes: chunk mode splits
// Text from {{ }}/{% %}/{# #} delimiters; expr mode tokenizes the inside
// of a single Variable or Tag chunk into identifiers/numbers/strings/
// symbols.
type lexer struct {
	name  string
	input string
	start int
	pos   int
	width int

	tokens []*Token

	errored  bool
	errorMsg string

	line      int
	col       int
	startline int
	startcol  int
}

func newLexer(name, input string) *lexer {
	return &lexer{
		name:      name,
		input:     input,
		tokens:    make([]*Token, 0, 64),
		line:      1,
		col:       1,
		startline: 1,
		startcol:  1,
	}
}

func (l *lexer) value() string { return l.input[l.start:l.pos] }

func (l *lexer) emit(t TokenType) {
	tok := &Token{
		Filename: l.name,
		Typ:      t,
		Val:      l.value(),
		Start:    l.start,
		End:      l.pos,
		Line:     l.startline,
		Col:      l.startcol,
	}
	if t == TokenString {
		tok.Val = stringEscapeReplacer.Replace(tok.Val)
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.pos
	l.startline = l.line
	l.startcol = l.col
}

func (l *lexer) ignore() {
	l.start = l.pos
	l.startline = l.line
	l.startcol = l.col
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return EOF
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
	if l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line--
	} else {
		l.col--
	}
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) accept(what string) bool {
	if strings.ContainsRune(what, l.next()) {
		return true
	}
	l.backup()
	return false
}

func (l *lexer) acceptRun(what string) {
	for strings.ContainsRune(what, l.next()) {
	}
	l.backup()
}

func (l *lexer) errorf(format string, args ...any) lexerStateFn {
	l.errorMsg = fmt.Sprintf(format, args...)
	l.errored = true
	return nil
}

// Lex splits a template source into a flat stream of chunk tokens
// (TokenText, TokenVariableBegin/End-bracketed runs, TokenTagBegin/
// End-bracketed runs, TokenComment) such that concatenating every
// token's source span reproduces the input exactly; the parser drops
// TokenComment on the floor, but Lex itself never discards a span.
func Lex(name, input string) ([]*Token, error) {
	l := newLexer(name, input)
	for state := l.stateText; state != nil; {
		state = state()
	}
	if l.errored {
		return nil, &Error{
			Filename: name,
			Line:     l.startline,
			Column:   l.startcol,
			Span:     Span{Start: l.start, End: l.pos},
			Sender:   "lexer",
			Message:  l.errorMsg,
			Source:   input,
		}
	}
	return l.tokens, nil
}

func (l *lexer) emitText() {
	if l.pos > l.start {
		l.emit(TokenText)
	}
}

func (l *lexer) stateText() lexerStateFn {
	for {
		if strings.HasPrefix(l.input[l.pos:], "{#") {
			l.emitText()
			return l.skipComment
		}
		if strings.HasPrefix(l.input[l.pos:], "{{") {
			l.emitText()
			return l.stateInsideVariable
		}
		if strings.HasPrefix(l.input[l.pos:], "{%") {
			l.emitText()
			return l.stateInsideTag
		}
		if l.next() == EOF {
			break
		}
	}
	l.emitText()
	return nil
}

// unterminated implements the lexer's leniency rule (spec §4.1): a
// variable/tag/comment that never finds its closing delimiter before EOF
// is not a lex error. Everything from the opening delimiter onward is
// rewound and re-emitted as a single TokenText, and lexing ends there.
// This is never reached for ordinary malformed-token errors (bad escape,
// stray character) inside an otherwise-closed construct; only a genuine
// run to EOF without the closer triggers it.
func (l *lexer) unterminated(mark, chunkStart int) lexerStateFn {
	l.tokens = l.tokens[:mark]
	l.errored = false
	l.errorMsg = ""
	l.pos = len(l.input)
	l.start = chunkStart
	l.emit(TokenText)
	return nil
}

func (l *lexer) skipComment() lexerStateFn {
	mark := len(l.tokens)
	chunkStart := l.start
	l.pos += 2
	l.col += 2
	for {
		if strings.HasPrefix(l.input[l.pos:], "#}") {
			l.pos += 2
			l.col += 2
			l.emit(TokenComment)
			return l.stateText
		}
		if l.next() == EOF {
			return l.unterminated(mark, chunkStart)
		}
	}
}

func (l *lexer) stateInsideVariable() lexerStateFn {
	mark := len(l.tokens)
	chunkStart := l.start
	l.pos += 2
	l.col += 2
	l.emit(TokenVariableBegin)
	return l.stateExprLoop(mark, chunkStart, "}}", TokenVariableEnd)
}

func (l *lexer) stateInsideTag() lexerStateFn {
	mark := len(l.tokens)
	chunkStart := l.start
	l.pos += 2
	l.col += 2
	l.emit(TokenTagBegin)
	return l.stateExprLoop(mark, chunkStart, "%}", TokenTagEnd)
}

// stateExprLoop tokenizes identifiers/numbers/strings/symbols until it
// finds the given closing delimiter, then emits endType and returns to
// stateText. Running off the end of input without finding the closer
// falls back to unterminated rather than a lex error.
func (l *lexer) stateExprLoop(mark, chunkStart int, closer string, endType TokenType) lexerStateFn {
	var loop lexerStateFn
	loop = func() lexerStateFn {
		for {
			switch {
			case l.accept(tokenSpaceChars):
				l.ignore()
				continue
			case l.accept(tokenIdentifierChars):
				l.stateIdentifier()
				if l.errored {
					return nil
				}
				return loop
			case l.accept(tokenDigits):
				l.stateNumber()
				if l.errored {
					return nil
				}
				return loop
			case l.accept(`"'`):
				if eof := l.stateString(); eof {
					return l.unterminated(mark, chunkStart)
				}
				if l.errored {
					return nil
				}
				return loop
			}

			if strings.HasPrefix(l.input[l.pos:], closer) {
				l.pos += len(closer)
				l.col += len(closer)
				l.emit(endType)
				return l.stateText
			}

			matched := false
			for _, sym := range TokenSymbols {
				if strings.HasPrefix(l.input[l.pos:], sym) {
					l.pos += len(sym)
					l.col += len(sym)
					l.emit(TokenSymbol)
					matched = true
					break
				}
			}
			if matched {
				continue
			}

			if l.peek() == EOF {
				return l.unterminated(mark, chunkStart)
			}
			return l.errorf("unexpected character %q", l.peek())
		}
	}
	return loop
}

func (l *lexer) stateIdentifier() {
	l.acceptRun(tokenIdentifierCharsWithDigits)
	val := l.value()
	if _, isKeyword := tokenKeywordsMap[val]; isKeyword {
		l.emit(TokenKeyword)
	} else {
		l.emit(TokenIdentifier)
	}
}

func (l *lexer) stateNumber() {
	l.acceptRun(tokenDigits)
	if l.accept(".") {
		if !l.accept(tokenDigits) {
			l.errorf("malformed number literal")
			return
		}
		l.acceptRun(tokenDigits)
	}
	l.emit(TokenNumber)
}

// stateString scans a quoted string token. It returns true if the string
// ran off the end of input without a closing quote, signaling to the
// caller that the whole enclosing construct is unterminated (and should
// fall back to Text) rather than a genuine lex error.
func (l *lexer) stateString() (eof bool) {
	quote := l.value()
	l.ignore()
	l.startcol--
	for !l.accept(quote) {
		switch l.next() {
		case '\\':
			switch l.peek() {
			case '"', '\'', '\\', 'n', 't', 'r':
				l.next()
			default:
				l.errorf("unknown escape sequence: \\%c", l.peek())
				return false
			}
		case EOF:
			return true
		case '\n':
			l.errorf("newline in string literal is not allowed")
			return false
		}
	}
	l.backup()
	l.emit(TokenString)
	l.next()
	l.ignore()
	return false
}
