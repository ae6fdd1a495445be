package glyph

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestErrorMessageIncludesLocation(t *testing.T) {
	e := &Error{Sender: "parser", Filename: "tpl.html", Line: 3, Column: 5, Message: "boom"}
	got := e.Error()
	for _, want := range []string{"parser", "tpl.html", "Line 3", "Col 5", "boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestDiagnosticRendersSourceLineAndMarker(t *testing.T) {
	src := "{% autoescape %}"
	e := &Error{
		Message: "'autoescape' tag missing an 'on' or 'off' argument",
		Source:  src,
		Span:    Span{Start: 3, End: 13},
	}
	out := e.Diagnostic()

	for _, want := range []string{
		"× 'autoescape' tag missing an 'on' or 'off' argument",
		"╭────",
		src,
		"╰── here",
		"╰────",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Diagnostic() missing %q, got:\n%s", want, out)
		}
	}
}

func TestDiagnosticUsesCustomLabels(t *testing.T) {
	src := "{% if x %}{% endif %}"
	e := &Error{
		Message: "mismatched condition",
		Source:  src,
		Labels:  []Label{{Span: Span{Start: 6, End: 7}, Text: "this variable"}},
	}
	out := e.Diagnostic()
	if !strings.Contains(out, "this variable") {
		t.Errorf("Diagnostic() should render the custom label text, got:\n%s", out)
	}
}

func TestDiagnosticMultilineSourcePicksCorrectLine(t *testing.T) {
	src := "line one\nline two {% bad %}\nline three"
	// offset of "{% bad %}" is inside "line two ..." (the second line).
	start := strings.Index(src, "{% bad")
	e := &Error{
		Message: "tag %q does not exist",
		Source:  src,
		Span:    Span{Start: start, End: start + 2},
	}
	out := e.Diagnostic()
	if !strings.Contains(out, "line two {% bad %}") {
		t.Errorf("Diagnostic() should show the offending line, got:\n%s", out)
	}
	if strings.Contains(out, "line one") || strings.Contains(out, "line three") {
		t.Errorf("Diagnostic() should only render the offending line, got:\n%s", out)
	}
}

func TestDiagnosticColumnCountsByUnicodeScalar(t *testing.T) {
	// "é" is 2 bytes but 1 rune; the caret under "X" must align by rune
	// count, not byte offset, or it lands one column too far right.
	src := "héllo X"
	start := strings.Index(src, "X") // byte offset 7
	e := &Error{Message: "bad", Source: src, Span: Span{Start: start, End: start + 1}}
	out := e.Diagnostic()

	lines := strings.Split(out, "\n")
	var rulerLine string
	for i, l := range lines {
		if strings.Contains(l, src) {
			rulerLine = lines[i+1]
			break
		}
	}
	if rulerLine == "" {
		t.Fatalf("could not find ruler line in:\n%s", out)
	}
	// The ruler is "<pad>· <spaces>▲"; after the one-rune pad, the bullet
	// and its trailing space (matching "1│ " on the source line), the
	// caret should sit after exactly 6 runes of padding ("héllo " is 6
	// runes, regardless of é's 2-byte UTF-8 encoding).
	byteIdx := strings.IndexRune(rulerLine, '▲')
	runesBefore := utf8.RuneCountInString(rulerLine[:byteIdx])
	if want := 3 + 6; runesBefore != want {
		t.Errorf("caret preceded by %d runes, want %d (pad+bullet+space+rune-counted column), ruler: %q", runesBefore, want, rulerLine)
	}
}

func TestLexErrorCarriesDiagnosticSource(t *testing.T) {
	// An unterminated tag falls back to Text (spec §4.1 leniency, see
	// lexer_test.go); a genuine lex error is something like a stray
	// character the expression tokenizer can't classify at all.
	_, err := Lex("t", "{% if a $ b %}")
	if err == nil {
		t.Fatal("expected an error")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("error is %T, want *Error", err)
	}
	if e.Source == "" {
		t.Error("lexer errors should carry the original source for Diagnostic rendering")
	}
	// Diagnostic should not panic even on a single-line input.
	_ = e.Diagnostic()
}
