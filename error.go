package glyph

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Span is a byte-offset range into a Source, used to anchor a diagnostic
// label. Start == End denotes a zero-width (insertion point) span.
type Span struct {
	Start int
	End   int
}

// Label attaches a short message to a Span inside a diagnostic.
type Label struct {
	Span Span
	Text string // e.g. "here", "started here", "after this"
}

// Error is returned by Lex, Parse and Render for any failure that can be
// anchored to a location in the template source. Error renders as a
// single-line summary; Diagnostic renders the full boxed report.
type Error struct {
	Filename string
	Line     int
	Column   int
	Span     Span
	Labels   []Label
	Sender   string
	Message  string
	Source   string // original template text, for Diagnostic rendering
}

func (e *Error) Error() string {
	s := "[Error"
	if e.Sender != "" {
		s += " (where: " + e.Sender + ")"
	}
	if e.Filename != "" {
		s += " in " + e.Filename
	}
	if e.Line > 0 {
		s += fmt.Sprintf(" | Line %d Col %d", e.Line, e.Column)
	}
	s += "] " + e.Message
	return s
}

func (e *Error) labels() []Label {
	if len(e.Labels) > 0 {
		return e.Labels
	}
	return []Label{{Span: e.Span, Text: "here"}}
}

// Diagnostic renders a miette/ariadne-style boxed report: the offending
// message, the filename, the affected source line(s), and one ruler per
// label pointing at its span.
//
//	× <message>
//	 ╭────
//	1│ {% autoescape %}
//	 ·              ▲
//	 ╰── here
//	 ╰────
func (e *Error) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "× %s\n", e.Message)
	fmt.Fprintf(&b, " ╭────\n")

	lineStart, lineNo := lineStartAndNumber(e.Source, e.labels()[0].Span.Start)
	lineEnd := strings.IndexByte(e.Source[lineStart:], '\n')
	var lineText string
	if lineEnd < 0 {
		lineText = e.Source[lineStart:]
	} else {
		lineText = e.Source[lineStart : lineStart+lineEnd]
	}

	gutter := strconv.Itoa(lineNo)
	fmt.Fprintf(&b, "%s│ %s\n", gutter, lineText)

	pad := strings.Repeat(" ", len(gutter))
	for _, lbl := range e.labels() {
		// Column counting and ruler width are by Unicode scalar (spec
		// §4.8), not byte offset, so multi-byte runes before or inside
		// the span don't throw off the caret's horizontal alignment.
		col := utf8.RuneCountInString(e.Source[lineStart:lbl.Span.Start])
		width := utf8.RuneCountInString(e.Source[lbl.Span.Start:lbl.Span.End])
		ruler := strings.Repeat(" ", col)
		if width <= 1 {
			ruler += "▲"
		} else {
			mid := width / 2
			ruler += strings.Repeat("─", mid) + "┬" + strings.Repeat("─", width-mid-1)
		}
		// "· " mirrors the "│ " before the source line so the ruler's
		// columns line up with the source text above it.
		fmt.Fprintf(&b, "%s· %s\n", pad, ruler)
		fmt.Fprintf(&b, "%s╰── %s\n", pad, lbl.Text)
	}
	fmt.Fprintf(&b, " ╰────")
	return b.String()
}

func lineStartAndNumber(src string, offset int) (start, line int) {
	line = 1
	start = 0
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			start = i + 1
		}
	}
	return start, line
}
