package glyph

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

func init() {
	registerFilter("safe", filterSafe)
	registerFilter("escape", filterEscape)
	registerFilter("addslashes", filterAddslashes)
	registerFilter("center", filterCenter)
	registerFilter("slugify", filterSlugify)
	registerFilter("yesno", filterYesno)
	registerFilter("striptags", filterStriptags)
	registerFilter("default", filterDefault)
}

// filterSafe marks a value's string form as pre-escaped, so the
// renderer's autoescape pass leaves it untouched — the only filter
// whose entire job is flipping the safe bit.
func filterSafe(in *Value, _ *Value) (*Value, error) {
	return SafeStr(in.String()), nil
}

// filterEscape force-escapes now and marks the result safe, so a value
// already run through |escape is never escaped twice by the renderer.
func filterEscape(in *Value, _ *Value) (*Value, error) {
	return SafeStr(htmlEscape(in.String())), nil
}

// filterAddslashes escapes backslashes and quote characters the way a
// value would need escaping to be embedded in a single- or
// double-quoted string literal.
func filterAddslashes(in *Value, _ *Value) (*Value, error) {
	s := in.String()
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '\'', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	out := Str(b.String())
	if in.IsSafe() {
		out = out.MarkSafe()
	}
	return out, nil
}

// filterCenter pads the input to the given width with spaces, placing
// the input in the middle. When the padding is odd, the extra space
// goes on the left — the reference implementation's left-biased
// rounding, not the right-biased phrasing a first read of the spec
// might suggest (see DESIGN.md).
func filterCenter(in *Value, arg *Value) (*Value, error) {
	s := in.String()
	width := int(arg.Integer())
	if width <= len(s) {
		return Str(s), nil
	}
	total := width - len(s)
	left := total/2 + total%2
	right := total - left
	return Str(strings.Repeat(" ", left) + s + strings.Repeat(" ", right)), nil
}

// filterSlugify implements Django's slugify: Unicode NFKD-normalize,
// drop non-ASCII (accents fold away, everything else is dropped),
// lowercase, drop any character outside word-chars/whitespace/hyphen
// (punctuation like "," or "&" vanishes rather than becoming a
// separator), collapse any run of whitespace-or-hyphen into a single
// '-', and trim '-'/'_' from both ends. The result is marked safe: a
// slug can never contain characters that need HTML escaping.
func filterSlugify(in *Value, _ *Value) (*Value, error) {
	decomposed := norm.NFKD.String(slugifySource(in))

	ascii := make([]byte, 0, len(decomposed))
	for _, r := range decomposed {
		if r < 128 {
			ascii = append(ascii, byte(r))
		}
	}

	lower := strings.ToLower(string(ascii))

	var kept strings.Builder
	kept.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		isWord := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
		isSpaceOrHyphen := c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' || c == '-'
		if isWord || isSpaceOrHyphen {
			kept.WriteByte(c)
		}
	}

	var b strings.Builder
	s := kept.String()
	b.Grow(len(s))
	inRun := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' || c == '-' {
			if !inRun {
				b.WriteByte('-')
				inRun = true
			}
			continue
		}
		b.WriteByte(c)
		inRun = false
	}

	return SafeStr(strings.Trim(b.String(), "-_")), nil
}

// slugifySource stringifies a slugify input using the reference's
// slugify-specific rules (spec §4.6), which differ from the general
// stringification `Value.String()` performs elsewhere: a Sequence
// joins its elements with "-" and a Mapping flattens to "key-value"
// pairs in insertion order, rather than the bracketed/quoted debug
// form ordinary rendering uses.
func slugifySource(v *Value) string {
	switch v.Kind() {
	case KindSequence:
		var parts []string
		v.Iterate(func(_, val *Value) bool {
			parts = append(parts, slugifySource(val))
			return true
		}, func() {})
		return strings.Join(parts, "-")
	case KindMapping:
		var parts []string
		v.Iterate(func(key, val *Value) bool {
			parts = append(parts, key.String()+"-"+slugifySource(val))
			return true
		}, func() {})
		return strings.Join(parts, "-")
	default:
		return v.String()
	}
}

// filterYesno maps a truth value to one of a 2- or 3-part
// comma-separated mapping string ("yes,no,maybe" by default): true,
// false, and (only with the 3-part form) Null each get their own word.
func filterYesno(in *Value, arg *Value) (*Value, error) {
	mapping := "yes,no,maybe"
	if arg.IsString() && arg.String() != "" {
		mapping = arg.String()
	}
	parts := strings.SplitN(mapping, ",", 3)
	yes, no := parts[0], parts[0]
	if len(parts) > 1 {
		no = parts[1]
	}
	maybe := no
	if len(parts) > 2 {
		maybe = parts[2]
	}

	switch {
	case in.IsNull():
		return Str(maybe), nil
	case in.IsTrue():
		return Str(yes), nil
	default:
		return Str(no), nil
	}
}

// filterStriptags sanitizes HTML down to its text content using
// bluemonday's strict policy, for trusted-but-noisy input that should
// never carry markup through to output.
var stripTagsPolicy = bluemonday.StrictPolicy()

func filterStriptags(in *Value, _ *Value) (*Value, error) {
	return Str(stripTagsPolicy.Sanitize(in.String())), nil
}

// filterDefault substitutes arg when in is falsey (Null, "", 0, empty
// sequence/mapping) — the fallback most templates reach for before
// rendering anything, and a natural companion to the silent-miss
// lookup semantics elsewhere in the engine.
func filterDefault(in *Value, arg *Value) (*Value, error) {
	if in.IsTrue() {
		return in, nil
	}
	return arg, nil
}
