package glyph

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"
)

// htmlCapable is the capability a host value can implement to declare
// itself pre-sanitized HTML rather than plain text, e.g. a CMS's rich-text
// field type. AsValue still runs it through bluemonday's UGC policy
// before trusting it — the capability says "this is meant to be markup",
// not "skip sanitizing it" — and marks the result safe so the renderer
// doesn't escape it a second time.
type htmlCapable interface {
	HTML() string
}

var htmlCapabilityPolicy = bluemonday.UGCPolicy()

// Kind is the tag of the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindSequence
	KindMapping
	KindOther
)

// Value is the dynamically-typed runtime value every expression
// evaluates to. Str carries a "safe" taint bit: once true, the renderer
// will not HTML-escape the string again. The bit is monotone in the
// sense that only mark-safe (the |safe filter, or escaping itself)
// flips it; ordinary filters default to preserving whatever safety the
// input already had.
type Value struct {
	kind Kind

	b float64 // reused: 0/1 for bool, the float itself for KindFloat
	i int64
	s string

	safe bool

	// missing marks a Null produced by a failed lookup (resolve miss,
	// Get miss) rather than an explicit None in the data — the two
	// render identically by default but diverge once string_if_invalid
	// is configured to something other than "" (spec §4.6/§6).
	missing bool

	seq []*Value
	// mapping preserves insertion order via keys, for deterministic
	// iteration ({% for %} is out of scope, but |slugify and rendering
	// still need it).
	keys []string
	vals map[string]*Value

	other any
}

func Null() *Value { return &Value{kind: KindNull} }

// MissingValue is the Null a failed lookup resolves to, distinguishing
// it from an explicit None in the data so the renderer can substitute
// string_if_invalid instead of an empty string where configured.
func MissingValue() *Value { return &Value{kind: KindNull, missing: true} }

// IsMissing reports whether this Null came from a failed lookup rather
// than an explicit None value in the context.
func (v *Value) IsMissing() bool { return v.kind == KindNull && v.missing }
func Bool(b bool) *Value {
	v := &Value{kind: KindBool}
	if b {
		v.b = 1
	}
	return v
}
func Int(i int64) *Value     { return &Value{kind: KindInt, i: i} }
func Float(f float64) *Value { return &Value{kind: KindFloat, b: f} }
func Str(s string) *Value    { return &Value{kind: KindStr, s: s} }
func SafeStr(s string) *Value {
	return &Value{kind: KindStr, s: s, safe: true}
}

func Sequence(items ...*Value) *Value {
	return &Value{kind: KindSequence, seq: items}
}

func Mapping() *Value {
	return &Value{kind: KindMapping, vals: make(map[string]*Value)}
}

func (v *Value) Set(key string, val *Value) {
	if v.kind != KindMapping {
		return
	}
	if _, exists := v.vals[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.vals[key] = val
}

// AsValue converts an arbitrary host value (from a Context) into a
// Value, handling the common Go primitive kinds directly and falling
// back to KindOther (reflection-backed) for everything else, mirroring
// the host-value bridging a template engine's variable resolver needs.
func AsValue(i any) *Value {
	switch x := i.(type) {
	case nil:
		return Null()
	case *Value:
		return x
	case htmlCapable:
		return SafeStr(htmlCapabilityPolicy.Sanitize(x.HTML()))
	case bool:
		return Bool(x)
	case string:
		return Str(x)
	case int:
		return Int(int64(x))
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := cast.ToInt64E(x)
		return Int(n)
	case float32, float64:
		f, _ := cast.ToFloat64E(x)
		return Float(f)
	}

	rv := reflect.ValueOf(i)
	if !rv.IsValid() {
		return Null()
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null()
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]*Value, rv.Len())
		for idx := range items {
			items[idx] = AsValue(rv.Index(idx).Interface())
		}
		return &Value{kind: KindSequence, seq: items}
	case reflect.Map:
		m := Mapping()
		keys := rv.MapKeys()
		sort.Slice(keys, func(a, b int) bool {
			return fmt.Sprint(keys[a].Interface()) < fmt.Sprint(keys[b].Interface())
		})
		for _, k := range keys {
			m.Set(fmt.Sprint(k.Interface()), AsValue(rv.MapIndex(k).Interface()))
		}
		return m
	default:
		return &Value{kind: KindOther, other: i}
	}
}

func (v *Value) Kind() Kind    { return v.kind }
func (v *Value) IsNull() bool  { return v.kind == KindNull }
func (v *Value) IsBool() bool  { return v.kind == KindBool }
func (v *Value) IsInt() bool   { return v.kind == KindInt }
func (v *Value) IsFloat() bool { return v.kind == KindFloat }
func (v *Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}
func (v *Value) IsString() bool   { return v.kind == KindStr }
func (v *Value) IsSequence() bool { return v.kind == KindSequence }
func (v *Value) IsMapping() bool  { return v.kind == KindMapping }

func (v *Value) IsSafe() bool { return v.kind == KindStr && v.safe }

// MarkSafe returns a copy of v with the safe bit set, used by filters
// that carry an already-safe input's safe bit over to their output
// (|addslashes).
func (v *Value) MarkSafe() *Value {
	if v.kind != KindStr {
		return v
	}
	return &Value{kind: KindStr, s: v.s, safe: true}
}

func (v *Value) Integer() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.b)
	case KindBool:
		return int64(v.b)
	case KindStr:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (v *Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.b
	case KindInt:
		return float64(v.i)
	case KindBool:
		return v.b
	case KindStr:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (v *Value) Bool() bool { return v.kind == KindBool && v.b != 0 }

// String stringifies the value the way it would be interpolated into
// rendered output. This does not escape; escaping is the renderer's job.
func (v *Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindStr:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.b, 'f', -1, 64)
	case KindBool:
		if v.Bool() {
			return "True"
		}
		return "False"
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, item := range v.seq {
			parts[i] = fmt.Sprintf("%q", item.String())
		}
		return "[" + joinComma(parts) + "]"
	case KindMapping:
		parts := make([]string, 0, len(v.keys))
		for _, k := range v.keys {
			parts = append(parts, fmt.Sprintf("%q: %q", k, v.vals[k].String()))
		}
		return "{" + joinComma(parts) + "}"
	case KindOther:
		return fmt.Sprint(v.other)
	default:
		return ""
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// IsTrue implements Django-style truthiness: zero/empty/nil is false,
// everything else is true.
func (v *Value) IsTrue() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.b != 0
	case KindStr:
		return len(v.s) > 0
	case KindSequence:
		return len(v.seq) > 0
	case KindMapping:
		return len(v.keys) > 0
	case KindOther:
		rv := reflect.ValueOf(v.other)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len() > 0
		case reflect.Ptr, reflect.Interface:
			return !rv.IsNil()
		default:
			return true
		}
	default:
		return false
	}
}

func (v *Value) Len() int {
	switch v.kind {
	case KindStr:
		return len(v.s)
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.keys)
	case KindOther:
		rv := reflect.ValueOf(v.other)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		}
	}
	return 0
}

// Equal implements the comparison spec's "==" / "!=" operators: Null,
// Bool, Int, Float, Str and Other values of matching dynamic type
// compare by value, while two Sequence or two Mapping values never
// compare equal; cross-type comparisons
// (e.g. Int vs Str) are false rather than an error, the permissive
// reading decided in DESIGN.md's Open Question.
func (v *Value) Equal(other *Value) bool {
	if v.kind != other.kind {
		if v.IsNumber() && other.IsNumber() {
			return v.Float() == other.Float()
		}
		// Bool compares equal to Int 0/1 (spec §4.5).
		if v.kind == KindBool && other.kind == KindInt {
			return v.Integer() == other.i
		}
		if v.kind == KindInt && other.kind == KindBool {
			return v.i == other.Integer()
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.b == other.b
	case KindStr:
		return v.s == other.s
	case KindOther:
		return reflect.DeepEqual(v.other, other.other)
	default:
		return false
	}
}

// orderable reports whether v can take part in an ordering comparison
// as a number, along with its numeric value — Bool counts as 0/1 here
// just as it does for Equal (spec §4.5).
func (v *Value) orderable() (f float64, ok bool) {
	switch v.kind {
	case KindInt, KindFloat:
		return v.Float(), true
	case KindBool:
		return v.b, true
	default:
		return 0, false
	}
}

// Compare implements ordering ("<", ">", "<=", ">="), valid only between
// two numbers (Bool included, per Equal's Bool/Int parity) or two
// strings; ok is false for any other pairing, which compareExpr.Evaluate
// reports as an error (and which {% if %} then treats as a false
// condition).
func (v *Value) Compare(other *Value) (cmp int, ok bool) {
	if a, aok := v.orderable(); aok {
		if b, bok := other.orderable(); bok {
			switch {
			case a < b:
				return -1, true
			case a > b:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if v.kind == KindStr && other.kind == KindStr {
		switch {
		case v.s < other.s:
			return -1, true
		case v.s > other.s:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// Contains implements the "in" operator: v in other.
func (other *Value) Contains(v *Value) bool {
	switch other.kind {
	case KindStr:
		if v.kind != KindStr {
			return false
		}
		return stringsContains(other.s, v.s)
	case KindSequence:
		for _, item := range other.seq {
			if item.Equal(v) {
				return true
			}
		}
		return false
	case KindMapping:
		_, exists := other.vals[v.String()]
		return exists
	default:
		return false
	}
}

func stringsContains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n := len(needle)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(haystack); i++ {
		if haystack[i:i+n] == needle {
			return i
		}
	}
	return -1
}

// Iterate walks a Sequence or Mapping value; fn returning false stops
// early. empty is invoked instead if there were zero elements.
func (v *Value) Iterate(fn func(key, val *Value) bool, empty func()) {
	switch v.kind {
	case KindSequence:
		if len(v.seq) == 0 {
			empty()
			return
		}
		for i, item := range v.seq {
			if !fn(Int(int64(i)), item) {
				return
			}
		}
	case KindMapping:
		if len(v.keys) == 0 {
			empty()
			return
		}
		for _, k := range v.keys {
			if !fn(Str(k), v.vals[k]) {
				return
			}
		}
	default:
		empty()
	}
}

// Get implements "." lookup into the Other family via reflection
// (struct field, map index, slice index) plus native Sequence/Mapping
// lookup, returning a missing-flagged Null (never an error) on any
// miss per the spec's silent-substitution rule for render-time
// lookups — VarRef.Evaluate substitutes string_if_invalid for this
// specific Null, not for an explicit None in the data.
func (v *Value) Get(key string) *Value {
	switch v.kind {
	case KindMapping:
		if val, ok := v.vals[key]; ok {
			return val
		}
		return MissingValue()
	case KindSequence:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v.seq) {
			return MissingValue()
		}
		return v.seq[idx]
	case KindOther:
		return getReflect(v.other, key)
	default:
		return MissingValue()
	}
}

func getReflect(host any, key string) *Value {
	rv := reflect.ValueOf(host)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return MissingValue()
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		field := rv.FieldByName(key)
		if !field.IsValid() || !field.CanInterface() {
			method := reflect.ValueOf(host).MethodByName(key)
			if method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() >= 1 {
				out := method.Call(nil)
				return AsValue(out[0].Interface())
			}
			return MissingValue()
		}
		return AsValue(field.Interface())
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return MissingValue()
		}
		return AsValue(mv.Interface())
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return MissingValue()
		}
		return AsValue(rv.Index(idx).Interface())
	default:
		return MissingValue()
	}
}
