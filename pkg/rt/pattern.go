package rt

type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	PatVar
	PatAt
	PatInt
	PatFloat
	PatText
	PatBool
	PatDateTime
	PatSigil
	PatConstructor
	PatTuple
	PatList
	PatRecord
)

// Pattern is a structural pattern as emitted by the code generator.
// Build patterns with the P* constructors and compile them once with Compile.
type Pattern struct {
	Kind PatternKind

	// Name is the binder of Var/At or the constructor name.
	Name string

	Int   int64
	Float float64
	Text  string
	Bool  bool

	// Sigil literal parts; Text holds the body.
	Tag, Flags string

	// Items are constructor arguments, tuple elements or list prefix items.
	// At patterns keep their subpattern in Items[0].
	Items []Pattern

	// Rest, for list patterns, matches the remaining elements as a list.
	Rest *Pattern

	Fields []FieldPattern
}

// FieldPattern matches the value reached by a dotted record path.
type FieldPattern struct {
	Path    []string
	Pattern Pattern
}

// Bindings collects variables bound by a successful match.
type Bindings map[string]Value

// Matcher tests a value, writing bindings as matching proceeds.
// After a failed match the bindings may hold a partial set and must be discarded.
type Matcher func(v Value, b Bindings) bool

func PWild() Pattern                 { return Pattern{Kind: PatWildcard} }
func PVar(name string) Pattern       { return Pattern{Kind: PatVar, Name: name} }
func PAt(name string, p Pattern) Pattern {
	return Pattern{Kind: PatAt, Name: name, Items: []Pattern{p}}
}

// PInt matches Int(n) and Float(n): numeric literals are untyped in source.
func PInt(n int64) Pattern           { return Pattern{Kind: PatInt, Int: n} }
func PFloat(f float64) Pattern       { return Pattern{Kind: PatFloat, Float: f} }
func PText(s string) Pattern         { return Pattern{Kind: PatText, Text: s} }
func PBool(b bool) Pattern           { return Pattern{Kind: PatBool, Bool: b} }
func PDateTime(s string) Pattern     { return Pattern{Kind: PatDateTime, Text: s} }
func PSigil(tag, body, flags string) Pattern {
	return Pattern{Kind: PatSigil, Tag: tag, Text: body, Flags: flags}
}
func PCtor(name string, args ...Pattern) Pattern {
	return Pattern{Kind: PatConstructor, Name: name, Items: args}
}
func PTuple(items ...Pattern) Pattern { return Pattern{Kind: PatTuple, Items: items} }

// PList matches a list; rest may be nil for an exact-length match.
func PList(items []Pattern, rest *Pattern) Pattern {
	return Pattern{Kind: PatList, Items: items, Rest: rest}
}

// Rest returns p as the rest pattern of PList.
func Rest(p Pattern) *Pattern { return &p }

func PRecord(fields ...FieldPattern) Pattern { return Pattern{Kind: PatRecord, Fields: fields} }
func PField(path []string, p Pattern) FieldPattern {
	return FieldPattern{Path: path, Pattern: p}
}

// Compile turns a pattern into a matcher closure. Sub-patterns are compiled
// once, up front.
func Compile(p Pattern) Matcher {
	switch p.Kind {
	case PatWildcard:
		return func(Value, Bindings) bool { return true }

	case PatVar:
		name := p.Name
		return func(v Value, b Bindings) bool {
			b[name] = v
			return true
		}

	case PatAt:
		name := p.Name
		inner := Compile(p.Items[0])
		return func(v Value, b Bindings) bool {
			b[name] = v
			return inner(v, b)
		}

	case PatInt:
		n := p.Int
		return func(v Value, _ Bindings) bool {
			switch x := v.(type) {
			case Int:
				return int64(x) == n
			case Float:
				return float64(x) == float64(n)
			}
			return false
		}

	case PatFloat:
		f := p.Float
		return func(v Value, _ Bindings) bool {
			x, ok := v.(Float)
			return ok && float64(x) == f
		}

	case PatText:
		s := Text(p.Text)
		return func(v Value, _ Bindings) bool {
			x, ok := v.(Text)
			return ok && x == s
		}

	case PatBool:
		want := Bool(p.Bool)
		return func(v Value, _ Bindings) bool {
			x, ok := v.(Bool)
			return ok && x == want
		}

	case PatDateTime:
		want := DateTime(p.Text)
		return func(v Value, _ Bindings) bool {
			x, ok := v.(DateTime)
			return ok && x == want
		}

	case PatSigil:
		tag, body, flags := Text(p.Tag), Text(p.Text), Text(p.Flags)
		return func(v Value, _ Bindings) bool {
			rec, ok := v.(Record)
			if !ok {
				return false
			}
			return textField(rec, "tag") == tag.tagged() &&
				textField(rec, "body") == body.tagged() &&
				textField(rec, "flags") == flags.tagged()
		}

	case PatConstructor:
		name := p.Name
		args := compileAll(p.Items)
		return func(v Value, b Bindings) bool {
			c, ok := v.(*Constructor)
			if !ok || c.Name != name || len(c.Args) != len(args) {
				return false
			}
			for i, m := range args {
				if !m(c.Args[i], b) {
					return false
				}
			}
			return true
		}

	case PatTuple:
		items := compileAll(p.Items)
		return func(v Value, b Bindings) bool {
			t, ok := v.(Tuple)
			if !ok || len(t) != len(items) {
				return false
			}
			for i, m := range items {
				if !m(t[i], b) {
					return false
				}
			}
			return true
		}

	case PatList:
		items := compileAll(p.Items)
		var rest Matcher
		if p.Rest != nil {
			rest = Compile(*p.Rest)
		}
		return func(v Value, b Bindings) bool {
			l, ok := v.(List)
			if !ok {
				return false
			}
			if rest == nil && len(l) != len(items) {
				return false
			}
			if len(l) < len(items) {
				return false
			}
			for i, m := range items {
				if !m(l[i], b) {
					return false
				}
			}
			if rest != nil {
				tail := append(List{}, l[len(items):]...)
				return rest(tail, b)
			}
			return true
		}

	case PatRecord:
		type compiledField struct {
			path []string
			m    Matcher
		}
		fields := make([]compiledField, len(p.Fields))
		for i, f := range p.Fields {
			fields[i] = compiledField{path: f.Path, m: Compile(f.Pattern)}
		}
		return func(v Value, b Bindings) bool {
			for _, f := range fields {
				fv, ok := lookupPath(v, f.path)
				if !ok || !f.m(fv, b) {
					return false
				}
			}
			return true
		}
	}
	return func(Value, Bindings) bool { return false }
}

func compileAll(ps []Pattern) []Matcher {
	out := make([]Matcher, len(ps))
	for i, p := range ps {
		out[i] = Compile(p)
	}
	return out
}

// lookupPath projects successive record fields. A missing segment or a
// non-record intermediate reports false, never an error.
func lookupPath(v Value, path []string) (Value, bool) {
	for _, seg := range path {
		rec, ok := v.(Record)
		if !ok {
			return nil, false
		}
		v, ok = rec[seg]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// textField returns the field as a tagged string so that an absent or
// non-text field never equals a present text.
func textField(rec Record, name string) string {
	t, ok := rec[name].(Text)
	if !ok {
		return ""
	}
	return t.tagged()
}

func (t Text) tagged() string { return "t:" + string(t) }
