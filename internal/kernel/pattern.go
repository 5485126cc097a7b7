package kernel

// Pattern is a kernel match pattern.
type Pattern interface {
	patternNode()
}

type PatWildcard struct{}

type PatVar struct {
	Name string
}

// PatAt binds the whole value to Name and matches Pattern against it (x@p).
type PatAt struct {
	Name    string
	Pattern Pattern
}

// PatNumber is a numeric literal pattern in source form.
type PatNumber struct {
	Text string
}

type PatText struct {
	Value string
}

type PatBool struct {
	Value bool
}

type PatDateTime struct {
	Value string
}

type PatSigil struct {
	Tag, Body, Flags string
}

type PatCtor struct {
	Name string
	Args []Pattern
}

type PatTuple struct {
	Items []Pattern
}

// PatList matches a list. With a nil Rest the length must equal len(Items);
// otherwise the list must be at least that long and Rest matches the tail.
type PatList struct {
	Items []Pattern
	Rest  Pattern
}

type PatField struct {
	Path    []string
	Pattern Pattern
}

// PatRecord matches nested record fields by dotted path.
type PatRecord struct {
	Fields []PatField
}

func (*PatWildcard) patternNode() {}
func (*PatVar) patternNode()      {}
func (*PatAt) patternNode()       {}
func (*PatNumber) patternNode()   {}
func (*PatText) patternNode()     {}
func (*PatBool) patternNode()     {}
func (*PatDateTime) patternNode() {}
func (*PatSigil) patternNode()    {}
func (*PatCtor) patternNode()     {}
func (*PatTuple) patternNode()    {}
func (*PatList) patternNode()     {}
func (*PatRecord) patternNode()   {}

// Binders returns the variables bound by p in left-to-right order.
func Binders(p Pattern) []string {
	var out []string
	var walk func(Pattern)
	walk = func(p Pattern) {
		switch p := p.(type) {
		case *PatVar:
			out = append(out, p.Name)
		case *PatAt:
			out = append(out, p.Name)
			walk(p.Pattern)
		case *PatCtor:
			for _, a := range p.Args {
				walk(a)
			}
		case *PatTuple:
			for _, a := range p.Items {
				walk(a)
			}
		case *PatList:
			for _, a := range p.Items {
				walk(a)
			}
			if p.Rest != nil {
				walk(p.Rest)
			}
		case *PatRecord:
			for _, f := range p.Fields {
				walk(f.Pattern)
			}
		}
	}
	walk(p)
	return out
}
