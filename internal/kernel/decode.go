package kernel

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/funxc/internal/typesystem"
)

// DecodeError reports malformed kernel input at a document path such as
// defs[2].expr.body.left.
type DecodeError struct {
	File string
	Path string
	Line int
	Msg  string
}

func (e *DecodeError) Error() string {
	loc := e.Path
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", loc, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

// document is the on-disk layout of a kernel module. JSON dumps decode too
// since YAML is a superset of JSON.
type document struct {
	Module  string `yaml:"module"`
	Aliases []struct {
		Name   string    `yaml:"name"`
		Params []string  `yaml:"params"`
		Type   yaml.Node `yaml:"type"`
	} `yaml:"aliases"`
	ADTs []struct {
		Name         string `yaml:"name"`
		Constructors []struct {
			Name    string      `yaml:"name"`
			Payload []yaml.Node `yaml:"payload"`
		} `yaml:"constructors"`
	} `yaml:"adts"`
	Defs []struct {
		Name   string    `yaml:"name"`
		Type   yaml.Node `yaml:"type"`
		Inline bool      `yaml:"inline"`
		Expr   yaml.Node `yaml:"expr"`
	} `yaml:"defs"`
}

// LoadModule reads and decodes a kernel module file.
func LoadModule(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel module: %w", err)
	}
	return DecodeModule(data, path)
}

// DecodeModule decodes a kernel module document. file is used in error
// messages only.
func DecodeModule(data []byte, file string) (*Module, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid kernel module: %w", file, err)
	}

	d := &decoder{file: file, reg: NewRegistry(), aliasParams: make(map[string][]string)}
	m := &Module{Name: doc.Module, Registry: d.reg}
	if m.Name == "" {
		m.Name = "main"
	}

	for i, a := range doc.Aliases {
		path := fmt.Sprintf("aliases[%d]", i)
		if a.Name == "" {
			return nil, d.errorf(nil, path, "alias name is required")
		}
		t, err := d.typ(&a.Type, path+".type")
		if err != nil {
			return nil, err
		}
		if err := d.reg.AddAlias(a.Name, t); err != nil {
			return nil, d.errorf(&a.Type, path, "%v", err)
		}
		d.aliasParams[a.Name] = a.Params
	}

	for i, a := range doc.ADTs {
		path := fmt.Sprintf("adts[%d]", i)
		if a.Name == "" {
			return nil, d.errorf(nil, path, "type name is required")
		}
		adt := ADT{Name: a.Name}
		for j, c := range a.Constructors {
			cpath := fmt.Sprintf("%s.constructors[%d]", path, j)
			if c.Name == "" {
				return nil, d.errorf(nil, cpath, "constructor name is required")
			}
			ctor := Constructor{Name: c.Name}
			for k := range c.Payload {
				t, err := d.typ(&c.Payload[k], fmt.Sprintf("%s.payload[%d]", cpath, k))
				if err != nil {
					return nil, err
				}
				ctor.Payload = append(ctor.Payload, t)
			}
			adt.Constructors = append(adt.Constructors, ctor)
		}
		if err := d.reg.AddADT(adt); err != nil {
			return nil, d.errorf(nil, path, "%v", err)
		}
	}

	for i, def := range doc.Defs {
		path := fmt.Sprintf("defs[%d]", i)
		if def.Name == "" {
			return nil, d.errorf(nil, path, "definition name is required")
		}
		var t typesystem.Type
		if def.Type.Kind != 0 {
			var err error
			if t, err = d.typ(&def.Type, path+".type"); err != nil {
				return nil, err
			}
		}
		if def.Expr.Kind == 0 {
			return nil, d.errorf(nil, path, "definition %s has no expr", def.Name)
		}
		e, err := d.expr(&def.Expr, path+".expr")
		if err != nil {
			return nil, err
		}
		m.Defs = append(m.Defs, Def{Name: def.Name, Expr: e, Type: t, Inline: def.Inline})
	}
	return m, nil
}

type decoder struct {
	file        string
	reg         *Registry
	aliasParams map[string][]string
}

func (d *decoder) errorf(n *yaml.Node, path, format string, args ...any) error {
	e := &DecodeError{File: d.file, Path: path, Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line = n.Line
	}
	return e
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// node is a kind-tagged mapping.
type node struct {
	kind   string
	fields map[string]*yaml.Node
	src    *yaml.Node
}

func (d *decoder) mapping(n *yaml.Node, path string) (node, error) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return node{}, d.errorf(n, path, "expected a mapping")
	}
	out := node{fields: make(map[string]*yaml.Node, len(n.Content)/2), src: n}
	for i := 0; i+1 < len(n.Content); i += 2 {
		out.fields[n.Content[i].Value] = resolve(n.Content[i+1])
	}
	if k := out.fields["kind"]; k != nil {
		out.kind = k.Value
	}
	return out, nil
}

func (d *decoder) str(nd node, key, path string) (string, error) {
	v := nd.fields[key]
	if v == nil {
		return "", d.errorf(nd.src, path, "missing %s", key)
	}
	if v.Kind != yaml.ScalarNode {
		return "", d.errorf(v, path+"."+key, "expected a scalar")
	}
	return v.Value, nil
}

func (d *decoder) optStr(nd node, key, path string) (string, error) {
	if nd.fields[key] == nil {
		return "", nil
	}
	return d.str(nd, key, path)
}

func (d *decoder) boolean(nd node, key, path string) (bool, error) {
	v := nd.fields[key]
	if v == nil {
		return false, d.errorf(nd.src, path, "missing %s", key)
	}
	var b bool
	if err := v.Decode(&b); err != nil {
		return false, d.errorf(v, path+"."+key, "expected a boolean")
	}
	return b, nil
}

func (d *decoder) seq(nd node, key, path string, required bool) ([]*yaml.Node, error) {
	v := nd.fields[key]
	if v == nil {
		if required {
			return nil, d.errorf(nd.src, path, "missing %s", key)
		}
		return nil, nil
	}
	if v.Kind != yaml.SequenceNode {
		return nil, d.errorf(v, path+"."+key, "expected a sequence")
	}
	out := make([]*yaml.Node, len(v.Content))
	for i, c := range v.Content {
		out[i] = resolve(c)
	}
	return out, nil
}

func (d *decoder) child(nd node, key, path string) (Expr, error) {
	v := nd.fields[key]
	if v == nil {
		return nil, d.errorf(nd.src, path, "missing %s", key)
	}
	return d.expr(v, path+"."+key)
}

func (d *decoder) exprs(nodes []*yaml.Node, path string) ([]Expr, error) {
	out := make([]Expr, len(nodes))
	for i, n := range nodes {
		e, err := d.expr(n, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) expr(n *yaml.Node, path string) (Expr, error) {
	nd, err := d.mapping(n, path)
	if err != nil {
		return nil, err
	}
	switch nd.kind {
	case "local", "global", "builtin", "ctor":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		switch nd.kind {
		case "local":
			return &Local{Name: name}, nil
		case "global":
			return &Global{Name: name}, nil
		case "builtin":
			return &Builtin{Name: name}, nil
		}
		return &Ctor{Name: name}, nil

	case "number":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &Number{Text: s}, nil

	case "text":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &TextLit{Value: s}, nil

	case "bool":
		b, err := d.boolean(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &BoolLit{Value: b}, nil

	case "datetime":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &DateTimeLit{Value: s}, nil

	case "sigil":
		tag, body, flags, err := d.sigil(nd, path)
		if err != nil {
			return nil, err
		}
		return &SigilLit{Tag: tag, Body: body, Flags: flags}, nil

	case "interp":
		parts, err := d.seq(nd, "parts", path, true)
		if err != nil {
			return nil, err
		}
		out := &Interp{}
		for i, p := range parts {
			ppath := fmt.Sprintf("%s.parts[%d]", path, i)
			pn, err := d.mapping(p, ppath)
			if err != nil {
				return nil, err
			}
			if pn.fields["expr"] != nil {
				e, err := d.child(pn, "expr", ppath)
				if err != nil {
					return nil, err
				}
				out.Parts = append(out.Parts, TextPart{Expr: e})
				continue
			}
			s, err := d.str(pn, "text", ppath)
			if err != nil {
				return nil, err
			}
			out.Parts = append(out.Parts, TextPart{Text: s})
		}
		return out, nil

	case "lambda":
		body, err := d.child(nd, "body", path)
		if err != nil {
			return nil, err
		}
		if nd.fields["params"] != nil {
			ps, err := d.seq(nd, "params", path, true)
			if err != nil {
				return nil, err
			}
			if len(ps) == 0 {
				return nil, d.errorf(nd.src, path+".params", "a lambda needs at least one parameter")
			}
			names := make([]string, len(ps))
			for i, p := range ps {
				names[i] = p.Value
			}
			return Lambdas(body, names...), nil
		}
		param, err := d.str(nd, "param", path)
		if err != nil {
			return nil, err
		}
		return &Lambda{Param: param, Body: body}, nil

	case "app":
		f, err := d.child(nd, "func", path)
		if err != nil {
			return nil, err
		}
		if nd.fields["args"] != nil {
			argNodes, err := d.seq(nd, "args", path, true)
			if err != nil {
				return nil, err
			}
			args, err := d.exprs(argNodes, path+".args")
			if err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return nil, d.errorf(nd.src, path+".args", "an application needs at least one argument")
			}
			return Apply(f, args...), nil
		}
		arg, err := d.child(nd, "arg", path)
		if err != nil {
			return nil, err
		}
		return &App{Func: f, Arg: arg}, nil

	case "pipe":
		l, err := d.child(nd, "left", path)
		if err != nil {
			return nil, err
		}
		r, err := d.child(nd, "right", path)
		if err != nil {
			return nil, err
		}
		return &Pipe{Left: l, Right: r}, nil

	case "list":
		items, err := d.seq(nd, "items", path, false)
		if err != nil {
			return nil, err
		}
		out := &ListLit{Items: []ListItem{}}
		for i, it := range items {
			ipath := fmt.Sprintf("%s.items[%d]", path, i)
			in, err := d.mapping(it, ipath)
			if err != nil {
				return nil, err
			}
			if in.kind == "spread" {
				e, err := d.child(in, "expr", ipath)
				if err != nil {
					return nil, err
				}
				out.Items = append(out.Items, ListItem{Expr: e, Spread: true})
				continue
			}
			e, err := d.expr(it, ipath)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, ListItem{Expr: e})
		}
		return out, nil

	case "tuple":
		items, err := d.seq(nd, "items", path, true)
		if err != nil {
			return nil, err
		}
		es, err := d.exprs(items, path+".items")
		if err != nil {
			return nil, err
		}
		return &TupleLit{Items: es}, nil

	case "record":
		fields, err := d.seq(nd, "fields", path, false)
		if err != nil {
			return nil, err
		}
		out := &RecordLit{}
		for i, f := range fields {
			fpath := fmt.Sprintf("%s.fields[%d]", path, i)
			fn, err := d.mapping(f, fpath)
			if err != nil {
				return nil, err
			}
			if fn.fields["spread"] != nil {
				e, err := d.child(fn, "spread", fpath)
				if err != nil {
					return nil, err
				}
				out.Fields = append(out.Fields, RecordField{Value: e, Spread: true})
				continue
			}
			p, err := d.str(fn, "path", fpath)
			if err != nil {
				return nil, err
			}
			v, err := d.child(fn, "value", fpath)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, RecordField{Path: splitPath(p), Value: v})
		}
		return out, nil

	case "patch":
		target, err := d.child(nd, "target", path)
		if err != nil {
			return nil, err
		}
		fields, err := d.seq(nd, "fields", path, true)
		if err != nil {
			return nil, err
		}
		out := &Patch{Target: target}
		for i, f := range fields {
			fpath := fmt.Sprintf("%s.fields[%d]", path, i)
			fn, err := d.mapping(f, fpath)
			if err != nil {
				return nil, err
			}
			segs, err := d.patchPath(fn, fpath)
			if err != nil {
				return nil, err
			}
			v, err := d.child(fn, "value", fpath)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, PatchField{Path: segs, Value: v})
		}
		return out, nil

	case "field":
		base, err := d.child(nd, "base", path)
		if err != nil {
			return nil, err
		}
		name, err := d.str(nd, "field", path)
		if err != nil {
			return nil, err
		}
		return &FieldAccess{Base: base, Field: name}, nil

	case "index":
		base, err := d.child(nd, "base", path)
		if err != nil {
			return nil, err
		}
		idx, err := d.child(nd, "index", path)
		if err != nil {
			return nil, err
		}
		return &Index{Base: base, Index: idx}, nil

	case "if":
		c, err := d.child(nd, "cond", path)
		if err != nil {
			return nil, err
		}
		t, err := d.child(nd, "then", path)
		if err != nil {
			return nil, err
		}
		e, err := d.child(nd, "else", path)
		if err != nil {
			return nil, err
		}
		return &If{Cond: c, Then: t, Else: e}, nil

	case "binary":
		op, err := d.str(nd, "op", path)
		if err != nil {
			return nil, err
		}
		l, err := d.child(nd, "left", path)
		if err != nil {
			return nil, err
		}
		r, err := d.child(nd, "right", path)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: l, Right: r}, nil

	case "block":
		return d.block(nd, path)

	case "match":
		scrut, err := d.child(nd, "scrutinee", path)
		if err != nil {
			return nil, err
		}
		arms, err := d.seq(nd, "arms", path, true)
		if err != nil {
			return nil, err
		}
		out := &Match{Scrutinee: scrut}
		for i, a := range arms {
			apath := fmt.Sprintf("%s.arms[%d]", path, i)
			an, err := d.mapping(a, apath)
			if err != nil {
				return nil, err
			}
			pn := an.fields["pattern"]
			if pn == nil {
				return nil, d.errorf(an.src, apath, "missing pattern")
			}
			p, err := d.pattern(pn, apath+".pattern")
			if err != nil {
				return nil, err
			}
			arm := Arm{Pattern: p}
			if an.fields["guard"] != nil {
				if arm.Guard, err = d.child(an, "guard", apath); err != nil {
					return nil, err
				}
			}
			if arm.Body, err = d.child(an, "body", apath); err != nil {
				return nil, err
			}
			out.Arms = append(out.Arms, arm)
		}
		return out, nil

	case "":
		return nil, d.errorf(nd.src, path, "expression has no kind")
	}
	return nil, d.errorf(nd.src, path, "unknown expression kind %q", nd.kind)
}

func (d *decoder) sigil(nd node, path string) (tag, body, flags string, err error) {
	if tag, err = d.str(nd, "tag", path); err != nil {
		return
	}
	if body, err = d.str(nd, "body", path); err != nil {
		return
	}
	flags, err = d.optStr(nd, "flags", path)
	return
}

func (d *decoder) block(nd node, path string) (Expr, error) {
	out := &Block{Kind: PlainBlock}
	if nd.fields["do"] != nil {
		isDo, err := d.boolean(nd, "do", path)
		if err != nil {
			return nil, err
		}
		if isDo {
			out.Kind = DoBlock
		}
	}
	items, err := d.seq(nd, "items", path, true)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, d.errorf(nd.src, path+".items", "a block needs at least one item")
	}
	for i, it := range items {
		ipath := fmt.Sprintf("%s.items[%d]", path, i)
		in, err := d.mapping(it, ipath)
		if err != nil {
			return nil, err
		}
		item := BlockItem{Kind: ItemExpr}
		switch {
		case in.fields["let"] != nil:
			item.Kind = ItemLet
			item.Pattern, err = d.pattern(in.fields["let"], ipath+".let")
		case in.fields["bind"] != nil:
			if out.Kind != DoBlock {
				return nil, d.errorf(in.src, ipath, "bind outside a do block")
			}
			item.Kind = ItemBind
			item.Pattern, err = d.pattern(in.fields["bind"], ipath+".bind")
		}
		if err != nil {
			return nil, err
		}
		if item.Expr, err = d.child(in, "expr", ipath); err != nil {
			return nil, err
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// patchPath accepts "a.b" or a sequence of segments, each a field name,
// {index: expr} or {where: field}.
func (d *decoder) patchPath(fn node, path string) ([]PathSeg, error) {
	v := fn.fields["path"]
	if v == nil {
		return nil, d.errorf(fn.src, path, "missing path")
	}
	if v.Kind == yaml.ScalarNode {
		var segs []PathSeg
		for _, f := range splitPath(v.Value) {
			segs = append(segs, PathSeg{Field: f})
		}
		if len(segs) == 0 {
			return nil, d.errorf(v, path+".path", "empty patch path")
		}
		return segs, nil
	}
	items, err := d.seq(fn, "path", path, true)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, d.errorf(v, path+".path", "empty patch path")
	}
	segs := make([]PathSeg, len(items))
	for i, it := range items {
		spath := fmt.Sprintf("%s.path[%d]", path, i)
		if it.Kind == yaml.ScalarNode {
			segs[i] = PathSeg{Field: it.Value}
			continue
		}
		sn, err := d.mapping(it, spath)
		if err != nil {
			return nil, err
		}
		switch {
		case sn.fields["index"] != nil:
			idx, err := d.child(sn, "index", spath)
			if err != nil {
				return nil, err
			}
			segs[i] = PathSeg{Index: idx}
		case sn.fields["where"] != nil:
			w, err := d.str(sn, "where", spath)
			if err != nil {
				return nil, err
			}
			segs[i] = PathSeg{Where: w}
		default:
			return nil, d.errorf(it, spath, "expected a field name, index or where segment")
		}
	}
	return segs, nil
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

func (d *decoder) pattern(n *yaml.Node, path string) (Pattern, error) {
	n = resolve(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		if n.Value == "_" {
			return &PatWildcard{}, nil
		}
		return &PatVar{Name: n.Value}, nil
	}
	nd, err := d.mapping(n, path)
	if err != nil {
		return nil, err
	}
	patterns := func(key string, required bool) ([]Pattern, error) {
		items, err := d.seq(nd, key, path, required)
		if err != nil {
			return nil, err
		}
		out := make([]Pattern, len(items))
		for i, it := range items {
			if out[i], err = d.pattern(it, fmt.Sprintf("%s.%s[%d]", path, key, i)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	switch nd.kind {
	case "wildcard":
		return &PatWildcard{}, nil
	case "var":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		return &PatVar{Name: name}, nil
	case "at":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		if nd.fields["pattern"] == nil {
			return nil, d.errorf(nd.src, path, "missing pattern")
		}
		inner, err := d.pattern(nd.fields["pattern"], path+".pattern")
		if err != nil {
			return nil, err
		}
		return &PatAt{Name: name, Pattern: inner}, nil
	case "number":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &PatNumber{Text: s}, nil
	case "text":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &PatText{Value: s}, nil
	case "bool":
		b, err := d.boolean(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &PatBool{Value: b}, nil
	case "datetime":
		s, err := d.str(nd, "value", path)
		if err != nil {
			return nil, err
		}
		return &PatDateTime{Value: s}, nil
	case "sigil":
		tag, body, flags, err := d.sigil(nd, path)
		if err != nil {
			return nil, err
		}
		return &PatSigil{Tag: tag, Body: body, Flags: flags}, nil
	case "ctor":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		args, err := patterns("args", false)
		if err != nil {
			return nil, err
		}
		return &PatCtor{Name: name, Args: args}, nil
	case "tuple":
		items, err := patterns("items", true)
		if err != nil {
			return nil, err
		}
		return &PatTuple{Items: items}, nil
	case "list":
		items, err := patterns("items", false)
		if err != nil {
			return nil, err
		}
		out := &PatList{Items: items}
		if nd.fields["rest"] != nil {
			if out.Rest, err = d.pattern(nd.fields["rest"], path+".rest"); err != nil {
				return nil, err
			}
		}
		return out, nil
	case "record":
		fields, err := d.seq(nd, "fields", path, true)
		if err != nil {
			return nil, err
		}
		out := &PatRecord{}
		for i, f := range fields {
			fpath := fmt.Sprintf("%s.fields[%d]", path, i)
			fn, err := d.mapping(f, fpath)
			if err != nil {
				return nil, err
			}
			// An empty path is kept so code generation can reject it.
			p, err := d.optStr(fn, "path", fpath)
			if err != nil {
				return nil, err
			}
			if fn.fields["pattern"] == nil {
				return nil, d.errorf(fn.src, fpath, "missing pattern")
			}
			sub, err := d.pattern(fn.fields["pattern"], fpath+".pattern")
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, PatField{Path: splitPath(p), Pattern: sub})
		}
		return out, nil
	case "":
		return nil, d.errorf(nd.src, path, "pattern has no kind")
	}
	return nil, d.errorf(nd.src, path, "unknown pattern kind %q", nd.kind)
}

// typ decodes a checker type. A bare scalar is a type constant, or a type
// variable when it starts with a lower-case letter.
func (d *decoder) typ(n *yaml.Node, path string) (typesystem.Type, error) {
	n = resolve(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		if n.Value == "" {
			return nil, d.errorf(n, path, "empty type name")
		}
		r, _ := utf8.DecodeRuneInString(n.Value)
		if unicode.IsLower(r) {
			return typesystem.TVar{Name: n.Value}, nil
		}
		return d.con(n.Value), nil
	}
	nd, err := d.mapping(n, path)
	if err != nil {
		return nil, err
	}
	types := func(key string) ([]typesystem.Type, error) {
		items, err := d.seq(nd, key, path, true)
		if err != nil {
			return nil, err
		}
		out := make([]typesystem.Type, len(items))
		for i, it := range items {
			if out[i], err = d.typ(it, fmt.Sprintf("%s.%s[%d]", path, key, i)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	one := func(key string) (typesystem.Type, error) {
		v := nd.fields[key]
		if v == nil {
			return nil, d.errorf(nd.src, path, "missing %s", key)
		}
		return d.typ(v, path+"."+key)
	}

	switch nd.kind {
	case "con":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		return d.con(name), nil
	case "var":
		name, err := d.str(nd, "name", path)
		if err != nil {
			return nil, err
		}
		return typesystem.TVar{Name: name}, nil
	case "app":
		con, err := one("con")
		if err != nil {
			return nil, err
		}
		args, err := types("args")
		if err != nil {
			return nil, err
		}
		return typesystem.TApp{Constructor: con, Args: args}, nil
	case "func":
		params, err := types("params")
		if err != nil {
			return nil, err
		}
		result, err := one("result")
		if err != nil {
			return nil, err
		}
		return typesystem.TFunc{Params: params, ReturnType: result}, nil
	case "tuple":
		elems, err := types("elems")
		if err != nil {
			return nil, err
		}
		return typesystem.TTuple{Elements: elems}, nil
	case "record":
		fv := nd.fields["fields"]
		if fv == nil || fv.Kind != yaml.MappingNode {
			return nil, d.errorf(nd.src, path+".fields", "expected a mapping of field types")
		}
		rec := typesystem.TRecord{Fields: make(map[string]typesystem.Type, len(fv.Content)/2)}
		for i := 0; i+1 < len(fv.Content); i += 2 {
			name := fv.Content[i].Value
			t, err := d.typ(fv.Content[i+1], path+".fields."+name)
			if err != nil {
				return nil, err
			}
			rec.Fields[name] = t
		}
		if nd.fields["open"] != nil {
			if rec.IsOpen, err = d.boolean(nd, "open", path); err != nil {
				return nil, err
			}
		}
		return rec, nil
	case "union":
		ts, err := types("types")
		if err != nil {
			return nil, err
		}
		return typesystem.TUnion{Types: ts}, nil
	case "forall":
		vars, err := d.seq(nd, "vars", path, true)
		if err != nil {
			return nil, err
		}
		body, err := one("type")
		if err != nil {
			return nil, err
		}
		out := typesystem.TForall{Type: body}
		for _, v := range vars {
			out.Vars = append(out.Vars, typesystem.TVar{Name: v.Value})
		}
		return out, nil
	case "":
		return nil, d.errorf(nd.src, path, "type has no kind")
	}
	return nil, d.errorf(nd.src, path, "unknown type kind %q", nd.kind)
}

// con builds a type constant, attaching the underlying type of a known alias.
func (d *decoder) con(name string) typesystem.Type {
	underlying, ok := d.reg.Alias(name)
	if !ok {
		return typesystem.TCon{Name: name}
	}
	t := typesystem.TCon{Name: name, UnderlyingType: underlying}
	if params := d.aliasParams[name]; len(params) > 0 {
		ps := append([]string(nil), params...)
		t.TypeParams = &ps
	}
	return t
}
