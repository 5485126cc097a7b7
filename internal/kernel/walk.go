package kernel

// Inspect traverses e in depth-first order, calling f for every expression
// reachable from it, including guards, patch values, interpolation parts and
// block items. If f returns false the children of that node are skipped.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range Children(e) {
		Inspect(c, f)
	}
}

// Children returns the direct subexpressions of e in evaluation order.
func Children(e Expr) []Expr {
	switch e := e.(type) {
	case *Interp:
		var out []Expr
		for _, p := range e.Parts {
			if p.Expr != nil {
				out = append(out, p.Expr)
			}
		}
		return out
	case *Lambda:
		return []Expr{e.Body}
	case *App:
		return []Expr{e.Func, e.Arg}
	case *Pipe:
		return []Expr{e.Left, e.Right}
	case *ListLit:
		out := make([]Expr, len(e.Items))
		for i, it := range e.Items {
			out[i] = it.Expr
		}
		return out
	case *TupleLit:
		return e.Items
	case *RecordLit:
		out := make([]Expr, len(e.Fields))
		for i, f := range e.Fields {
			out[i] = f.Value
		}
		return out
	case *Patch:
		out := []Expr{e.Target}
		for _, f := range e.Fields {
			for _, seg := range f.Path {
				if seg.Index != nil {
					out = append(out, seg.Index)
				}
			}
			out = append(out, f.Value)
		}
		return out
	case *FieldAccess:
		return []Expr{e.Base}
	case *Index:
		return []Expr{e.Base, e.Index}
	case *If:
		return []Expr{e.Cond, e.Then, e.Else}
	case *Binary:
		return []Expr{e.Left, e.Right}
	case *Block:
		out := make([]Expr, len(e.Items))
		for i, it := range e.Items {
			out[i] = it.Expr
		}
		return out
	case *Match:
		out := []Expr{e.Scrutinee}
		for _, a := range e.Arms {
			if a.Guard != nil {
				out = append(out, a.Guard)
			}
			out = append(out, a.Body)
		}
		return out
	}
	return nil
}
