// Package reuse computes the ownership/reuse advisory plan: which
// definitions have a closed layout and so could later be updated in place,
// and which of those perform functional record updates. The plan is
// metadata only; nothing in code generation depends on it.
package reuse

import (
	"sort"
	"strings"

	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/kernel"
)

// Plan holds the two advisory name sets. Patching is a subset of Reusable.
type Plan struct {
	Reusable map[string]bool
	Patching map[string]bool
}

// Analyze builds the plan for defs. closed maps definition names to their
// descriptors; names without an entry, or with an open descriptor, are
// skipped. Neither input is modified.
func Analyze(defs []kernel.Def, closed map[string]cgtype.Type) Plan {
	plan := Plan{Reusable: map[string]bool{}, Patching: map[string]bool{}}
	for _, d := range defs {
		t, ok := closed[d.Name]
		if !ok || !t.IsClosed() {
			continue
		}
		plan.Reusable[d.Name] = true
		if ContainsPatch(d.Expr) {
			plan.Patching[d.Name] = true
		}
	}
	return plan
}

// ContainsPatch reports whether e performs a functional record update
// anywhere in its body.
func ContainsPatch(e kernel.Expr) bool {
	found := false
	kernel.Inspect(e, func(n kernel.Expr) bool {
		if _, ok := n.(*kernel.Patch); ok {
			found = true
		}
		return !found
	})
	return found
}

// Names returns the sorted members of a set.
func Names(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Comment renders the plan as a Go comment block for generated output.
func (p Plan) Comment() string {
	var b strings.Builder
	b.WriteString("// Reuse plan (advisory):\n")
	b.WriteString("//   reusable: " + list(Names(p.Reusable)) + "\n")
	b.WriteString("//   patching: " + list(Names(p.Patching)) + "\n")
	return b.String()
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
