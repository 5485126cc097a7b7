package emit

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/ssa"
)

// namer maps definition names to Go identifiers. Programs keep everything
// unexported behind a g_ prefix; libraries export every function.
type namer struct {
	library bool
}

func (n namer) def(name string) string {
	id := ssa.Sanitize(name)
	if !n.library {
		return "g_" + id
	}
	r := []rune(id)
	if len(r) == 0 || !unicode.IsLetter(r[0]) {
		return "X" + id
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (n namer) typed(name string) string { return n.def(name) + config.TypedSuffix }

func (n namer) clause(name string, i int) string {
	return n.def(name) + config.ClauseInfix + strconv.Itoa(i)
}

// scope tracks the Go names of source locals in one generated function
// tree. Names are unique per definition so nested closures never shadow.
type scope struct {
	vars   map[string]string
	parent *scope
	used   map[string]int
}

func newScope() *scope {
	return &scope{vars: map[string]string{}, used: map[string]int{}}
}

func (s *scope) child() *scope {
	return &scope{vars: map[string]string{}, parent: s, used: s.used}
}

// bind allocates a fresh Go name for name in s.
func (s *scope) bind(name string) string {
	id := ssa.Sanitize(name)
	n := s.used[id]
	s.used[id] = n + 1
	goName := "v_" + id
	if n > 0 {
		goName = "v" + strconv.Itoa(n) + "_" + id
	}
	s.vars[name] = goName
	return goName
}

func (s *scope) lookup(name string) (string, bool) {
	for c := s; c != nil; c = c.parent {
		if g, ok := c.vars[name]; ok {
			return g, true
		}
	}
	return "", false
}

func quoteAll(xs []string) string {
	q := make([]string, len(xs))
	for i, x := range xs {
		q[i] = strconv.Quote(x)
	}
	return strings.Join(q, ", ")
}
