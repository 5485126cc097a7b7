package rt

import "strings"

// Map is an immutable associative collection preserving insertion order.
// Keys are compared structurally through their canonical Inspect form.
type Map struct {
	keys  []Value
	vals  []Value
	index map[string]int
}

// NewMap builds a map from alternating key/value pairs; later keys win.
func NewMap(pairs ...Value) *Map {
	m := &Map{index: make(map[string]int, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.set(pairs[i], pairs[i+1])
	}
	return m
}

func (*Map) Type() ValueType { return MAP_VAL }

func (m *Map) Inspect() string {
	parts := make([]string, len(m.keys))
	for i := range m.keys {
		parts[i] = m.keys[i].Inspect() + " => " + m.vals[i].Inspect()
	}
	return "%{" + strings.Join(parts, ", ") + "}"
}

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.index[key.Inspect()]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

// Put returns a new map with key bound to v.
func (m *Map) Put(key, v Value) *Map {
	out := &Map{
		keys:  append([]Value(nil), m.keys...),
		vals:  append([]Value(nil), m.vals...),
		index: make(map[string]int, len(m.index)+1),
	}
	for k, i := range m.index {
		out.index[k] = i
	}
	out.set(key, v)
	return out
}

// Entries returns keys and values in insertion order.
func (m *Map) Entries() ([]Value, []Value) { return m.keys, m.vals }

func (m *Map) set(key, v Value) {
	k := key.Inspect()
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
}

// Set is an immutable collection of distinct values in insertion order.
type Set struct {
	items []Value
	index map[string]struct{}
}

func NewSet(items ...Value) *Set {
	s := &Set{index: make(map[string]struct{}, len(items))}
	for _, it := range items {
		k := it.Inspect()
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.items = append(s.items, it)
	}
	return s
}

func (*Set) Type() ValueType   { return SET_VAL }
func (s *Set) Inspect() string { return "#{" + inspectAll(s.items) + "}" }
func (s *Set) Len() int        { return len(s.items) }
func (s *Set) Items() []Value  { return s.items }

func (s *Set) Has(v Value) bool {
	_, ok := s.index[v.Inspect()]
	return ok
}
