package rt

// Arm is one compiled match arm. Guard may be nil.
type Arm struct {
	Match Matcher
	Guard func(r *Runtime, b Bindings) (Value, error)
	Body  func(r *Runtime, b Bindings) (Value, error)
}

// Match evaluates the first arm whose pattern and guard accept scrutinee.
// A guard is evaluated only after its pattern matched; a false guard moves
// on to the next arm. When no arm accepts, ErrNonExhaustive is returned once.
func (r *Runtime) Match(scrutinee Value, arms []Arm) (Value, error) {
	for _, arm := range arms {
		b := Bindings{}
		if !arm.Match(scrutinee, b) {
			continue
		}
		if arm.Guard != nil {
			g, err := arm.Guard(r, b)
			if err != nil {
				return nil, err
			}
			ok, err := AsBool(g)
			if err != nil {
				return nil, Errorf("match guard: %v", err)
			}
			if !ok {
				continue
			}
		}
		return arm.Body(r, b)
	}
	return nil, ErrNonExhaustive
}
