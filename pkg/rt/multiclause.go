package rt

// applyMulti applies every clause of an overload set to arg.
//
// Clauses that reject the argument with a non-exhaustive match are skipped.
// Among successful results callables take precedence: one callable is
// returned as is, several are regrouped into a narrower overload set so the
// next argument keeps dispatching. Otherwise the first result wins.
func (r *Runtime) applyMulti(m *MultiClause, arg Value) (Value, error) {
	var results []Value
	matchFailures := 0
	var lastErr error

	for _, clause := range m.Clauses {
		v, err := r.applyOne(clause, arg)
		switch {
		case err == nil:
			results = append(results, v)
		case IsNonExhaustive(err):
			matchFailures++
		default:
			lastErr = err
		}
	}

	if len(results) > 0 {
		var callable []Value
		for _, v := range results {
			if Callable(v) {
				callable = append(callable, v)
			}
		}
		switch len(callable) {
		case 0:
			return results[0], nil
		case 1:
			return callable[0], nil
		default:
			return &MultiClause{Clauses: callable}, nil
		}
	}

	if matchFailures > 0 && lastErr == nil {
		return nil, ErrNonExhaustive
	}
	if lastErr == nil {
		return nil, Errorf("no matching clause")
	}
	return nil, lastErr
}
