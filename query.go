package tashodb

// Predicate decides whether a record matches a query. Table.Query and
// Table.QueryOne accept any Predicate — either a plain Go function wrapped
// with PredicateFunc, for in-process queries, or an expression built from
// Field/And/Or/Not, for callers that need to describe a query without
// shipping executable code.
type Predicate interface {
	Match(id Key, value *Map) bool
}

// PredicateFunc adapts a plain Go function to the Predicate interface, the
// direct analogue of an in-process closure predicate.
type PredicateFunc func(id Key, value *Map) bool

// Match calls f.
func (f PredicateFunc) Match(id Key, value *Map) bool {
	return f(id, value)
}

// Op is a comparison operator usable in a Field expression.
type Op int

const (
	// Eq matches when the field value equals Literal.
	Eq Op = iota
	// Ne matches when the field value does not equal Literal, including
	// when the field is absent.
	Ne
	// Lt, Le, Gt, Ge compare numeric field values against Literal. A
	// non-numeric field value or Literal never matches.
	Lt
	Le
	Gt
	Ge
	// Exists matches when the field is present, regardless of Literal.
	Exists
)

// Field is a leaf predicate comparing one field's value against a literal.
type Field struct {
	Name    string
	Op      Op
	Literal any
}

// Match implements Predicate.
func (f Field) Match(_ Key, value *Map) bool {
	v, ok := value.Get(f.Name)
	switch f.Op {
	case Exists:
		return ok
	case Eq:
		return ok && v == f.Literal
	case Ne:
		return !ok || v != f.Literal
	case Lt, Le, Gt, Ge:
		if !ok {
			return false
		}
		a, aok := asFloat(v)
		b, bok := asFloat(f.Literal)
		if !aok || !bok {
			return false
		}
		switch f.Op {
		case Lt:
			return a < b
		case Le:
			return a <= b
		case Gt:
			return a > b
		default:
			return a >= b
		}
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// And matches when every sub-predicate matches.
type And []Predicate

// Match implements Predicate.
func (a And) Match(id Key, value *Map) bool {
	for _, p := range a {
		if !p.Match(id, value) {
			return false
		}
	}
	return true
}

// Or matches when at least one sub-predicate matches.
type Or []Predicate

// Match implements Predicate.
func (o Or) Match(id Key, value *Map) bool {
	for _, p := range o {
		if p.Match(id, value) {
			return true
		}
	}
	return false
}

// Not matches when the wrapped predicate does not.
type Not struct {
	Predicate Predicate
}

// Match implements Predicate.
func (n Not) Match(id Key, value *Map) bool {
	return !n.Predicate.Match(id, value)
}

// All matches every record.
func All() Predicate {
	return PredicateFunc(func(Key, *Map) bool { return true })
}

// None matches no record.
func None() Predicate {
	return PredicateFunc(func(Key, *Map) bool { return false })
}
