// Package expr defines the contract flowsim uses to evaluate the
// per-node guard and action formulas attached to reservoirs, routers,
// transformers and exchangers. The actual expression language is an
// external collaborator: flowsim only depends on the Scope and
// Evaluator interfaces below, plus the default implementation in this
// package, which the graph, compiler and executor packages never
// require.
package expr

// Scope is the variable context consulted by an Evaluator. Reads
// defer to live graph state (a label resolves to the observable of
// the entity that owns it); writes are cached locally and never
// mutate the underlying graph.
type Scope interface {
	// Get returns the current value bound to name and whether it is
	// defined. Graph-visible labels are read-through; values written
	// with Set shadow the graph-visible value until the scope is
	// discarded.
	Get(name string) (float64, bool)
	// Set writes a local value, visible to subsequent Get calls on
	// this scope. It never mutates the graph.
	Set(name string, value float64)
	// Has reports whether name resolves to a value, graph-backed or
	// locally cached.
	Has(name string) bool
	// Keys returns the union of graph-visible and locally cached
	// names. Order is unspecified.
	Keys() []string
}

// NumericFn is a compiled expression producing a float64 result.
type NumericFn interface {
	Eval(scope Scope) (float64, error)
}

// BooleanFn is a compiled expression producing a bool result.
type BooleanFn interface {
	Eval(scope Scope) (bool, error)
}

// Evaluator compiles source text into executable Fns. Statement
// separators within source are newline or semicolon; the final
// statement's value is the result.
type Evaluator interface {
	CompileNumeric(source string) (NumericFn, error)
	CompileBoolean(source string) (BooleanFn, error)
}

// AlwaysTrue is a BooleanFn that never fails and always returns true,
// used as the default condition for entities that don't specify one.
var AlwaysTrue BooleanFn = alwaysTrue{}

type alwaysTrue struct{}

func (alwaysTrue) Eval(Scope) (bool, error) { return true, nil }

// Zero is a NumericFn that always evaluates to 0.
var Zero NumericFn = zeroFn{}

type zeroFn struct{}

func (zeroFn) Eval(Scope) (float64, error) { return 0, nil }

// Identity is a NumericFn that returns scope["x"] unchanged (0 if
// unset), used as the default action for a Reservoir that hasn't
// configured one: advancing it leaves state exactly where takeFromPool/
// addToPool put it rather than resetting it every tick.
var Identity NumericFn = identityFn{}

type identityFn struct{}

func (identityFn) Eval(scope Scope) (float64, error) {
	v, _ := scope.Get("x")
	return v, nil
}

// MapScope is a minimal Scope backed by a plain map, useful in tests.
// graph.GraphModel's VariableScope does not use it; that scope keeps
// its own override map over a read-through graph view.
type MapScope struct {
	values map[string]float64
}

// NewMapScope creates an empty MapScope.
func NewMapScope() *MapScope {
	return &MapScope{values: make(map[string]float64)}
}

func (s *MapScope) Get(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *MapScope) Set(name string, value float64) {
	s.values[name] = value
}

func (s *MapScope) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *MapScope) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
