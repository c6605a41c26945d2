package node

import "github.com/flowsim/flowsim/expr"

// Edge is a directed connection between two non-edge elements. A
// negative Rate means "take all available" (unlimited).
type Edge struct {
	id             string
	label          string
	From           string
	To             string
	Rate           float64
	ConditionSrc   string
	condition      expr.BooleanFn
	SwapInputIndex *int // non-nil when either endpoint is an Exchanger pipe slot

	// disabled is set by the compiler during Phase A (a router's
	// non-selected outputs) and never persists across ticks.
	disabled bool
}

// NewEdge constructs an Edge with an always-true condition.
func NewEdge(id, label, from, to string, rate float64) *Edge {
	return &Edge{
		id:        id,
		label:     label,
		From:      from,
		To:        to,
		Rate:      rate,
		condition: expr.AlwaysTrue,
	}
}

func (e *Edge) ID() string          { return e.id }
func (e *Edge) Label() string       { return e.label }
func (e *Edge) SetLabel(l string)   { e.label = l }
func (e *Edge) Kind() Kind          { return KindEdge }
func (e *Edge) Unlimited() bool     { return e.Rate < 0 }
func (e *Edge) Disabled() bool      { return e.disabled }
func (e *Edge) SetDisabled(b bool)  { e.disabled = b }
func (e *Edge) SwapIndex() (int, bool) {
	if e.SwapInputIndex == nil {
		return 0, false
	}
	return *e.SwapInputIndex, true
}

// SetCondition compiles and installs the edge's forwarding guard. An
// empty source clears the condition back to always-true.
func (e *Edge) SetCondition(source string, ev expr.Evaluator) error {
	if source == "" {
		e.ConditionSrc = ""
		e.condition = expr.AlwaysTrue
		return nil
	}
	fn, err := ev.CompileBoolean(source)
	if err != nil {
		return err
	}
	e.ConditionSrc = source
	e.condition = fn
	return nil
}

// EvaluateCondition reports whether the edge's guard currently holds.
func (e *Edge) EvaluateCondition(scope expr.Scope) (bool, error) {
	if e.condition == nil {
		return true, nil
	}
	return e.condition.Eval(scope)
}

func (e *Edge) Clone() Entity {
	cp := *e
	if e.SwapInputIndex != nil {
		idx := *e.SwapInputIndex
		cp.SwapInputIndex = &idx
	}
	return &cp
}
