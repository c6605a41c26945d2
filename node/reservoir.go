package node

import "github.com/flowsim/flowsim/expr"

// Reservoir holds a non-negative quantity bounded by an optional
// capacity. A negative capacity means unbounded.
type Reservoir struct {
	id    string
	label string

	Token    string
	State    float64
	Capacity float64 // negative = unbounded

	ActionSrc    string
	ConditionSrc string
	action       expr.NumericFn
	condition    expr.BooleanFn

	InEdge  string // "" = none
	OutEdge string // "" = none
}

// NewReservoir constructs a Reservoir with state 0, unbounded
// capacity, an identity action (advancing leaves state unchanged) and
// an always-true condition.
func NewReservoir(id, label, token string) *Reservoir {
	return &Reservoir{
		id:        id,
		label:     label,
		Token:     token,
		Capacity:  -1,
		action:    expr.Identity,
		condition: expr.AlwaysTrue,
	}
}

func (r *Reservoir) ID() string        { return r.id }
func (r *Reservoir) Label() string     { return r.label }
func (r *Reservoir) SetLabel(l string) { r.label = l }
func (r *Reservoir) Kind() Kind        { return KindReservoir }
func (r *Reservoir) Unbounded() bool   { return r.Capacity < 0 }

func (r *Reservoir) clampState(x float64) float64 {
	if x < 0 {
		x = 0
	}
	if !r.Unbounded() && x > r.Capacity {
		x = r.Capacity
	}
	return x
}

// AddToPool adds delta (>=0) to state, clamped by capacity. Returns
// the amount actually added.
func (r *Reservoir) AddToPool(delta float64) (float64, error) {
	if delta < 0 {
		return 0, ErrNegativeAmount
	}
	before := r.State
	r.State = r.clampState(r.State + delta)
	return r.State - before, nil
}

// TakeFromPool removes delta (>=0) from state, clamped at zero.
// Returns the amount actually taken.
func (r *Reservoir) TakeFromPool(delta float64) (float64, error) {
	if delta < 0 {
		return 0, ErrNegativeAmount
	}
	before := r.State
	r.State = r.clampState(r.State - delta)
	return before - r.State, nil
}

// SetState forces state to x, clamped into [0, capacity].
func (r *Reservoir) SetState(x float64) {
	r.State = r.clampState(x)
}

// SetCapacity updates capacity, truncating state if it now exceeds
// the new bound. Negative means unbounded.
func (r *Reservoir) SetCapacity(c float64) {
	r.Capacity = c
	r.State = r.clampState(r.State)
}

// SetAction compiles and installs the reservoir's per-tick action
// formula. An empty source installs the identity action (no-op).
func (r *Reservoir) SetAction(source string, ev expr.Evaluator) error {
	if source == "" {
		r.ActionSrc = ""
		r.action = expr.Identity
		return nil
	}
	fn, err := ev.CompileNumeric(source)
	if err != nil {
		return err
	}
	r.ActionSrc = source
	r.action = fn
	return nil
}

// SetCondition compiles and installs the guard gating Action.
func (r *Reservoir) SetCondition(source string, ev expr.Evaluator) error {
	if source == "" {
		r.ConditionSrc = ""
		r.condition = expr.AlwaysTrue
		return nil
	}
	fn, err := ev.CompileBoolean(source)
	if err != nil {
		return err
	}
	r.ConditionSrc = source
	r.condition = fn
	return nil
}

// Advance runs one tick of reservoir state evolution: it publishes
// the current state as scope["x"], then, if the condition holds,
// replaces state with the action's result (re-clamped).
func (r *Reservoir) Advance(scope expr.Scope) error {
	scope.Set("x", r.State)
	if r.condition == nil {
		return nil
	}
	ok, err := r.condition.Eval(scope)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if r.action == nil {
		return nil
	}
	next, err := r.action.Eval(scope)
	if err != nil {
		return err
	}
	r.State = r.clampState(next)
	return nil
}

func (r *Reservoir) Clone() Entity {
	cp := *r
	return &cp
}
