package node

import (
	"sort"

	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/rng"
)

// Router samples exactly one of its output edges each tick, weighted
// by non-negative per-edge weights.
type Router struct {
	id    string
	label string

	weights      map[string]float64 // edge id -> weight
	InEdge       string
	ConditionSrc string
	condition    expr.BooleanFn

	SelectedOutput string // "" = none, set by Advance
}

// NewRouter constructs a Router with no outputs and an always-true
// condition.
func NewRouter(id, label string) *Router {
	return &Router{
		id:        id,
		label:     label,
		weights:   make(map[string]float64),
		condition: expr.AlwaysTrue,
	}
}

func (g *Router) ID() string        { return g.id }
func (g *Router) Label() string     { return g.label }
func (g *Router) SetLabel(l string) { g.label = l }
func (g *Router) Kind() Kind        { return KindRouter }

// Weight returns the current weight for an output edge (0 if unset).
func (g *Router) Weight(edgeID string) float64 {
	return g.weights[edgeID]
}

// SetWeight installs a non-negative weight for an output edge. The
// caller is responsible for verifying edgeID is actually one of this
// router's output edges; GraphModel enforces that invariant.
func (g *Router) SetWeight(edgeID string, weight float64) error {
	if weight < 0 {
		return ErrNegativeAmount
	}
	g.weights[edgeID] = weight
	return nil
}

// RemoveWeight drops an output edge's weight entry entirely, used
// when the edge is deleted.
func (g *Router) RemoveWeight(edgeID string) {
	delete(g.weights, edgeID)
}

// Outputs returns the router's output edge ids in a deterministic
// (sorted) order, which is also the order weighted selection uses.
func (g *Router) Outputs() []string {
	ids := make([]string, 0, len(g.weights))
	for id := range g.weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetCondition compiles and installs the router's forwarding guard.
func (g *Router) SetCondition(source string, ev expr.Evaluator) error {
	if source == "" {
		g.ConditionSrc = ""
		g.condition = expr.AlwaysTrue
		return nil
	}
	fn, err := ev.CompileBoolean(source)
	if err != nil {
		return err
	}
	g.ConditionSrc = source
	g.condition = fn
	return nil
}

// EvaluateCondition reports whether the router currently forwards.
func (g *Router) EvaluateCondition(scope expr.Scope) (bool, error) {
	if g.condition == nil {
		return true, nil
	}
	return g.condition.Eval(scope)
}

// Advance samples SelectedOutput using weighted selection over the
// router's outputs in deterministic (sorted-by-id) order. All weights
// zero, or no outputs, leaves SelectedOutput empty.
func (g *Router) Advance(src rng.Source) {
	ids := g.Outputs()
	weights := make([]float64, len(ids))
	for i, id := range ids {
		weights[i] = g.weights[id]
	}
	idx, ok := rng.WeightedSelect(src, weights)
	if !ok {
		g.SelectedOutput = ""
		return
	}
	g.SelectedOutput = ids[idx]
}

func (g *Router) Clone() Entity {
	cp := *g
	cp.weights = make(map[string]float64, len(g.weights))
	for k, v := range g.weights {
		cp.weights[k] = v
	}
	return &cp
}
