package graph

import (
	"sort"

	"github.com/flowsim/flowsim/node"
)

// graphScope is the Scope returned by GraphModel.VariableScope: reads
// for a graph-visible label defer to the owning entity's observable
// (Reservoir.State, Edge.Rate); writes land in a local override map
// that shadows the graph and never mutates it.
type graphScope struct {
	graph    *GraphModel
	override map[string]float64
}

// VariableScope returns a fresh Scope over the graph's current state.
// Reservoirs expose "state", edges expose "rate"; other kinds are not
// directly observable by label.
func (g *GraphModel) VariableScope() *graphScope {
	return &graphScope{graph: g, override: make(map[string]float64)}
}

func (s *graphScope) graphValue(name string) (float64, bool) {
	entity, ok := s.graph.GetElementByLabel(name)
	if !ok {
		return 0, false
	}
	switch e := entity.(type) {
	case *node.Reservoir:
		return e.State, true
	case *node.Edge:
		return e.Rate, true
	default:
		return 0, false
	}
}

func (s *graphScope) Get(name string) (float64, bool) {
	if v, ok := s.override[name]; ok {
		return v, true
	}
	return s.graphValue(name)
}

func (s *graphScope) Set(name string, value float64) {
	s.override[name] = value
}

func (s *graphScope) Has(name string) bool {
	if _, ok := s.override[name]; ok {
		return true
	}
	_, ok := s.graphValue(name)
	return ok
}

func (s *graphScope) Keys() []string {
	seen := make(map[string]bool)
	for k := range s.override {
		seen[k] = true
	}
	for label, id := range s.graph.labels {
		switch s.graph.elements[id].(type) {
		case *node.Reservoir, *node.Edge:
			seen[label] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
