// Package compiler slices a graph's live, per-tick topology into
// independently executable subgroups: Phase A advances reservoirs and
// samples routers, Phase B cuts at reservoir inputs, Phase C cuts at
// transformer inputs, and Phase D orders the resulting subgroups (or
// detects a transformer dependency cycle) per spec.md §4.4.
package compiler

import "github.com/flowsim/flowsim/rng"

// Subgroup is the smallest unit of executor work: at most one
// Transformer, plus the Reservoirs, routers, exchangers and edges
// connected to it. A subgroup can hold more than one Reservoir (for
// example, every Reservoir feeding its Transformer directly).
type Subgroup struct {
	// Elements holds every non-edge entity id (reservoir, router,
	// transformer, exchanger) that belongs to this subgroup.
	Elements map[string]bool
	// Edges holds every edge id that belongs to this subgroup.
	Edges map[string]bool
	// Converter is the id of this subgroup's single Transformer, or
	// "" if it has none.
	Converter string
	// Reservoir is the id of one of this subgroup's Reservoirs, or ""
	// if it has none. When a Transformer subgroup holds several
	// Reservoirs, which one is named here is not defined.
	Reservoir string
	// EntryEdges are the edges to start DFS traversal from: those
	// whose source is a Transformer (owned by some subgroup, possibly
	// this one) or a Reservoir. Sorted for determinism.
	EntryEdges []string
}

// ParallelGroup is one cut-at-reservoir-input connected component,
// further cut at transformer inputs into Subgroups, carrying either a
// topological execution Order (Ordered) or the Cyclic marker.
type ParallelGroup struct {
	Subgroups []*Subgroup
	// Cyclic is true when the subgroup dependency DAG has a cycle;
	// Order is meaningless in that case.
	Cyclic bool
	// Order lists indices into Subgroups in topological (producer
	// before consumer) order, valid only when !Cyclic.
	Order []int
	// CyclicTransformers holds the transformer ids participating in
	// the cycle, populated only when Cyclic.
	CyclicTransformers map[string]bool
}

// CompiledGraph is the compiler's output for one tick: an ordered
// list of parallel groups, in the order the executor should run them.
type CompiledGraph struct {
	Groups []*ParallelGroup
}

// Options configures one Compile call.
type Options struct {
	// CheckMode runs Phase A without touching node state: reservoirs
	// are not advanced, and every router's zero-weight outputs (only) are
	// disabled, leaving every feasible selection active for
	// structural analysis. Used by the checker.
	CheckMode bool
	// RNG is consulted by router sampling; required unless CheckMode.
	RNG rng.Source
}
