package compiler

import (
	"sort"

	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// activate runs Phase A over every element once: reservoirs advance
// (unless CheckMode), routers sample (or, in CheckMode, leave every
// positive-weight output active simultaneously), and non-selected
// router outputs are marked disabled. It returns the set of edge ids
// disabled by this pass; the active set for Phase B/C is every
// element minus these edges.
func activate(gm *graph.GraphModel, opts Options) (map[string]bool, error) {
	elements := gm.Elements()

	// Edge disabled-ness is recomputed fresh every Compile call, so
	// clear any stale marks left by a previous tick before recomputing.
	var edges []*node.Edge
	var reservoirs []*node.Reservoir
	var routers []*node.Router
	for _, e := range elements {
		switch v := e.(type) {
		case *node.Edge:
			v.SetDisabled(false)
			edges = append(edges, v)
		case *node.Reservoir:
			reservoirs = append(reservoirs, v)
		case *node.Router:
			routers = append(routers, v)
		}
	}
	sort.Slice(reservoirs, func(i, j int) bool { return reservoirs[i].ID() < reservoirs[j].ID() })
	sort.Slice(routers, func(i, j int) bool { return routers[i].ID() < routers[j].ID() })

	if !opts.CheckMode {
		scope := gm.VariableScope()
		for _, r := range reservoirs {
			if err := r.Advance(scope); err != nil {
				return nil, err
			}
		}
	}

	for _, r := range routers {
		if opts.CheckMode {
			for _, eid := range r.Outputs() {
				edge, _ := gm.GetElement(eid)
				edge.(*node.Edge).SetDisabled(r.Weight(eid) <= 0)
			}
			continue
		}
		r.Advance(opts.RNG)
		for _, eid := range r.Outputs() {
			edge, _ := gm.GetElement(eid)
			edge.(*node.Edge).SetDisabled(eid != r.SelectedOutput)
		}
	}

	disabled := make(map[string]bool)
	for _, e := range edges {
		if e.Disabled() {
			disabled[e.ID()] = true
		}
	}
	return disabled, nil
}
