package compiler

import (
	"sort"

	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// Compile runs Phases A through D over gm's current state and
// returns the resulting CompiledGraph. In CheckMode reservoirs are
// left untouched and router selection is not sampled; only each
// edge's per-tick disabled mark is rewritten (see activate).
func Compile(gm *graph.GraphModel, opts Options) (*CompiledGraph, error) {
	disabledEdges, err := activate(gm, opts)
	if err != nil {
		return nil, err
	}

	allNodeIDs := make(map[string]bool)
	allEdgeIDs := make(map[string]bool)
	for id, e := range gm.Elements() {
		if e.Kind() == node.KindEdge {
			if !disabledEdges[id] {
				allEdgeIDs[id] = true
			}
			continue
		}
		allNodeIDs[id] = true
	}

	phaseBComponents := computeComponents(gm, allNodeIDs, allEdgeIDs, phaseBAttach)

	cg := &CompiledGraph{}
	for _, pb := range phaseBComponents {
		subComponents := computeComponents(gm, pb.Elements, pb.Edges, phaseCAttach)

		group := &ParallelGroup{Subgroups: make([]*Subgroup, 0, len(subComponents))}
		for _, sc := range subComponents {
			group.Subgroups = append(group.Subgroups, &Subgroup{
				Elements: sc.Elements,
				Edges:    sc.Edges,
			})
		}
		finalizeOrder(gm, group)
		cg.Groups = append(cg.Groups, group)
	}

	sort.Slice(cg.Groups, func(i, j int) bool {
		return groupMinKey(cg.Groups[i]) < groupMinKey(cg.Groups[j])
	})
	return cg, nil
}

func groupMinKey(g *ParallelGroup) string {
	min := ""
	for _, sg := range g.Subgroups {
		for id := range sg.Elements {
			if min == "" || id < min {
				min = id
			}
		}
		for id := range sg.Edges {
			if min == "" || id < min {
				min = id
			}
		}
	}
	return min
}
