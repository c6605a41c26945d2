package compiler

import (
	"sort"

	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// finalizeOrder computes each subgroup's Converter/Reservoir/
// EntryEdges, builds the producer->consumer DAG over subgroup
// indices, and topologically sorts it via Kahn's algorithm. On a
// cycle the group is marked Cyclic and CyclicTransformers collects
// the participating transformer ids.
func finalizeOrder(gm *graph.GraphModel, group *ParallelGroup) {
	for _, sg := range group.Subgroups {
		for id := range sg.Elements {
			entity, _ := gm.GetElement(id)
			switch entity.(type) {
			case *node.Transformer:
				sg.Converter = id
			case *node.Reservoir:
				sg.Reservoir = id
			}
		}

		var entries []string
		for eid := range sg.Edges {
			entity, _ := gm.GetElement(eid)
			e := entity.(*node.Edge)
			src, ok := gm.GetElement(e.From)
			if !ok {
				continue
			}
			switch src.(type) {
			case *node.Transformer, *node.Reservoir:
				entries = append(entries, eid)
			}
		}
		sort.Strings(entries)
		sg.EntryEdges = entries
	}

	ownerOf := make(map[string]int, len(group.Subgroups))
	for i, sg := range group.Subgroups {
		if sg.Converter != "" {
			ownerOf[sg.Converter] = i
		}
	}

	blocks := make([][]int, len(group.Subgroups))
	inDeg := make([]int, len(group.Subgroups))
	seenEdge := make(map[[2]int]bool)
	for i, sg := range group.Subgroups {
		for _, eid := range sg.EntryEdges {
			entity, _ := gm.GetElement(eid)
			e := entity.(*node.Edge)
			src, _ := gm.GetElement(e.From)
			t, ok := src.(*node.Transformer)
			if !ok {
				continue
			}
			owner, ok := ownerOf[t.ID()]
			if !ok || owner == i {
				continue
			}
			key := [2]int{owner, i}
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			blocks[owner] = append(blocks[owner], i)
			inDeg[i]++
		}
	}

	var queue []int
	for i := range group.Subgroups {
		if inDeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	var order []int
	for len(queue) > 0 {
		sort.Ints(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range blocks[id] {
			inDeg[next]--
			if inDeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(group.Subgroups) {
		group.Cyclic = true
		group.CyclicTransformers = make(map[string]bool)
		processed := make(map[int]bool, len(order))
		for _, i := range order {
			processed[i] = true
		}
		for i, sg := range group.Subgroups {
			if !processed[i] && sg.Converter != "" {
				group.CyclicTransformers[sg.Converter] = true
			}
		}
		return
	}

	group.Order = order
}
