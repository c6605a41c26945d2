package compiler

import (
	"testing"

	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
	"github.com/flowsim/flowsim/rng"
)

// dfsPostOrder computes a topological order over blocks (adjacency:
// blocks[i] lists subgroups that depend on i) via DFS postorder then
// reversal, the shape used by
// other_examples/ZacxDev-generooni__dag_manager.go's TopologicalSort.
// It is a cross-check against finalizeOrder's Kahn's-algorithm result,
// not a replacement for it: two different algorithms over the same
// DAG must agree on every pairwise ordering constraint even if they
// disagree on the exact sequence among unrelated subgroups.
func dfsPostOrder(n int, blocks [][]int) []int {
	visited := make([]bool, n)
	var order []int
	var visit func(int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, dep := range blocks[i] {
			visit(dep)
		}
		order = append(order, i)
	}
	for i := 0; i < n; i++ {
		visit(i)
	}
	// blocks[i] lists i's dependents (things that must run after i),
	// so postorder lists consumers before producers; reverse it.
	for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
		order[l], order[r] = order[r], order[l]
	}
	return order
}

// rebuildBlocks mirrors finalizeOrder's DAG construction so the test
// can run an independent ordering algorithm over the same edges.
func rebuildBlocks(gm *graph.GraphModel, group *ParallelGroup) [][]int {
	ownerOf := make(map[string]int, len(group.Subgroups))
	for i, sg := range group.Subgroups {
		if sg.Converter != "" {
			ownerOf[sg.Converter] = i
		}
	}
	blocks := make([][]int, len(group.Subgroups))
	seen := make(map[[2]int]bool)
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
			if seen[key] {
				continue
			}
			seen[key] = true
			blocks[owner] = append(blocks[owner], i)
		}
	}
	return blocks
}

func positionOf(order []int, v int) int {
	for pos, x := range order {
		if x == v {
			return pos
		}
	}
	return -1
}

func TestFinalizeOrderAgreesWithDFSPostorderCrossCheck(t *testing.T) {
	gm := transformerRouterGraph(t)
	cg, err := Compile(gm, Options{RNG: rng.New(1)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	for _, group := range cg.Groups {
		if group.Cyclic {
			continue
		}
		blocks := rebuildBlocks(gm, group)
		dfsOrder := dfsPostOrder(len(group.Subgroups), blocks)

		for owner, deps := range blocks {
			for _, consumer := range deps {
				if positionOf(group.Order, owner) >= positionOf(group.Order, consumer) {
					t.Errorf("Kahn order violates owner(%d) before consumer(%d): %v", owner, consumer, group.Order)
				}
				if positionOf(dfsOrder, owner) >= positionOf(dfsOrder, consumer) {
					t.Errorf("DFS-postorder cross-check violates owner(%d) before consumer(%d): %v", owner, consumer, dfsOrder)
				}
			}
		}
	}
}

func TestFinalizeOrderDetectsTransformerDependencyCycle(t *testing.T) {
	// Two transformers whose outputs feed each other's inputs through
	// routers: C0 -> G0 -> C1, C1 -> G1 -> C0. Neither can run first.
	gm := graph.New(expr.DefaultEvaluator{})
	gm.AddNode(node.KindTransformer, "c0", "C0", "wool")
	gm.AddNode(node.KindTransformer, "c1", "C1", "yarn")
	gm.AddNode(node.KindRouter, "g0", "G0", "")
	gm.AddNode(node.KindRouter, "g1", "G1", "")
	gm.AddEdge("", "c0", "g0", "", 1, nil)
	gm.AddEdge("g0c1", "g0", "c1", "", -1, nil)
	gm.AddEdge("", "c1", "g1", "", 1, nil)
	gm.AddEdge("g1c0", "g1", "c0", "", -1, nil)
	gm.SetGateOutputWeight("g0", "g0c1", 1)
	gm.SetGateOutputWeight("g1", "g1c0", 1)
	gm.SetConverterRequiredInputPerUnit("c0", "yarn", 1)
	gm.SetConverterRequiredInputPerUnit("c1", "wool", 1)

	cg, err := Compile(gm, Options{RNG: rng.New(1)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	found := false
	for _, group := range cg.Groups {
		if group.Cyclic {
			found = true
			if !group.CyclicTransformers["c0"] || !group.CyclicTransformers["c1"] {
				t.Errorf("CyclicTransformers = %v, want both c0 and c1", group.CyclicTransformers)
			}
		}
	}
	if !found {
		t.Fatalf("no Cyclic parallel group detected for mutually-dependent transformers")
	}
}
