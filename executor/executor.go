// Package executor runs a CompiledGraph's parallel groups against a
// GraphModel, traversing each subgroup's entry edges, staging packets
// and committing them atomically at the end of the tick, per
// spec.md §4.5.
package executor

import (
	"sort"

	"github.com/flowsim/flowsim/compiler"
	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// Execute runs cg's parallel groups, in order, against gm and commits
// the resulting staged packets. gm's reservoirs and routers are
// assumed to have already been advanced by the compiler that produced
// cg (Compile does this as Phase A); Execute only drives the
// traversal and commit that follow.
func Execute(gm *graph.GraphModel, cg *compiler.CompiledGraph) error {
	scope := gm.VariableScope()
	committed := make(map[string][]node.Packet)

	for _, group := range cg.Groups {
		if group.Cyclic {
			runCyclicGroup(gm, group, scope, committed)
			continue
		}
		runOrderedGroup(gm, group, scope, committed)
	}

	return commit(gm, committed)
}

// runOrderedGroup executes a non-cyclic group's subgroups in
// topological order, feeding converter-bound packets into their
// transformer's buffer immediately so later subgroups in the same
// group observe them this tick; everything else accumulates into
// committed for the final, whole-tick commit.
func runOrderedGroup(gm *graph.GraphModel, group *compiler.ParallelGroup, scope expr.Scope, committed map[string][]node.Packet) {
	for _, idx := range group.Order {
		sg := group.Subgroups[idx]
		staged := executeSubgroup(gm, sg, scope)
		for destID, packets := range staged {
			entity, ok := gm.GetElement(destID)
			if !ok {
				continue
			}
			if t, ok := entity.(*node.Transformer); ok {
				for _, p := range packets {
					t.AddToBuffer(p.Token, p.Value)
				}
				continue
			}
			committed[destID] = append(committed[destID], packets...)
		}
	}
}

// runCyclicGroup executes every subgroup independently against the
// tick-start state (no subgroup observes another's output this tick)
// and merges their staged outputs into committed, preserving
// subgroup-list order.
func runCyclicGroup(gm *graph.GraphModel, group *compiler.ParallelGroup, scope expr.Scope, committed map[string][]node.Packet) {
	staged := make([]map[string][]node.Packet, len(group.Subgroups))
	for i, sg := range group.Subgroups {
		staged[i] = executeSubgroup(gm, sg, scope)
	}
	for _, so := range staged {
		mergeInto(committed, so)
	}
}

func mergeInto(dst, src map[string][]node.Packet) {
	for destID, packets := range src {
		dst[destID] = append(dst[destID], packets...)
	}
}

// executeSubgroup runs a depth-first edge traversal from each of sg's
// entry edges, sharing one visited-edge set across all of them
// (spec.md §4.5: a subgroup's traversal, not each entry edge's,
// guards against infinite loops through router/exchanger cycles).
func executeSubgroup(gm *graph.GraphModel, sg *compiler.Subgroup, scope expr.Scope) map[string][]node.Packet {
	visited := make(map[string]bool)
	outputs := make(map[string][]node.Packet)
	for _, entryEdgeID := range sg.EntryEdges {
		traverse(gm, entryEdgeID, nil, visited, outputs, scope)
	}
	return outputs
}

// traverse resolves one edge's packet (from its source's kind and, for
// routers/exchangers, the inbound packet carried to them) and, if a
// positive value results, dispatches it onward by the destination's
// kind.
func traverse(gm *graph.GraphModel, edgeID string, inbound *node.Packet, visited map[string]bool, outputs map[string][]node.Packet, scope expr.Scope) {
	if visited[edgeID] {
		return
	}
	visited[edgeID] = true

	entity, ok := gm.GetElement(edgeID)
	if !ok {
		return
	}
	e := entity.(*node.Edge)

	if holds, err := e.EvaluateCondition(scope); err != nil || !holds {
		return
	}

	pkt, ok := resolvePacket(gm, e, inbound, scope)
	if !ok || pkt.Value <= 0 {
		return
	}

	dispatch(gm, e, pkt, visited, outputs, scope)
}

// resolvePacket implements spec.md §4.5 step 3: derive the packet
// this edge carries from its source entity's kind.
func resolvePacket(gm *graph.GraphModel, e *node.Edge, inbound *node.Packet, scope expr.Scope) (node.Packet, bool) {
	src, ok := gm.GetElement(e.From)
	if !ok {
		return node.Packet{}, false
	}

	switch s := src.(type) {
	case *node.Reservoir:
		var value float64
		var err error
		if e.Unlimited() {
			value, err = s.TakeFromPool(s.State)
		} else {
			value, err = s.TakeFromPool(e.Rate)
		}
		if err != nil {
			return node.Packet{}, false
		}
		return node.Packet{From: s.ID(), Token: s.Token, Value: value}, true

	case *node.Transformer:
		amount := e.Rate
		if e.Unlimited() {
			max, err := s.MaximumConvertable(scope)
			if err != nil {
				return node.Packet{}, false
			}
			amount = max
		}
		value, err := s.TakeFromState(amount, scope)
		if err != nil {
			return node.Packet{}, false
		}
		return node.Packet{From: s.ID(), Token: s.Token, Value: value}, true

	case *node.Router:
		if inbound == nil {
			return node.Packet{}, false
		}
		holds, err := s.EvaluateCondition(scope)
		if err != nil || !holds {
			return node.Packet{}, false
		}
		value := inbound.Value
		if !e.Unlimited() && value > e.Rate {
			value = e.Rate
		}
		return node.Packet{From: inbound.From, Token: inbound.Token, Value: value}, true

	case *node.Exchanger:
		if inbound == nil {
			return node.Packet{}, false
		}
		token, amount, ok, err := s.Swap(inbound.Value, inbound.Token, scope)
		if err != nil || !ok {
			return node.Packet{}, false
		}
		return node.Packet{From: inbound.From, Token: token, Value: amount}, true

	default:
		return node.Packet{}, false
	}
}

// dispatch implements spec.md §4.5 step 5: route pkt onward by
// destination kind, recursing through routers/exchangers or landing
// in outputs for reservoirs and transformers.
func dispatch(gm *graph.GraphModel, e *node.Edge, pkt node.Packet, visited map[string]bool, outputs map[string][]node.Packet, scope expr.Scope) {
	dst, ok := gm.GetElement(e.To)
	if !ok {
		return
	}

	switch d := dst.(type) {
	case *node.Router:
		if d.SelectedOutput != "" {
			traverse(gm, d.SelectedOutput, &pkt, visited, outputs, scope)
		}
	case *node.Exchanger:
		if pipe, ok := d.PipeForInput(e.ID()); ok && pipe.Out != "" {
			traverse(gm, pipe.Out, &pkt, visited, outputs, scope)
		}
	case *node.Reservoir, *node.Transformer:
		outputs[d.ID()] = append(outputs[d.ID()], pkt)
	}
}

// commit applies every destination's staged packets: a Reservoir
// takes exactly one packet's value, a Transformer's buffer absorbs
// every packet addressed to it.
func commit(gm *graph.GraphModel, committed map[string][]node.Packet) error {
	destIDs := make([]string, 0, len(committed))
	for id := range committed {
		destIDs = append(destIDs, id)
	}
	sort.Strings(destIDs)

	for _, destID := range destIDs {
		packets := committed[destID]
		entity, ok := gm.GetElement(destID)
		if !ok {
			continue
		}
		switch d := entity.(type) {
		case *node.Reservoir:
			if len(packets) != 1 {
				return ErrMultiplePacketsToReservoir
			}
			if _, err := d.AddToPool(packets[0].Value); err != nil {
				return err
			}
		case *node.Transformer:
			for _, p := range packets {
				if err := d.AddToBuffer(p.Token, p.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
