package compiler

import (
	"sort"

	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// rawComponent is an intermediate connected-component result: a set
// of non-edge entity ids and a set of edge ids, before it is turned
// into a Subgroup (Phase C) or handed to Phase C as one parallel
// group's worth of candidates (Phase B).
type rawComponent struct {
	Elements map[string]bool
	Edges    map[string]bool
}

// minKey returns the component's lexicographically smallest member
// id, used only to produce a deterministic ordering of components.
func (c *rawComponent) minKey() string {
	min := ""
	for id := range c.Elements {
		if min == "" || id < min {
			min = id
		}
	}
	for id := range c.Edges {
		if min == "" || id < min {
			min = id
		}
	}
	return min
}

// attachRule decides whether edge e attaches its owning component to
// entity (the edge's source when isDest is false, its destination
// when true), and if so, the union-find key to attach to.
type attachRule func(entity node.Entity, e *node.Edge, isDest bool) (key string, attach bool)

// phaseBAttach implements the Phase B cut: a Reservoir's input edge
// is not a neighbor (the cut); everything else's both sides are,
// except an Exchanger exposes only the specific pipe slot the edge
// occupies, and an edge into a Reservoir is cut from the destination
// side regardless of the edge's own rule (mirrored rule, stated
// explicitly in spec.md as the Edge rule).
func phaseBAttach(entity node.Entity, e *node.Edge, isDest bool) (string, bool) {
	switch v := entity.(type) {
	case *node.Reservoir:
		if isDest {
			return "", false
		}
		return v.ID(), true
	case *node.Router:
		return v.ID(), true
	case *node.Transformer:
		return v.ID(), true
	case *node.Exchanger:
		return exchangerPipeKey(v, e), true
	default:
		return "", false
	}
}

// phaseCAttach implements the additional Phase C cut: a Transformer's
// output edge no longer connects back to it (only its input edges
// still do); every other rule matches Phase B.
func phaseCAttach(entity node.Entity, e *node.Edge, isDest bool) (string, bool) {
	if t, ok := entity.(*node.Transformer); ok {
		if !isDest {
			return "", false
		}
		return t.ID(), true
	}
	return phaseBAttach(entity, e, isDest)
}

func exchangerPipeKey(x *node.Exchanger, e *node.Edge) string {
	idx, ok := e.SwapIndex()
	if !ok {
		idx = 0
	}
	return "pipe:" + x.ID() + "#" + itoa(idx)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// computeComponents partitions nodeIDs/edgeIDs into connected
// components under rule, returning them in a deterministic order.
func computeComponents(gm *graph.GraphModel, nodeIDs, edgeIDs map[string]bool, rule attachRule) []*rawComponent {
	uf := newUnionFind()
	for id := range nodeIDs {
		uf.add(id)
	}
	for eid := range edgeIDs {
		uf.add(edgeKey(eid))
	}

	for eid := range edgeIDs {
		entity, _ := gm.GetElement(eid)
		e := entity.(*node.Edge)

		if src, ok := gm.GetElement(e.From); ok {
			if key, attach := rule(src, e, false); attach {
				uf.add(key)
				uf.union(edgeKey(eid), key)
			}
		}
		if dst, ok := gm.GetElement(e.To); ok {
			if key, attach := rule(dst, e, true); attach {
				uf.add(key)
				uf.union(edgeKey(eid), key)
			}
		}
	}

	byRoot := make(map[string]*rawComponent)
	rootOf := func(root string) *rawComponent {
		c, ok := byRoot[root]
		if !ok {
			c = &rawComponent{Elements: make(map[string]bool), Edges: make(map[string]bool)}
			byRoot[root] = c
		}
		return c
	}
	for id := range nodeIDs {
		rootOf(uf.find(id)).Elements[id] = true
	}
	for eid := range edgeIDs {
		rootOf(uf.find(edgeKey(eid))).Edges[eid] = true
	}

	components := make([]*rawComponent, 0, len(byRoot))
	for _, c := range byRoot {
		components = append(components, c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].minKey() < components[j].minKey() })
	return components
}

func edgeKey(id string) string { return "e:" + id }
