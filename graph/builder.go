package graph

import (
	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/node"
)

// Builder provides a fluent API for constructing a GraphModel,
// chaining node and edge creation with auto-generated ids and labels
// where the caller doesn't care.
//
// Example:
//
//	gm, err := graph.Build(ev).
//	    Reservoir("P0", 10).
//	    Reservoir("P1", 0).
//	    Edge("P0", "P1", 1).
//	    Done()
type Builder struct {
	gm  *GraphModel
	err error
}

// Build starts a new Builder over a fresh GraphModel using ev to
// compile any conditions/actions set through the builder.
func Build(ev expr.Evaluator) *Builder {
	return &Builder{gm: New(ev)}
}

// Reservoir adds a reservoir with the given label and initial state.
func (b *Builder) Reservoir(label string, initial float64) *Builder {
	if b.err != nil {
		return b
	}
	entity, err := b.gm.AddNode(node.KindReservoir, "", label, "")
	if err != nil {
		b.err = err
		return b
	}
	entity.(*node.Reservoir).SetState(initial)
	return b
}

// ReservoirWithCapacity adds a reservoir with an explicit capacity
// (negative means unbounded).
func (b *Builder) ReservoirWithCapacity(label string, initial, capacity float64) *Builder {
	if b.err != nil {
		return b
	}
	entity, err := b.gm.AddNode(node.KindReservoir, "", label, "")
	if err != nil {
		b.err = err
		return b
	}
	r := entity.(*node.Reservoir)
	r.SetCapacity(capacity)
	r.SetState(initial)
	return b
}

// Router adds a router with the given label and no outputs yet.
func (b *Builder) Router(label string) *Builder {
	if b.err != nil {
		return b
	}
	_, err := b.gm.AddNode(node.KindRouter, "", label, "")
	if err != nil {
		b.err = err
	}
	return b
}

// Transformer adds a transformer with the given label.
func (b *Builder) Transformer(label string) *Builder {
	if b.err != nil {
		return b
	}
	_, err := b.gm.AddNode(node.KindTransformer, "", label, "")
	if err != nil {
		b.err = err
	}
	return b
}

// Exchanger adds an exchanger and configures its constant-product
// pair in one step.
func (b *Builder) Exchanger(label, tokenA, tokenB string, amountA, amountB float64) *Builder {
	if b.err != nil {
		return b
	}
	entity, err := b.gm.AddNode(node.KindExchanger, "", label, "")
	if err != nil {
		b.err = err
		return b
	}
	if err := entity.(*node.Exchanger).Configure(tokenA, tokenB, amountA, amountB); err != nil {
		b.err = err
	}
	return b
}

// Edge connects the elements labeled from/to with a rated edge
// (negative rate means unlimited).
func (b *Builder) Edge(from, to string, rate float64) *Builder {
	if b.err != nil {
		return b
	}
	fromID, ok := b.gm.labels[from]
	if !ok {
		b.err = ErrUnknownEndpoint
		return b
	}
	toID, ok := b.gm.labels[to]
	if !ok {
		b.err = ErrUnknownEndpoint
		return b
	}
	_, err := b.gm.AddEdge("", fromID, toID, "", rate, nil)
	if err != nil {
		b.err = err
	}
	return b
}

// SwapEdge connects from/to at the given exchanger pipe slot.
func (b *Builder) SwapEdge(from, to string, rate float64, pipeIndex int) *Builder {
	if b.err != nil {
		return b
	}
	fromID, ok := b.gm.labels[from]
	if !ok {
		b.err = ErrUnknownEndpoint
		return b
	}
	toID, ok := b.gm.labels[to]
	if !ok {
		b.err = ErrUnknownEndpoint
		return b
	}
	idx := pipeIndex
	_, err := b.gm.AddEdge("", fromID, toID, "", rate, &idx)
	if err != nil {
		b.err = err
	}
	return b
}

// Err returns the first error encountered by any builder step, if
// any.
func (b *Builder) Err() error { return b.err }

// Done returns the completed GraphModel, or the first error
// encountered during construction.
func (b *Builder) Done() (*GraphModel, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.gm, nil
}
