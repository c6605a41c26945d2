// Package graph implements GraphModel: the entity store, label/id
// indices, and edit operations (add/delete/reconnect) that preserve
// spec invariants over a live flowsim topology. It depends only on
// node and expr; compiler, executor and checker depend on it, never
// the reverse.
package graph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/node"
)

// GraphModel is the arena holding every element (node or edge) by id,
// with a bijective label index and per-kind auto-label counters. It
// is the single source of truth for the bidirectional node<->edge
// links described by id, never by pointer.
type GraphModel struct {
	elements     map[string]node.Entity
	labels       map[string]string // label -> id
	autoCounters map[node.Kind]int
	evaluator    expr.Evaluator
}

// New constructs an empty GraphModel. ev compiles the condition and
// action expressions attached to nodes and edges.
func New(ev expr.Evaluator) *GraphModel {
	return &GraphModel{
		elements:     make(map[string]node.Entity),
		labels:       make(map[string]string),
		autoCounters: make(map[node.Kind]int),
		evaluator:    ev,
	}
}

// Evaluator returns the expression evaluator this graph was built
// with, so callers compiling fresh sources (e.g. after fromJSON) use
// the same one.
func (g *GraphModel) Evaluator() expr.Evaluator { return g.evaluator }

// GetElement looks up an element by id.
func (g *GraphModel) GetElement(id string) (node.Entity, bool) {
	e, ok := g.elements[id]
	return e, ok
}

// GetElementByLabel looks up an element by label.
func (g *GraphModel) GetElementByLabel(label string) (node.Entity, bool) {
	id, ok := g.labels[label]
	if !ok {
		return nil, false
	}
	e, ok := g.elements[id]
	return e, ok
}

// Elements returns every element currently in the graph. The caller
// must not retain the returned map past the next mutation.
func (g *GraphModel) Elements() map[string]node.Entity { return g.elements }

// AutoCounter returns the current auto-label counter for kind (0 if
// never used), read by serialize.ToJSON so a fromJSON'd graph won't
// collide with labels minted before it was saved.
func (g *GraphModel) AutoCounter(kind node.Kind) int { return g.autoCounters[kind] }

// SetAutoCounter installs kind's auto-label counter, used by
// serialize.FromJSON to restore the value a saved graph had reached.
func (g *GraphModel) SetAutoCounter(kind node.Kind, n int) { g.autoCounters[kind] = n }

func (g *GraphModel) nextAutoLabel(kind node.Kind) string {
	for {
		g.autoCounters[kind]++
		label := fmt.Sprintf("%s$%d", kind.String(), g.autoCounters[kind])
		if _, taken := g.labels[label]; !taken {
			return label
		}
	}
}

func (g *GraphModel) reserveLabel(label string) error {
	if !expr.ValidIdentifier(label) {
		return ErrInvalidLabel
	}
	if _, taken := g.labels[label]; taken {
		return ErrDuplicateLabel
	}
	return nil
}

// AddNode creates a new Reservoir, Router, Transformer or Exchanger.
// An empty id auto-generates a uuid; an empty label auto-generates
// "<kind>$<n>". kind must not be node.KindEdge (use AddEdge).
func (g *GraphModel) AddNode(kind node.Kind, id, label, token string) (node.Entity, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := g.elements[id]; exists {
		return nil, ErrIDExists
	}
	if label == "" {
		label = g.nextAutoLabel(kind)
	} else if err := g.reserveLabel(label); err != nil {
		return nil, err
	}

	if token == "" {
		token = label + "_token"
	}
	if (kind == node.KindReservoir || kind == node.KindTransformer) && !expr.ValidIdentifier(token) {
		return nil, ErrInvalidToken
	}

	var entity node.Entity
	switch kind {
	case node.KindReservoir:
		entity = node.NewReservoir(id, label, token)
	case node.KindRouter:
		entity = node.NewRouter(id, label)
	case node.KindTransformer:
		entity = node.NewTransformer(id, label, token)
	case node.KindExchanger:
		entity = node.NewExchanger(id, label)
	default:
		return nil, fmt.Errorf("graph: AddNode does not accept kind %v", kind)
	}

	g.elements[id] = entity
	g.labels[label] = id
	return entity, nil
}

// AddEdge connects from -> to. rate may be negative ("unlimited").
// swapInputIndex is required when either endpoint is an Exchanger and
// ignored otherwise. Connecting an edge that would exceed an
// endpoint's single-slot cardinality displaces the previous occupant
// (invariant 3).
func (g *GraphModel) AddEdge(id, from, to, label string, rate float64, swapInputIndex *int) (*node.Edge, error) {
	srcEntity, ok := g.elements[from]
	if !ok {
		return nil, ErrUnknownEndpoint
	}
	dstEntity, ok := g.elements[to]
	if !ok {
		return nil, ErrUnknownEndpoint
	}
	if from == to {
		return nil, ErrSelfLoop
	}
	if srcEntity.Kind() == node.KindEdge {
		return nil, ErrEdgeFromEdge
	}
	if dstEntity.Kind() == node.KindEdge {
		return nil, ErrEdgeToEdge
	}

	needsSwapIndex := srcEntity.Kind() == node.KindExchanger || dstEntity.Kind() == node.KindExchanger
	if needsSwapIndex && swapInputIndex == nil {
		return nil, ErrMissingSwapIndex
	}

	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := g.elements[id]; exists {
		return nil, ErrEdgeIDExists
	}
	if label == "" {
		label = g.nextAutoLabel(node.KindEdge)
	} else if err := g.reserveLabel(label); err != nil {
		return nil, err
	}

	e := node.NewEdge(id, label, from, to, rate)
	if swapInputIndex != nil {
		idx := *swapInputIndex
		e.SwapInputIndex = &idx
	}

	if err := g.attachOutput(srcEntity, e); err != nil {
		return nil, err
	}
	if err := g.attachInput(dstEntity, e); err != nil {
		return nil, err
	}

	g.elements[id] = e
	g.labels[label] = id
	return e, nil
}

// attachOutput wires e into src's outgoing slot, displacing any
// previous occupant per invariant 3.
func (g *GraphModel) attachOutput(src node.Entity, e *node.Edge) error {
	switch s := src.(type) {
	case *node.Reservoir:
		g.displaceEdge(s.OutEdge)
		s.OutEdge = e.ID()
	case *node.Router:
		s.SetWeight(e.ID(), 0)
	case *node.Transformer:
		g.displaceEdge(s.OutputEdge)
		s.OutputEdge = e.ID()
	case *node.Exchanger:
		idx := 0
		if e.SwapInputIndex != nil {
			idx = *e.SwapInputIndex
		}
		pipe, err := s.GetOrCreatePipe(idx)
		if err != nil {
			return err
		}
		g.displaceEdge(pipe.Out)
		pipe.Out = e.ID()
	}
	return nil
}

// attachInput wires e into dst's incoming slot, displacing any
// previous occupant per invariant 3.
func (g *GraphModel) attachInput(dst node.Entity, e *node.Edge) error {
	switch d := dst.(type) {
	case *node.Reservoir:
		g.displaceEdge(d.InEdge)
		d.InEdge = e.ID()
	case *node.Router:
		g.displaceEdge(d.InEdge)
		d.InEdge = e.ID()
	case *node.Transformer:
		d.AddInputEdge(e.ID())
	case *node.Exchanger:
		idx := 0
		if e.SwapInputIndex != nil {
			idx = *e.SwapInputIndex
		}
		pipe, err := d.GetOrCreatePipe(idx)
		if err != nil {
			return err
		}
		g.displaceEdge(pipe.In)
		pipe.In = e.ID()
	}
	return nil
}

// displaceEdge deletes the edge at id, if any, clearing both of its
// endpoints' linkage. No-op for an empty id.
func (g *GraphModel) displaceEdge(id string) {
	if id == "" {
		return
	}
	g.deleteEdgeInternal(id)
}

// deleteEdgeInternal removes an edge element and clears the slot that
// referenced it on both endpoints. The edge must currently exist.
func (g *GraphModel) deleteEdgeInternal(id string) {
	entity, ok := g.elements[id]
	if !ok {
		return
	}
	e, ok := entity.(*node.Edge)
	if !ok {
		return
	}

	if src, ok := g.elements[e.From]; ok {
		g.clearOutputSlot(src, id)
	}
	if dst, ok := g.elements[e.To]; ok {
		g.clearInputSlot(dst, id)
	}

	delete(g.elements, id)
	delete(g.labels, e.Label())
}

func (g *GraphModel) clearOutputSlot(src node.Entity, edgeID string) {
	switch s := src.(type) {
	case *node.Reservoir:
		if s.OutEdge == edgeID {
			s.OutEdge = ""
		}
	case *node.Router:
		s.RemoveWeight(edgeID)
		if s.SelectedOutput == edgeID {
			s.SelectedOutput = ""
		}
	case *node.Transformer:
		if s.OutputEdge == edgeID {
			s.OutputEdge = ""
		}
	case *node.Exchanger:
		for i := range s.Pipes {
			if s.Pipes[i].Out == edgeID {
				s.Pipes[i].Out = ""
			}
		}
	}
}

func (g *GraphModel) clearInputSlot(dst node.Entity, edgeID string) {
	switch d := dst.(type) {
	case *node.Reservoir:
		if d.InEdge == edgeID {
			d.InEdge = ""
		}
	case *node.Router:
		if d.InEdge == edgeID {
			d.InEdge = ""
		}
	case *node.Transformer:
		d.RemoveInputEdge(edgeID)
	case *node.Exchanger:
		for i := range d.Pipes {
			if d.Pipes[i].In == edgeID {
				d.Pipes[i].In = ""
			}
		}
	}
}

// DeleteElement removes id, cascading to every incident edge when id
// names a node, or simply detaching the edge when id names one. It
// returns every id actually removed, in deterministic order.
func (g *GraphModel) DeleteElement(id string) ([]string, error) {
	entity, ok := g.elements[id]
	if !ok {
		return nil, ErrIDNotFound
	}

	if entity.Kind() == node.KindEdge {
		g.deleteEdgeInternal(id)
		return []string{id}, nil
	}

	var incident []string
	for eid, el := range g.elements {
		e, ok := el.(*node.Edge)
		if !ok {
			continue
		}
		if e.From == id || e.To == id {
			incident = append(incident, eid)
		}
	}
	sort.Strings(incident)
	for _, eid := range incident {
		g.deleteEdgeInternal(eid)
	}

	delete(g.elements, id)
	delete(g.labels, entity.Label())

	removed := append(incident, id)
	return removed, nil
}

// SetLabel renames id's label, validating lexical form and
// uniqueness.
func (g *GraphModel) SetLabel(id, label string) error {
	entity, ok := g.elements[id]
	if !ok {
		return ErrIDNotFound
	}
	if label == entity.Label() {
		return nil
	}
	if err := g.reserveLabel(label); err != nil {
		return err
	}
	delete(g.labels, entity.Label())
	entity.SetLabel(label)
	g.labels[label] = id
	return nil
}

// SetConverterRequiredInputPerUnit sets (amount > 0) or clears
// (amount <= 0) a recipe requirement, validating that token is
// produced somewhere upstream of the transformer.
func (g *GraphModel) SetConverterRequiredInputPerUnit(convID, token string, amount float64) error {
	entity, ok := g.elements[convID]
	if !ok {
		return ErrIDNotFound
	}
	t, ok := entity.(*node.Transformer)
	if !ok {
		return ErrNotConverter
	}

	if amount > 0 {
		upstream, err := g.UpstreamTokensOf(convID)
		if err != nil {
			return err
		}
		if !tokenIsUpstream(upstream, token) {
			return ErrTokenNotUpstream
		}
	}

	t.SetRequiredInputPerUnit(token, amount)
	return nil
}

func tokenIsUpstream(byEdge map[string][]string, token string) bool {
	for _, tokens := range byEdge {
		for _, t := range tokens {
			if t == token {
				return true
			}
		}
	}
	return false
}

// SetGateOutputWeight sets edgeID's weight on router routerID. weight
// must be non-negative and edgeID must already be one of the
// router's output edges (i.e. attached via AddEdge).
func (g *GraphModel) SetGateOutputWeight(routerID, edgeID string, weight float64) error {
	entity, ok := g.elements[routerID]
	if !ok {
		return ErrIDNotFound
	}
	r, ok := entity.(*node.Router)
	if !ok {
		return ErrNotGate
	}
	if weight < 0 {
		return ErrNegativeWeight
	}

	edgeEntity, ok := g.elements[edgeID]
	if !ok {
		return ErrIDNotFound
	}
	e, ok := edgeEntity.(*node.Edge)
	if !ok || e.From != routerID {
		return ErrEdgeNotOnGate
	}

	return r.SetWeight(edgeID, weight)
}

// Clone deep-copies every element and rebuilds the label/counter
// indices; no state is shared with the receiver.
func (g *GraphModel) Clone() *GraphModel {
	cp := &GraphModel{
		elements:     make(map[string]node.Entity, len(g.elements)),
		labels:       make(map[string]string, len(g.labels)),
		autoCounters: make(map[node.Kind]int, len(g.autoCounters)),
		evaluator:    g.evaluator,
	}
	for id, e := range g.elements {
		cp.elements[id] = e.Clone()
	}
	for label, id := range g.labels {
		cp.labels[label] = id
	}
	for k, v := range g.autoCounters {
		cp.autoCounters[k] = v
	}
	return cp
}

// UpstreamTokensOf walks backward from each of a transformer's input
// edges, returning the set of tokens that could reach it: a
// Reservoir or Transformer source contributes its own token, a
// Router recurses into its single input edge, an Exchanger
// contributes both of its pair's tokens (a swap can emit either,
// depending on which side is fed at tick time, and flowsim does not
// attempt to trace that dynamically), and a missing endpoint
// contributes nothing.
func (g *GraphModel) UpstreamTokensOf(converterID string) (map[string][]string, error) {
	entity, ok := g.elements[converterID]
	if !ok {
		return nil, ErrIDNotFound
	}
	t, ok := entity.(*node.Transformer)
	if !ok {
		return nil, ErrNotConverter
	}

	result := make(map[string][]string, len(t.InputEdges))
	for _, edgeID := range t.InputEdges {
		set := g.walkUpstreamTokens(edgeID, map[string]bool{})
		tokens := make([]string, 0, len(set))
		for tok := range set {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		result[edgeID] = tokens
	}
	return result, nil
}

func (g *GraphModel) walkUpstreamTokens(edgeID string, visiting map[string]bool) map[string]bool {
	if visiting[edgeID] {
		return map[string]bool{}
	}
	visiting[edgeID] = true

	entity, ok := g.elements[edgeID]
	if !ok {
		return map[string]bool{}
	}
	e, ok := entity.(*node.Edge)
	if !ok {
		return map[string]bool{}
	}

	src, ok := g.elements[e.From]
	if !ok {
		return map[string]bool{}
	}

	switch s := src.(type) {
	case *node.Reservoir:
		return map[string]bool{s.Token: true}
	case *node.Transformer:
		return map[string]bool{s.Token: true}
	case *node.Router:
		if s.InEdge == "" {
			return map[string]bool{}
		}
		return g.walkUpstreamTokens(s.InEdge, visiting)
	case *node.Exchanger:
		tokens := map[string]bool{}
		if s.TokenA != "" {
			tokens[s.TokenA] = true
		}
		if s.TokenB != "" {
			tokens[s.TokenB] = true
		}
		return tokens
	default:
		return map[string]bool{}
	}
}
