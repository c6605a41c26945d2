// Package serialize implements GraphModel's toJSON/fromJSON surface
// (spec.md §6): each element becomes a plain object carrying its kind
// tag and its fields, with conditions/actions stored as source
// strings and recompiled on load. Grounded on tokenmodel/petri/bridge.go's
// JSON (de)serialization of a Model struct tree, adapted from the
// Petri Place/Transition/Arc shape to flowsim's four node kinds plus
// edges.
package serialize

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// nodeDoc is the union of every node kind's serializable fields; only
// the fields relevant to Kind are populated, the rest left at their
// zero value and omitted.
type nodeDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`

	Token string `json:"token,omitempty"`

	// pool
	State    float64 `json:"state,omitempty"`
	Capacity float64 `json:"capacity,omitempty"`

	// pool (action); pool/gate/converter/swap (condition)
	ActionSrc    string `json:"actionSrc,omitempty"`
	ConditionSrc string `json:"conditionSrc,omitempty"`

	// gate
	Weights map[string]float64 `json:"weights,omitempty"`

	// converter
	Required map[string]float64 `json:"required,omitempty"`
	Buffer   map[string]float64 `json:"buffer,omitempty"`

	// swap
	TokenA  string  `json:"tokenA,omitempty"`
	TokenB  string  `json:"tokenB,omitempty"`
	AmountA float64 `json:"amountA,omitempty"`
	AmountB float64 `json:"amountB,omitempty"`
}

type edgeDoc struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Rate           float64 `json:"rate"`
	ConditionSrc   string  `json:"conditionSrc,omitempty"`
	SwapInputIndex *int    `json:"swapInputIndex,omitempty"`
}

type doc struct {
	Nodes        []nodeDoc      `json:"nodes"`
	Edges        []edgeDoc      `json:"edges"`
	AutoCounters map[string]int `json:"autoCounters,omitempty"`
}

// ToJSON serializes gm's full state: every node and edge plus the
// auto-label counters, in id-sorted order for a deterministic byte
// output.
func ToJSON(gm *graph.GraphModel) ([]byte, error) {
	var d doc
	elements := gm.Elements()
	ids := make([]string, 0, len(elements))
	for id := range elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := elements[id]
		if e.Kind() == node.KindEdge {
			edge := e.(*node.Edge)
			d.Edges = append(d.Edges, edgeDoc{
				ID:             edge.ID(),
				Label:          edge.Label(),
				From:           edge.From,
				To:             edge.To,
				Rate:           edge.Rate,
				ConditionSrc:   edge.ConditionSrc,
				SwapInputIndex: edge.SwapInputIndex,
			})
			continue
		}
		nd := nodeDoc{ID: e.ID(), Label: e.Label(), Kind: e.Kind().String()}
		switch v := e.(type) {
		case *node.Reservoir:
			nd.Token = v.Token
			nd.State = v.State
			nd.Capacity = v.Capacity
			nd.ActionSrc = v.ActionSrc
			nd.ConditionSrc = v.ConditionSrc
		case *node.Router:
			nd.ConditionSrc = v.ConditionSrc
			outputs := v.Outputs()
			if len(outputs) > 0 {
				nd.Weights = make(map[string]float64, len(outputs))
				for _, edgeID := range outputs {
					nd.Weights[edgeID] = v.Weight(edgeID)
				}
			}
		case *node.Transformer:
			nd.Token = v.Token
			nd.ConditionSrc = v.ConditionSrc
			if len(v.Required) > 0 {
				nd.Required = copyMap(v.Required)
			}
			if len(v.Buffer) > 0 {
				nd.Buffer = copyMap(v.Buffer)
			}
		case *node.Exchanger:
			nd.ConditionSrc = v.ConditionSrc
			nd.TokenA, nd.TokenB = v.TokenA, v.TokenB
			nd.AmountA, nd.AmountB = v.AmountA, v.AmountB
		default:
			return nil, fmt.Errorf("serialize: unknown node type %T", e)
		}
		d.Nodes = append(d.Nodes, nd)
	}

	d.AutoCounters = map[string]int{
		node.KindReservoir.String():   gm.AutoCounter(node.KindReservoir),
		node.KindRouter.String():      gm.AutoCounter(node.KindRouter),
		node.KindTransformer.String(): gm.AutoCounter(node.KindTransformer),
		node.KindExchanger.String():   gm.AutoCounter(node.KindExchanger),
		node.KindEdge.String():        gm.AutoCounter(node.KindEdge),
	}

	return json.Marshal(d)
}

func copyMap(m map[string]float64) map[string]float64 {
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// FromJSON reconstructs a GraphModel from data produced by ToJSON,
// recompiling every stored expression source against ev. Nodes are
// created first (so edges can reference them), then edges (whose
// creation wires reservoir/transformer/router/exchanger linkage the
// same way graph.AddEdge always does), then router weights and the
// auto-label counters are restored.
func FromJSON(data []byte, ev expr.Evaluator) (*graph.GraphModel, error) {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	gm := graph.New(ev)

	for _, nd := range d.Nodes {
		kind, ok := node.ParseKind(nd.Kind)
		if !ok {
			return nil, fmt.Errorf("serialize: unknown node kind %q", nd.Kind)
		}
		entity, err := gm.AddNode(kind, nd.ID, nd.Label, nd.Token)
		if err != nil {
			return nil, fmt.Errorf("serialize: AddNode %s: %w", nd.Label, err)
		}
		if err := applyNodeDoc(entity, nd, ev); err != nil {
			return nil, fmt.Errorf("serialize: %s: %w", nd.Label, err)
		}
	}

	for _, ed := range d.Edges {
		e, err := gm.AddEdge(ed.ID, ed.From, ed.To, ed.Label, ed.Rate, ed.SwapInputIndex)
		if err != nil {
			return nil, fmt.Errorf("serialize: AddEdge %s: %w", ed.Label, err)
		}
		if ed.ConditionSrc != "" {
			if err := e.SetCondition(ed.ConditionSrc, ev); err != nil {
				return nil, fmt.Errorf("serialize: edge %s condition: %w", ed.Label, err)
			}
		}
	}

	for _, nd := range d.Nodes {
		if nd.Kind != node.KindRouter.String() || len(nd.Weights) == 0 {
			continue
		}
		for edgeID, weight := range nd.Weights {
			if err := gm.SetGateOutputWeight(nd.ID, edgeID, weight); err != nil {
				return nil, fmt.Errorf("serialize: gate %s weight: %w", nd.Label, err)
			}
		}
	}

	for kindName, n := range d.AutoCounters {
		kind, ok := node.ParseKind(kindName)
		if !ok {
			continue
		}
		gm.SetAutoCounter(kind, n)
	}

	return gm, nil
}

func applyNodeDoc(entity node.Entity, nd nodeDoc, ev expr.Evaluator) error {
	switch v := entity.(type) {
	case *node.Reservoir:
		v.SetCapacity(nd.Capacity)
		v.SetState(nd.State)
		if nd.ActionSrc != "" {
			if err := v.SetAction(nd.ActionSrc, ev); err != nil {
				return err
			}
		}
		if nd.ConditionSrc != "" {
			return v.SetCondition(nd.ConditionSrc, ev)
		}
	case *node.Router:
		if nd.ConditionSrc != "" {
			return v.SetCondition(nd.ConditionSrc, ev)
		}
	case *node.Transformer:
		if len(nd.Required) > 0 {
			v.Required = copyMap(nd.Required)
		}
		if len(nd.Buffer) > 0 {
			v.Buffer = copyMap(nd.Buffer)
		}
		if nd.ConditionSrc != "" {
			return v.SetCondition(nd.ConditionSrc, ev)
		}
	case *node.Exchanger:
		if nd.TokenA != "" {
			if err := v.Configure(nd.TokenA, nd.TokenB, nd.AmountA, nd.AmountB); err != nil {
				return err
			}
		}
		if nd.ConditionSrc != "" {
			return v.SetCondition(nd.ConditionSrc, ev)
		}
	}
	return nil
}
