package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/flowsim/flowsim/node"
)

// fingerprintElement is a deterministically-ordered, JSON-friendly
// projection of one element used only for hashing: id, kind, label
// and, for edges, endpoints and rate. Tokens, router weights,
// transformer recipes, pipe indices and exchanger settings are not
// included. The result is independent of map iteration order.
type fingerprintElement struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Label string  `json:"label"`
	From  string  `json:"from,omitempty"`
	To    string  `json:"to,omitempty"`
	Rate  float64 `json:"rate,omitempty"`
}

// Fingerprint computes a content-addressed identifier for the
// graph's structure: two graphs with identical elements (ids, kinds,
// labels, edge endpoints and rates) hash identically regardless of
// insertion order. It does not cover runtime state (reservoir state,
// transformer buffers, exchanger pools) — use it to detect
// topology drift between a saved graph and a running one.
func (g *GraphModel) Fingerprint() string {
	elems := make([]fingerprintElement, 0, len(g.elements))
	for id, e := range g.elements {
		fe := fingerprintElement{ID: id, Kind: e.Kind().String(), Label: e.Label()}
		if edge, ok := e.(*node.Edge); ok {
			fe.From = edge.From
			fe.To = edge.To
			fe.Rate = edge.Rate
		}
		elems = append(elems, fe)
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i].ID < elems[j].ID })

	data, err := json.Marshal(elems)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return "cid:" + hex.EncodeToString(hash[:])
}
