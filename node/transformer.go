package node

import "github.com/flowsim/flowsim/expr"

// Transformer consumes a recipe's worth of buffered input tokens for
// each unit of its own output token it produces.
type Transformer struct {
	id    string
	label string

	Token string

	InputEdges []string // insertion-ordered, deduplicated
	OutputEdge string

	Required map[string]float64 // input token -> positive amount per unit
	Buffer   map[string]float64 // input token -> accumulated amount

	ConditionSrc string
	condition    expr.BooleanFn
}

// NewTransformer constructs a Transformer with no recipe, an empty
// buffer and an always-true condition.
func NewTransformer(id, label, token string) *Transformer {
	return &Transformer{
		id:        id,
		label:     label,
		Token:     token,
		Required:  make(map[string]float64),
		Buffer:    make(map[string]float64),
		condition: expr.AlwaysTrue,
	}
}

func (c *Transformer) ID() string        { return c.id }
func (c *Transformer) Label() string     { return c.label }
func (c *Transformer) SetLabel(l string) { c.label = l }
func (c *Transformer) Kind() Kind        { return KindTransformer }

// AddInputEdge records e as one of this transformer's input edges, if
// not already present.
func (c *Transformer) AddInputEdge(edgeID string) {
	for _, e := range c.InputEdges {
		if e == edgeID {
			return
		}
	}
	c.InputEdges = append(c.InputEdges, edgeID)
}

// RemoveInputEdge drops e from the input edge set.
func (c *Transformer) RemoveInputEdge(edgeID string) {
	for i, e := range c.InputEdges {
		if e == edgeID {
			c.InputEdges = append(c.InputEdges[:i], c.InputEdges[i+1:]...)
			return
		}
	}
}

// AddToBuffer accumulates delta (>=0) of token into the buffer.
func (c *Transformer) AddToBuffer(token string, delta float64) error {
	if delta < 0 {
		return ErrNegativeAmount
	}
	c.Buffer[token] += delta
	return nil
}

// SetRequiredInputPerUnit installs a positive per-unit requirement for
// token, or clears it when amount is non-positive.
func (c *Transformer) SetRequiredInputPerUnit(token string, amount float64) {
	if amount <= 0 {
		delete(c.Required, token)
		return
	}
	c.Required[token] = amount
}

// SetCondition compiles and installs the transformer's guard.
func (c *Transformer) SetCondition(source string, ev expr.Evaluator) error {
	if source == "" {
		c.ConditionSrc = ""
		c.condition = expr.AlwaysTrue
		return nil
	}
	fn, err := ev.CompileBoolean(source)
	if err != nil {
		return err
	}
	c.ConditionSrc = source
	c.condition = fn
	return nil
}

// MaximumConvertable returns the largest number of output units the
// current buffer could produce: 0 if the condition fails, the recipe
// is empty, or any required token is missing from the buffer;
// otherwise the minimum of buffer[t]/required[t] over required tokens.
func (c *Transformer) MaximumConvertable(scope expr.Scope) (float64, error) {
	if len(c.Required) == 0 {
		return 0, nil
	}
	if c.condition != nil {
		ok, err := c.condition.Eval(scope)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
	}

	max := -1.0
	for token, need := range c.Required {
		have, ok := c.Buffer[token]
		if !ok || have <= 0 {
			return 0, nil
		}
		ratio := have / need
		if max < 0 || ratio < max {
			max = ratio
		}
	}
	if max < 0 {
		return 0, nil
	}
	return max, nil
}

// TakeFromState produces min(amount, MaximumConvertable(scope)) units
// of output, consuming required[t]*produced from the buffer for each
// required token. amount must be non-negative; callers wanting
// "unlimited" pass MaximumConvertable(scope) directly per spec.md
// §4.5. Returns the amount actually produced.
func (c *Transformer) TakeFromState(amount float64, scope expr.Scope) (float64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	maxConv, err := c.MaximumConvertable(scope)
	if err != nil {
		return 0, err
	}
	produced := amount
	if maxConv < produced {
		produced = maxConv
	}
	if produced <= 0 {
		return 0, nil
	}
	for token, need := range c.Required {
		c.Buffer[token] -= need * produced
	}
	return produced, nil
}

func (c *Transformer) Clone() Entity {
	cp := *c
	cp.InputEdges = append([]string(nil), c.InputEdges...)
	cp.Required = make(map[string]float64, len(c.Required))
	for k, v := range c.Required {
		cp.Required[k] = v
	}
	cp.Buffer = make(map[string]float64, len(c.Buffer))
	for k, v := range c.Buffer {
		cp.Buffer[k] = v
	}
	return &cp
}
