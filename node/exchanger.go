package node

import "github.com/flowsim/flowsim/expr"

// Pipe is one of an Exchanger's (in, out) edge-id slots, splicing one
// swap direction through the exchanger. A pipe is valid when both
// ends are present.
type Pipe struct {
	In  string
	Out string
}

func (p Pipe) Valid() bool { return p.In != "" && p.Out != "" }

// Exchanger is a constant-product pair exchanger: swapping amount of
// one side's token in moves the other side's pool to k/newPool,
// holding k = amountA*amountB fixed at configuration time.
type Exchanger struct {
	id    string
	label string

	TokenA, TokenB string
	AmountA        float64
	AmountB        float64
	K              float64

	Pipes []Pipe

	ConditionSrc string
	condition    expr.BooleanFn
}

// NewExchanger constructs an unconfigured Exchanger (no tokens, no
// amounts, K == 0) with an always-true condition. Configure runs the
// validation spec.md §3 requires before swaps are possible.
func NewExchanger(id, label string) *Exchanger {
	return &Exchanger{id: id, label: label, condition: expr.AlwaysTrue}
}

func (x *Exchanger) ID() string        { return x.id }
func (x *Exchanger) Label() string     { return x.label }
func (x *Exchanger) SetLabel(l string) { x.label = l }
func (x *Exchanger) Kind() Kind        { return KindExchanger }

// Configure validates and installs the constant-product pair. Both
// amounts must be positive and the tokens distinct and non-empty;
// K is fixed to amountA*amountB at this point.
func (x *Exchanger) Configure(tokenA, tokenB string, amountA, amountB float64) error {
	if tokenA == "" || tokenB == "" {
		return ErrTokensNotDefined
	}
	if tokenA == tokenB {
		return ErrDuplicateTokenTypes
	}
	if amountA <= 0 || amountB <= 0 {
		return ErrNonPositiveAmount
	}
	x.TokenA = tokenA
	x.TokenB = tokenB
	x.AmountA = amountA
	x.AmountB = amountB
	x.K = amountA * amountB
	return nil
}

// Configured reports whether the exchanger satisfies spec.md's
// invariant 7: k > 0, both amounts > 0, distinct non-empty tokens.
func (x *Exchanger) Configured() bool {
	return x.TokenA != "" && x.TokenB != "" && x.TokenA != x.TokenB &&
		x.AmountA > 0 && x.AmountB > 0 && x.K > 0
}

// SetCondition compiles and installs the exchanger's swap guard.
func (x *Exchanger) SetCondition(source string, ev expr.Evaluator) error {
	if source == "" {
		x.ConditionSrc = ""
		x.condition = expr.AlwaysTrue
		return nil
	}
	fn, err := ev.CompileBoolean(source)
	if err != nil {
		return err
	}
	x.ConditionSrc = source
	x.condition = fn
	return nil
}

// GetOrCreatePipe returns the pipe at index, creating it if index is
// exactly len(Pipes) (indices must be contiguous from zero).
func (x *Exchanger) GetOrCreatePipe(index int) (*Pipe, error) {
	if index < 0 || index > len(x.Pipes) {
		return nil, ErrPipeIndexOutOfRange
	}
	if index == len(x.Pipes) {
		x.Pipes = append(x.Pipes, Pipe{})
	}
	return &x.Pipes[index], nil
}

// Pipe returns the pipe at index without creating it.
func (x *Exchanger) Pipe(index int) (*Pipe, bool) {
	if index < 0 || index >= len(x.Pipes) {
		return nil, false
	}
	return &x.Pipes[index], true
}

// PipeForInput returns the pipe whose In edge matches edgeID, and
// whether one was found, used by the executor to route a swap's
// output onward.
func (x *Exchanger) PipeForInput(edgeID string) (*Pipe, bool) {
	for i := range x.Pipes {
		if x.Pipes[i].In == edgeID {
			return &x.Pipes[i], true
		}
	}
	return nil, false
}

// Swap exchanges amount of tokenIn for the other side, maintaining
// AmountA*AmountB == K. Returns (tokenOut, amountOut, ok); ok is false
// when the exchanger is unconfigured, amount == 0, the condition
// fails, or tokenIn is neither TokenA nor TokenB. amount < 0 is an
// error.
func (x *Exchanger) Swap(amount float64, tokenIn string, scope expr.Scope) (string, float64, bool, error) {
	if amount < 0 {
		return "", 0, false, ErrNegativeSwap
	}
	if !x.Configured() || amount == 0 {
		return "", 0, false, nil
	}
	if tokenIn != x.TokenA && tokenIn != x.TokenB {
		return "", 0, false, nil
	}
	if x.condition != nil {
		ok, err := x.condition.Eval(scope)
		if err != nil {
			return "", 0, false, err
		}
		if !ok {
			return "", 0, false, nil
		}
	}

	var tokenOut string
	var amountOut float64
	if tokenIn == x.TokenA {
		x.AmountA += amount
		newB := x.K / x.AmountA
		amountOut = x.AmountB - newB
		x.AmountB = newB
		tokenOut = x.TokenB
	} else {
		x.AmountB += amount
		newA := x.K / x.AmountB
		amountOut = x.AmountA - newA
		x.AmountA = newA
		tokenOut = x.TokenA
	}
	return tokenOut, amountOut, true, nil
}

func (x *Exchanger) Clone() Entity {
	cp := *x
	cp.Pipes = append([]Pipe(nil), x.Pipes...)
	return &cp
}
