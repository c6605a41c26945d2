package expr

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// precisionThreshold is the magnitude past which a plain float64
// starts losing integer precision (2^53). Past this point arithmetic
// is promoted through *uint256.Int, mirroring
// tokenmodel/guard/eval.go's evalArithmeticU256 fallback.
const precisionThreshold = 1 << 53

// numericFn and booleanFn are the compiled forms returned by
// DefaultEvaluator. Both wrap the same underlying program; Eval walks
// it and coerces the final statement's value to the requested type.
type numericFn struct{ prog *program }
type booleanFn struct{ prog *program }

func (f numericFn) Eval(scope Scope) (float64, error) {
	v, err := runProgram(f.prog, scope)
	if err != nil {
		return 0, err
	}
	return asFloat(v)
}

func (f booleanFn) Eval(scope Scope) (bool, error) {
	v, err := runProgram(f.prog, scope)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expr: expected boolean result, got %T", v)
	}
	return b, nil
}

// DefaultEvaluator is flowsim's reference Evaluator implementation: a
// small recursive-descent compiler over the grammar in parser.go.
// Graph components only depend on the Evaluator interface; this type
// exists so the module is runnable without an external expression
// sandbox plugged in.
type DefaultEvaluator struct{}

func (DefaultEvaluator) CompileNumeric(source string) (NumericFn, error) {
	prog, err := parseProgram(source)
	if err != nil {
		return nil, err
	}
	return numericFn{prog: prog}, nil
}

func (DefaultEvaluator) CompileBoolean(source string) (BooleanFn, error) {
	prog, err := parseProgram(source)
	if err != nil {
		return nil, err
	}
	return booleanFn{prog: prog}, nil
}

func runProgram(prog *program, scope Scope) (interface{}, error) {
	var result interface{}
	for _, stmt := range prog.statements {
		v, err := evalNode(stmt, scope)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func evalNode(n node, scope Scope) (interface{}, error) {
	switch v := n.(type) {
	case numberLit:
		return v.value, nil
	case boolLit:
		return v.value, nil
	case identifier:
		f, ok := scope.Get(v.name)
		if !ok {
			return nil, fmt.Errorf("expr: unknown identifier %q", v.name)
		}
		return f, nil
	case assignment:
		val, err := evalNode(v.rhs, scope)
		if err != nil {
			return nil, err
		}
		f, err := asFloat(val)
		if err != nil {
			return nil, err
		}
		scope.Set(v.name, f)
		return val, nil
	case unaryOp:
		return evalUnary(v, scope)
	case binaryOp:
		return evalBinary(v, scope)
	default:
		return nil, fmt.Errorf("expr: unknown node type %T", n)
	}
}

func evalUnary(v unaryOp, scope Scope) (interface{}, error) {
	operand, err := evalNode(v.operand, scope)
	if err != nil {
		return nil, err
	}
	switch v.op {
	case tokNot:
		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: operand of ! must be boolean")
		}
		return !b, nil
	case tokMinus:
		f, err := asFloat(operand)
		if err != nil {
			return nil, err
		}
		return -f, nil
	default:
		return nil, fmt.Errorf("expr: unknown unary operator")
	}
}

func evalBinary(v binaryOp, scope Scope) (interface{}, error) {
	if v.op == tokAnd || v.op == tokOr {
		return evalShortCircuit(v, scope)
	}

	left, err := evalNode(v.left, scope)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(v.right, scope)
	if err != nil {
		return nil, err
	}

	switch v.op {
	case tokPlus, tokMinus, tokStar, tokSlash, tokPercent:
		return evalArithmetic(v.op, left, right)
	case tokGt, tokLt, tokGe, tokLe:
		return evalRelational(v.op, left, right)
	case tokEq, tokNeq:
		return evalEquality(v.op, left, right)
	default:
		return nil, fmt.Errorf("expr: unknown binary operator")
	}
}

func evalShortCircuit(v binaryOp, scope Scope) (interface{}, error) {
	left, err := evalNode(v.left, scope)
	if err != nil {
		return nil, err
	}
	lb, ok := left.(bool)
	if !ok {
		return nil, fmt.Errorf("expr: operands of &&/|| must be boolean")
	}
	if v.op == tokAnd && !lb {
		return false, nil
	}
	if v.op == tokOr && lb {
		return true, nil
	}
	right, err := evalNode(v.right, scope)
	if err != nil {
		return nil, err
	}
	rb, ok := right.(bool)
	if !ok {
		return nil, fmt.Errorf("expr: operands of &&/|| must be boolean")
	}
	return rb, nil
}

// needsPrecision reports whether a value's magnitude is large enough
// that float64 arithmetic would be lossy.
func needsPrecision(v interface{}) bool {
	f, err := asFloat(v)
	if err != nil {
		return false
	}
	return math.Abs(f) >= precisionThreshold
}

func evalArithmetic(op tokenKind, left, right interface{}) (interface{}, error) {
	if needsPrecision(left) || needsPrecision(right) {
		l, lok := toU256(left)
		r, rok := toU256(right)
		if lok && rok {
			return evalArithmeticU256(op, l, r)
		}
	}

	lf, err := asFloat(left)
	if err != nil {
		return nil, err
	}
	rf, err := asFloat(right)
	if err != nil {
		return nil, err
	}
	switch op {
	case tokPlus:
		return lf + rf, nil
	case tokMinus:
		return lf - rf, nil
	case tokStar:
		return lf * rf, nil
	case tokSlash:
		if rf == 0 {
			return nil, fmt.Errorf("expr: division by zero")
		}
		return lf / rf, nil
	case tokPercent:
		if rf == 0 {
			return nil, fmt.Errorf("expr: modulo by zero")
		}
		return math.Mod(lf, rf), nil
	default:
		return nil, fmt.Errorf("expr: unknown arithmetic operator")
	}
}

func evalArithmeticU256(op tokenKind, left, right *uint256.Int) (interface{}, error) {
	result := new(uint256.Int)
	switch op {
	case tokPlus:
		result.Add(left, right)
	case tokMinus:
		if left.Cmp(right) < 0 {
			// Stay within the non-negative domain flowsim quantities
			// live in; spec.md never requires signed precision values.
			result.Clear()
		} else {
			result.Sub(left, right)
		}
	case tokStar:
		result.Mul(left, right)
	case tokSlash:
		if right.IsZero() {
			return nil, fmt.Errorf("expr: division by zero")
		}
		result.Div(left, right)
	case tokPercent:
		if right.IsZero() {
			return nil, fmt.Errorf("expr: modulo by zero")
		}
		result.Mod(left, right)
	default:
		return nil, fmt.Errorf("expr: unknown arithmetic operator")
	}
	return result, nil
}

func evalRelational(op tokenKind, left, right interface{}) (interface{}, error) {
	lf, err := asFloat(left)
	if err != nil {
		return nil, err
	}
	rf, err := asFloat(right)
	if err != nil {
		return nil, err
	}
	switch op {
	case tokGt:
		return lf > rf, nil
	case tokLt:
		return lf < rf, nil
	case tokGe:
		return lf >= rf, nil
	case tokLe:
		return lf <= rf, nil
	default:
		return nil, fmt.Errorf("expr: unknown relational operator")
	}
}

func evalEquality(op tokenKind, left, right interface{}) (interface{}, error) {
	var equal bool
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: cannot compare bool with non-bool")
		}
		equal = lb == rb
	} else {
		lf, err := asFloat(left)
		if err != nil {
			return nil, err
		}
		rf, err := asFloat(right)
		if err != nil {
			return nil, err
		}
		equal = lf == rf
	}
	if op == tokEq {
		return equal, nil
	}
	return !equal, nil
}

func asFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case *uint256.Int:
		f, _ := new(big.Float).SetInt(t.ToBig()).Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("expr: expected numeric value, got %T", v)
	}
}

func toU256(v interface{}) (*uint256.Int, bool) {
	switch t := v.(type) {
	case *uint256.Int:
		return t, true
	case float64:
		if t < 0 {
			return nil, false
		}
		i, _ := new(big.Float).SetFloat64(t).Int(nil)
		u, overflow := uint256.FromBig(i)
		if overflow {
			return nil, false
		}
		return u, true
	default:
		return nil, false
	}
}
