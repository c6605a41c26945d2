package node

import (
	"testing"

	"github.com/flowsim/flowsim/expr"
)

func TestTransformerEmptyRecipeIsNeverConvertable(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	scope := expr.NewMapScope()
	max, err := c.MaximumConvertable(scope)
	if err != nil {
		t.Fatalf("MaximumConvertable: %v", err)
	}
	if max != 0 {
		t.Errorf("max = %v, want 0 (pinned open question)", max)
	}
}

func TestTransformerMaximumConvertableIsMinRatio(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.SetRequiredInputPerUnit("metal", 2)
	c.SetRequiredInputPerUnit("wood", 1)
	c.AddToBuffer("metal", 10)
	c.AddToBuffer("wood", 3)

	scope := expr.NewMapScope()
	max, err := c.MaximumConvertable(scope)
	if err != nil {
		t.Fatalf("MaximumConvertable: %v", err)
	}
	if max != 3 { // metal allows 5, wood allows 3
		t.Errorf("max = %v, want 3", max)
	}
}

func TestTransformerMissingBufferTokenIsZero(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.SetRequiredInputPerUnit("metal", 2)
	scope := expr.NewMapScope()
	max, err := c.MaximumConvertable(scope)
	if err != nil {
		t.Fatalf("MaximumConvertable: %v", err)
	}
	if max != 0 {
		t.Errorf("max = %v, want 0", max)
	}
}

func TestTransformerTakeFromStateConsumesBufferProportionally(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.SetRequiredInputPerUnit("metal", 2)
	c.SetRequiredInputPerUnit("wood", 1)
	c.AddToBuffer("metal", 10)
	c.AddToBuffer("wood", 10)

	scope := expr.NewMapScope()
	produced, err := c.TakeFromState(2, scope)
	if err != nil {
		t.Fatalf("TakeFromState: %v", err)
	}
	if produced != 2 {
		t.Errorf("produced = %v, want 2", produced)
	}
	if c.Buffer["metal"] != 6 || c.Buffer["wood"] != 8 {
		t.Errorf("buffer = %+v, want metal=6 wood=8", c.Buffer)
	}
}

func TestTransformerTakeFromStateClampsToMaximumConvertable(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.SetRequiredInputPerUnit("metal", 2)
	c.AddToBuffer("metal", 5)

	scope := expr.NewMapScope()
	produced, err := c.TakeFromState(100, scope)
	if err != nil {
		t.Fatalf("TakeFromState: %v", err)
	}
	if produced != 2.5 {
		t.Errorf("produced = %v, want 2.5", produced)
	}
}

func TestTransformerTakeFromStateRejectsNegativeAmount(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	if _, err := c.TakeFromState(-1, expr.NewMapScope()); err != ErrNegativeAmount {
		t.Errorf("err = %v, want ErrNegativeAmount", err)
	}
}

func TestTransformerRequiredInputPerUnitNonPositiveDeletes(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.SetRequiredInputPerUnit("metal", 2)
	c.SetRequiredInputPerUnit("metal", 0)
	if _, ok := c.Required["metal"]; ok {
		t.Errorf("required[metal] still present after non-positive set")
	}
}

func TestTransformerInputEdgesDeduplicated(t *testing.T) {
	c := NewTransformer("c0", "C0", "widget")
	c.AddInputEdge("e1")
	c.AddInputEdge("e1")
	c.AddInputEdge("e2")
	if len(c.InputEdges) != 2 {
		t.Errorf("InputEdges = %v, want 2 distinct entries", c.InputEdges)
	}
}
