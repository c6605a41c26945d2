package checker_test

import (
	"testing"

	"github.com/flowsim/flowsim/checker"
	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

func TestCheckNoErrorForSimpleGraph(t *testing.T) {
	gm, err := graph.Build(expr.DefaultEvaluator{}).
		Reservoir("P0", 10).
		Reservoir("P1", 0).
		Edge("P0", "P1", 1).
		Done()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	report, err := checker.Check(gm)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Kind != checker.NoError {
		t.Errorf("Kind = %v, want NoError (%v)", report.Kind, report.Message)
	}
}

func TestCheckErrorsOnUnconfiguredExchanger(t *testing.T) {
	gm := graph.New(expr.DefaultEvaluator{})
	if _, err := gm.AddNode(node.KindExchanger, "x0", "X0", ""); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	report, err := checker.Check(gm)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Kind != checker.Error {
		t.Errorf("Kind = %v, want Error", report.Kind)
	}
	if report.Message == "" {
		t.Errorf("expected a diagnostic message")
	}
}

func TestCheckWarnsOnCyclicTransformerDependency(t *testing.T) {
	gm := graph.New(expr.DefaultEvaluator{})
	gm.AddNode(node.KindTransformer, "c0", "C0", "wool")
	gm.AddNode(node.KindTransformer, "c1", "C1", "yarn")
	gm.AddNode(node.KindRouter, "g0", "G0", "")
	gm.AddNode(node.KindRouter, "g1", "G1", "")
	gm.AddEdge("", "c0", "g0", "", 1, nil)
	gm.AddEdge("g0c1", "g0", "c1", "", -1, nil)
	gm.AddEdge("", "c1", "g1", "", 1, nil)
	gm.AddEdge("g1c0", "g1", "c0", "", -1, nil)
	if err := gm.SetGateOutputWeight("g0", "g0c1", 1); err != nil {
		t.Fatalf("SetGateOutputWeight: %v", err)
	}
	if err := gm.SetGateOutputWeight("g1", "g1c0", 1); err != nil {
		t.Fatalf("SetGateOutputWeight: %v", err)
	}
	if err := gm.SetConverterRequiredInputPerUnit("c0", "yarn", 1); err != nil {
		t.Fatalf("SetConverterRequiredInputPerUnit: %v", err)
	}
	if err := gm.SetConverterRequiredInputPerUnit("c1", "wool", 1); err != nil {
		t.Fatalf("SetConverterRequiredInputPerUnit: %v", err)
	}

	report, err := checker.Check(gm)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Kind != checker.Warning {
		t.Fatalf("Kind = %v, want Warning", report.Kind)
	}
	if len(report.CyclicGroups) != 1 {
		t.Fatalf("CyclicGroups = %v, want exactly 1 group", report.CyclicGroups)
	}
	if !report.CyclicGroups[0]["c0"] || !report.CyclicGroups[0]["c1"] {
		t.Errorf("cyclic group = %v, want both c0 and c1", report.CyclicGroups[0])
	}
}

func TestCheckDoesNotMutateTheGraph(t *testing.T) {
	gm, err := graph.Build(expr.DefaultEvaluator{}).
		Reservoir("P0", 10).
		Reservoir("P1", 0).
		Edge("P0", "P1", 1).
		Done()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := checker.Check(gm); err != nil {
		t.Fatalf("Check: %v", err)
	}

	e, _ := gm.GetElementByLabel("P0")
	if e.(*node.Reservoir).State != 10 {
		t.Errorf("Check mutated P0's state to %v, want unchanged 10", e.(*node.Reservoir).State)
	}
}
