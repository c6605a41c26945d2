package tickstore_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flowsim/flowsim/compiler"
	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/executor"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/rng"
	"github.com/flowsim/flowsim/tickstore"
)

func drainingGraph(t *testing.T) *graph.GraphModel {
	t.Helper()
	gm, err := graph.Build(expr.DefaultEvaluator{}).
		Reservoir("P0", 10).
		Reservoir("P1", 0).
		Edge("P0", "P1", 1).
		Done()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return gm
}

func TestRecordTickThenTicksReturnsInsertedRows(t *testing.T) {
	store, err := tickstore.Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	gm := drainingGraph(t)
	src := rng.New(1)
	for tick := 0; tick < 3; tick++ {
		cg, err := compiler.Compile(gm, compiler.Options{RNG: src})
		if err != nil {
			t.Fatalf("tick %d: Compile: %v", tick, err)
		}
		if err := executor.Execute(gm, cg); err != nil {
			t.Fatalf("tick %d: Execute: %v", tick, err)
		}
		if err := store.RecordTick("run-1", tick, cg, gm); err != nil {
			t.Fatalf("tick %d: RecordTick: %v", tick, err)
		}
	}

	records, err := store.Ticks("run-1")
	if err != nil {
		t.Fatalf("Ticks: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Tick != i {
			t.Errorf("records[%d].Tick = %d, want %d", i, rec.Tick, i)
		}
	}
	if records[2].ReservoirStates["P0"] != 7 {
		t.Errorf("records[2] P0 state = %v, want 7", records[2].ReservoirStates["P0"])
	}
	if records[2].ReservoirStates["P1"] != 3 {
		t.Errorf("records[2] P1 state = %v, want 3", records[2].ReservoirStates["P1"])
	}
}

func TestTicksIsEmptyForAnUnknownRunID(t *testing.T) {
	store, err := tickstore.Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	records, err := store.Ticks("nonexistent")
	if err != nil {
		t.Fatalf("Ticks: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestExportJSONLWritesOneObjectPerLine(t *testing.T) {
	store, err := tickstore.Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	gm := drainingGraph(t)
	cg, err := compiler.Compile(gm, compiler.Options{RNG: rng.New(1)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := executor.Execute(gm, cg); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := store.RecordTick("run-2", 0, cg, gm); err != nil {
		t.Fatalf("RecordTick: %v", err)
	}
	if err := store.RecordTick("run-2", 1, cg, gm); err != nil {
		t.Fatalf("RecordTick: %v", err)
	}

	var buf bytes.Buffer
	if err := store.ExportJSONL("run-2", &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"run_id":"run-2"`) {
			t.Errorf("line missing run_id: %q", line)
		}
	}
}

func TestRunIDsReturnsDistinctSortedRunIDs(t *testing.T) {
	store, err := tickstore.Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	gm := drainingGraph(t)
	cg, err := compiler.Compile(gm, compiler.Options{RNG: rng.New(1)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := executor.Execute(gm, cg); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, runID := range []string{"b", "a", "b"} {
		if err := store.RecordTick(runID, 0, cg, gm); err != nil {
			t.Fatalf("RecordTick(%s): %v", runID, err)
		}
	}

	ids, err := store.RunIDs()
	if err != nil {
		t.Fatalf("RunIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("RunIDs = %v, want [a b]", ids)
	}
}
