package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/flowsim/flowsim/expr"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
	"github.com/flowsim/flowsim/rng"
	"github.com/flowsim/flowsim/telemetry"
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

func TestTickLogsStartCompileAndCommitEvents(t *testing.T) {
	var buf bytes.Buffer
	rec := telemetry.NewRecorder(&buf)
	loop := telemetry.NewLoop(drainingGraph(t), rng.New(1), rec)

	if err := loop.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 log lines (start, compiled, committed), got %d:\n%s", len(lines), buf.String())
	}

	var msgs []string
	for _, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not valid JSON: %v: %q", err, line)
		}
		if rec["component"] != "flowsim" {
			t.Errorf("component = %v, want flowsim", rec["component"])
		}
		if rec["tick"] != float64(0) {
			t.Errorf("tick = %v, want 0", rec["tick"])
		}
		msgs = append(msgs, rec["message"].(string))
	}
	want := []string{"tick started", "tick compiled", "tick committed", "reservoir states"}
	for _, w := range want {
		found := false
		for _, m := range msgs {
			if m == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing log message %q among %v", w, msgs)
		}
	}
}

func TestTickIncrementsTickCounterAndDrainsReservoir(t *testing.T) {
	var buf bytes.Buffer
	gm := drainingGraph(t)
	rec := telemetry.NewRecorder(&buf)
	loop := telemetry.NewLoop(gm, rng.New(1), rec)

	for i := 0; i < 10; i++ {
		if err := loop.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if got := reservoirState(t, gm, "P0"); got != 0 {
		t.Errorf("P0 state after 10 ticks = %v, want 0", got)
	}
	if got := reservoirState(t, gm, "P1"); got != 10 {
		t.Errorf("P1 state after 10 ticks = %v, want 10", got)
	}
}

func reservoirState(t *testing.T, gm *graph.GraphModel, label string) float64 {
	t.Helper()
	e, ok := gm.GetElementByLabel(label)
	if !ok {
		t.Fatalf("no element labeled %s", label)
	}
	return e.(*node.Reservoir).State
}

func TestRunAndStop(t *testing.T) {
	var buf bytes.Buffer
	rec := telemetry.NewRecorder(&buf)
	loop := telemetry.NewLoop(drainingGraph(t), rng.New(1), rec)

	ctx := context.Background()
	loop.Run(ctx, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if !loop.Running() {
		t.Error("loop should be running after Run()")
	}

	loop.Stop()
	time.Sleep(20 * time.Millisecond)

	if loop.Running() {
		t.Error("loop should not be running after Stop()")
	}
}

func TestRunIsANoOpWhenAlreadyRunning(t *testing.T) {
	var buf bytes.Buffer
	rec := telemetry.NewRecorder(&buf)
	loop := telemetry.NewLoop(drainingGraph(t), rng.New(1), rec)

	ctx := context.Background()
	loop.Run(ctx, 5*time.Millisecond)
	loop.Run(ctx, 5*time.Millisecond) // no-op, must not panic or deadlock
	time.Sleep(15 * time.Millisecond)
	loop.Stop()
}
