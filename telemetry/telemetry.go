// Package telemetry provides structured per-tick diagnostics and a
// continuous run loop over a compiled flowsim graph. The loop's
// shape — a context-cancellable background goroutine driven by a
// time.Ticker, guarded by a running flag and a mutex — is grounded on
// engine.Engine.Run/Stop's dependency-injected ticker loop; the
// logging itself uses zerolog, the corpus's structured-logging
// library.
package telemetry

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowsim/flowsim/compiler"
	"github.com/flowsim/flowsim/executor"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
	"github.com/flowsim/flowsim/rng"
)

// Recorder emits one structured zerolog event per tick phase,
// supplementing checkGraph/nextTick with the diagnostics spec.md
// itself is silent on (observability is ambient, not a named
// module).
type Recorder struct {
	log zerolog.Logger
}

// NewRecorder wraps w in a zerolog.Logger with a "component" field
// fixed to "flowsim", timestamped per event.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		log: zerolog.New(w).With().Timestamp().Str("component", "flowsim").Logger(),
	}
}

// TickStarted logs the beginning of tick n.
func (r *Recorder) TickStarted(n int) {
	r.log.Debug().Int("tick", n).Msg("tick started")
}

// TickCompiled logs a successful compile: how many parallel groups
// resulted and how many of them came back Cyclic.
func (r *Recorder) TickCompiled(n int, cg *compiler.CompiledGraph) {
	cyclic := 0
	for _, g := range cg.Groups {
		if g.Cyclic {
			cyclic++
		}
	}
	r.log.Info().
		Int("tick", n).
		Int("groups", len(cg.Groups)).
		Int("cyclic_groups", cyclic).
		Msg("tick compiled")
}

// TickCommitted logs a successfully executed tick.
func (r *Recorder) TickCommitted(n int) {
	r.log.Info().Int("tick", n).Msg("tick committed")
}

// TickFailed logs a tick that errored during compile or execute.
func (r *Recorder) TickFailed(n int, err error) {
	r.log.Error().Int("tick", n).Err(err).Msg("tick failed")
}

// ReservoirStates logs every reservoir's current state, keyed by
// label, useful for tailing a running simulation without a separate
// tickstore query.
func (r *Recorder) ReservoirStates(n int, gm *graph.GraphModel) {
	ev := r.log.Debug().Int("tick", n)
	for _, e := range gm.Elements() {
		res, ok := e.(*node.Reservoir)
		if !ok {
			continue
		}
		ev = ev.Float64(res.Label(), res.State)
	}
	ev.Msg("reservoir states")
}

// Loop drives nextTick continuously at a fixed interval, in the
// background-goroutine shape of engine.Engine.Run: a cancellable
// child context, a time.Ticker, and a running flag guarded by a
// mutex so Run/Stop are idempotent and safe to call concurrently.
type Loop struct {
	gm  *graph.GraphModel
	src rng.Source
	rec *Recorder

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	tick    int
}

// NewLoop constructs a Loop over gm, sampling routers from src and
// recording every tick phase through rec.
func NewLoop(gm *graph.GraphModel, src rng.Source, rec *Recorder) *Loop {
	return &Loop{gm: gm, src: src, rec: rec}
}

// Tick runs exactly one tick (compile + execute), logging each phase.
// It is exported directly so callers that don't want a background
// loop can still get telemetry.
func (l *Loop) Tick() error {
	l.mu.Lock()
	n := l.tick
	l.tick++
	l.mu.Unlock()

	l.rec.TickStarted(n)
	cg, err := compiler.Compile(l.gm, compiler.Options{RNG: l.src})
	if err != nil {
		l.rec.TickFailed(n, err)
		return err
	}
	l.rec.TickCompiled(n, cg)

	if err := executor.Execute(l.gm, cg); err != nil {
		l.rec.TickFailed(n, err)
		return err
	}
	l.rec.TickCommitted(n)
	l.rec.ReservoirStates(n, l.gm)
	return nil
}

// Run starts a background goroutine ticking every interval until ctx
// is done or Stop is called. A Loop already running is a no-op.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	childCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-childCtx.Done():
				l.mu.Lock()
				l.running = false
				l.mu.Unlock()
				return
			case <-ticker.C:
				_ = l.Tick()
			}
		}
	}()
}

// Stop halts a running loop. Safe to call on a Loop that was never
// started.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.running = false
}

// Running reports whether the loop's background goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
