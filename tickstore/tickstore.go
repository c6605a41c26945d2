// Package tickstore persists per-tick simulation history to SQLite,
// grounded on examples/catacombs/storage/storage.go's Store/migrate
// shape (a *sql.DB wrapper, CREATE TABLE IF NOT EXISTS schema, typed
// row structs), adapted from per-session game-action logging to
// per-tick flowsim reservoir snapshots. It uses modernc.org/sqlite
// (driver name "sqlite"), the driver the teacher's own go.mod
// requires directly, rather than catacombs' own mattn/go-sqlite3
// (absent from the teacher's requires).
package tickstore

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowsim/flowsim/compiler"
	"github.com/flowsim/flowsim/graph"
	"github.com/flowsim/flowsim/node"
)

// Store wraps a SQLite database holding tick history for one or more
// simulation runs, distinguished by RunID.
type Store struct {
	db *sql.DB
}

// TickRecord is one committed tick: its run and tick number, when it
// was recorded, how many parallel groups the compiler produced (and
// how many came back Cyclic), and every reservoir's post-tick state.
type TickRecord struct {
	ID              int64              `json:"id"`
	RunID           string             `json:"run_id"`
	Tick            int                `json:"tick"`
	RecordedAt      time.Time          `json:"recorded_at"`
	Groups          int                `json:"groups"`
	CyclicGroups    int                `json:"cyclic_groups"`
	ReservoirStates map[string]float64 `json:"reservoir_states"`
}

// Open creates (or reuses) a SQLite database at dsn and ensures the
// ticks table exists. dsn "" or ":memory:" opens a private in-memory
// database, convenient for tests and short-lived runs.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tickstore: open: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("tickstore: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL,
		groups INTEGER NOT NULL,
		cyclic_groups INTEGER NOT NULL,
		reservoir_states TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ticks_run ON ticks(run_id);
	CREATE INDEX IF NOT EXISTS idx_ticks_run_tick ON ticks(run_id, tick);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying connection for custom queries.
func (s *Store) DB() *sql.DB { return s.db }

// RecordTick snapshots every Reservoir's current state in gm and
// inserts one row for (runID, tick), tagged with cg's group/cyclic
// counts. Call it after executor.Execute has committed the tick.
func (s *Store) RecordTick(runID string, tick int, cg *compiler.CompiledGraph, gm *graph.GraphModel) error {
	states := reservoirStates(gm)
	blob, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("tickstore: marshal states: %w", err)
	}

	cyclic := 0
	for _, g := range cg.Groups {
		if g.Cyclic {
			cyclic++
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO ticks (run_id, tick, recorded_at, groups, cyclic_groups, reservoir_states)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, tick, time.Now().UTC(), len(cg.Groups), cyclic, string(blob),
	)
	if err != nil {
		return fmt.Errorf("tickstore: insert: %w", err)
	}
	return nil
}

func reservoirStates(gm *graph.GraphModel) map[string]float64 {
	states := make(map[string]float64)
	for _, e := range gm.Elements() {
		if r, ok := e.(*node.Reservoir); ok {
			states[r.Label()] = r.State
		}
	}
	return states
}

// Ticks returns every recorded tick for runID, ordered by tick number.
func (s *Store) Ticks(runID string) ([]TickRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, tick, recorded_at, groups, cyclic_groups, reservoir_states
		 FROM ticks WHERE run_id = ? ORDER BY tick`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("tickstore: query: %w", err)
	}
	defer rows.Close()

	var records []TickRecord
	for rows.Next() {
		var rec TickRecord
		var statesJSON string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Tick, &rec.RecordedAt,
			&rec.Groups, &rec.CyclicGroups, &statesJSON); err != nil {
			return nil, fmt.Errorf("tickstore: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(statesJSON), &rec.ReservoirStates); err != nil {
			return nil, fmt.Errorf("tickstore: unmarshal states: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExportJSONL writes every tick for runID to w as one JSON object per
// line, the line-delimited shape eventlog/jsonl.go reads for event
// logs, used here as a portable export format for offline analysis.
func (s *Store) ExportJSONL(runID string, w io.Writer) error {
	records, err := s.Ticks(runID)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("tickstore: encode: %w", err)
		}
	}
	return bw.Flush()
}

// RunIDs returns every distinct run_id present in the store, sorted.
func (s *Store) RunIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT run_id FROM ticks`)
	if err != nil {
		return nil, fmt.Errorf("tickstore: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, rows.Err()
}
