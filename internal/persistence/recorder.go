// Package persistence provides SQLite-based run recording. The recorder is
// just another metrics sink: it serializes each tick's snapshot so a full
// run history can be replayed or analyzed offline. The engine knows nothing
// about the format.
package persistence

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tradescape/internal/metrics"
)

// Recorder appends one run's tick history to a SQLite database.
type Recorder struct {
	conn  *sqlx.DB
	runID string
}

// Open opens or creates a database at the given path and starts a new run.
func Open(path string) (*Recorder, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	r := &Recorder{conn: conn, runID: uuid.NewString()}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// RunID returns the identifier of the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// Close closes the database connection.
func (r *Recorder) Close() error {
	return r.conn.Close()
}

func (r *Recorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		traders INTEGER NOT NULL,
		resources INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ticks (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		trader_count INTEGER NOT NULL,
		total_sugar REAL NOT NULL,
		total_spice REAL NOT NULL,
		trade_volume INTEGER NOT NULL,
		price REAL NOT NULL,
		step_sugar_harvest REAL NOT NULL,
		step_spice_harvest REAL NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS agent_ticks (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		sugar REAL NOT NULL,
		spice REAL NOT NULL,
		mrs REAL,
		trades INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, agent_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		buyer INTEGER NOT NULL,
		seller INTEGER NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL
	);
	`
	_, err := r.conn.Exec(schema)
	return err
}

// BeginRun records the run's configuration header.
func (r *Recorder) BeginRun(seed int64, width, height, traders, resources int) error {
	_, err := r.conn.Exec(
		`INSERT INTO runs (id, seed, width, height, traders, resources, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.runID, seed, width, height, traders, resources,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Collect implements metrics.Sink. Recording failures are logged and
// swallowed; a broken disk must not abort the simulation tick.
func (r *Recorder) Collect(snap *metrics.Snapshot) {
	if err := r.record(snap); err != nil {
		slog.Error("record tick failed", "tick", snap.Tick, "error", err)
	}
}

func (r *Recorder) record(snap *metrics.Snapshot) error {
	tx, err := r.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m := snap.Model
	if _, err := tx.Exec(
		`INSERT INTO ticks (run_id, tick, trader_count, total_sugar, total_spice,
			trade_volume, price, step_sugar_harvest, step_spice_harvest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, m.Tick, m.TraderCount, m.TotalSugar, m.TotalSpice,
		m.TradeVolume, m.Price, m.StepSugarHarvest, m.StepSpiceHarvest,
	); err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}

	for _, a := range snap.Agents {
		mrs := sql.NullFloat64{Float64: a.MRS, Valid: !math.IsNaN(a.MRS)}
		if _, err := tx.Exec(
			`INSERT INTO agent_ticks (run_id, tick, agent_id, x, y, sugar, spice, mrs, trades)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.runID, snap.Tick, a.ID, a.Pos.X, a.Pos.Y, a.Sugar, a.Spice, mrs, a.Trades,
		); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	for _, t := range snap.Trades {
		if _, err := tx.Exec(
			`INSERT INTO trades (run_id, tick, buyer, seller, price, quantity)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.runID, t.Tick, t.Buyer, t.Seller, t.Price, t.Quantity,
		); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	return tx.Commit()
}
