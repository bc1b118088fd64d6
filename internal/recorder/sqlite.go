package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"MarketLens/internal/model"
)

// SQLiteRecorder persists watchlist history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read snapshots while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS indicator_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			as_of       TEXT,
			window_size INTEGER,
			bars        INTEGER,
			close       REAL,
			sma         REAL,
			ema         REAL,
			std         REAL,
			upper_band  REAL,
			lower_band  REAL,
			rsi         REAL,
			cum_return  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_ts ON indicator_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbols     TEXT,
			range_start TEXT,
			range_end   TEXT,
			status      TEXT,
			duration_ms INTEGER,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON refresh_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSnapshot(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := snap.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	_, err := r.db.Exec(`INSERT INTO indicator_snapshots
		(timestamp, symbol, as_of, window_size, bars, close, sma, ema, std,
		 upper_band, lower_band, rsi, cum_return)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), snap.Symbol, snap.AsOf.Format(model.DateLayout), snap.Window, snap.Bars,
		snap.Close, snap.SMA, snap.EMA, snap.STD,
		snap.UpperBand, snap.LowerBand, snap.RSI, snap.CumReturn,
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(run *RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_runs
		(timestamp, symbols, range_start, range_end, status, duration_ms, note)
		VALUES (?,?,?,?,?,?,?)`,
		r.now().Unix(), strings.Join(run.Symbols, ","),
		run.Start.Format(model.DateLayout), run.End.Format(model.DateLayout),
		run.Status, run.Duration.Milliseconds(), run.Note,
	)
	return err
}

func (r *SQLiteRecorder) Snapshots(symbol string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.Query(`SELECT id, timestamp, symbol, as_of, window_size, bars, close,
		sma, ema, std, upper_band, lower_band, rsi, cum_return
		FROM indicator_snapshots WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var ts int64
		var asOf string
		if err := rows.Scan(&s.ID, &ts, &s.Symbol, &asOf, &s.Window, &s.Bars, &s.Close,
			&s.SMA, &s.EMA, &s.STD, &s.UpperBand, &s.LowerBand, &s.RSI, &s.CumReturn); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0).UTC()
		if t, err := time.Parse(model.DateLayout, asOf); err == nil {
			s.AsOf = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
