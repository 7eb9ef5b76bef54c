package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists forecast history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL lets readers (dashboards, the API) run while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

// DB exposes the handle so other stores can share the file.
func (r *SQLiteRecorder) DB() *sql.DB { return r.db }

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			source     TEXT,
			horizon    INTEGER,
			ma_window  INTEGER,
			bar_count  INTEGER,
			last_date  TEXT,
			last_close REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON forecast_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_results (
			run_id TEXT NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
			model  TEXT NOT NULL,
			label  TEXT,
			r2     REAL,
			PRIMARY KEY (run_id, model)
		)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			run_id    TEXT NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
			model     TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			date      TEXT NOT NULL,
			predicted REAL NOT NULL,
			actual    REAL,
			PRIMARY KEY (run_id, model, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_date ON forecast_points(date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordForecast(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO forecast_runs
		(id, timestamp, symbol, source, horizon, ma_window, bar_count, last_date, last_close)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, created.Unix(), run.Symbol, run.Source, run.Horizon, run.Window,
		run.BarCount, run.LastDate.String(), run.LastClose,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for id, res := range run.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO forecast_results (run_id, model, label, r2) VALUES (?,?,?,?)`,
			run.ID, string(id), res.Model, res.R2,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", id, err)
		}
		for seq, p := range res.Predictions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO forecast_points (run_id, model, seq, date, predicted, actual) VALUES (?,?,?,?,?,?)`,
				run.ID, string(id), seq, p.Date.String(), p.Predicted, p.Actual,
			); err != nil {
				return fmt.Errorf("insert point %s/%d: %w", id, seq, err)
			}
		}
	}
	return tx.Commit()
}

// ListRuns returns the newest runs for symbol, newest first, with their results.
// An empty symbol lists every symbol.
func (r *SQLiteRecorder) ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, symbol, source, horizon, ma_window, bar_count, last_date, last_close
		FROM forecast_runs
		WHERE (? = '' OR symbol = ?)
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			ts       int64
			lastDate string
		)
		if err := rows.Scan(&run.ID, &ts, &run.Symbol, &run.Source, &run.Horizon, &run.Window,
			&run.BarCount, &lastDate, &run.LastClose); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = time.Unix(ts, 0)
		if run.LastDate, err = calendar.Parse(lastDate); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Results, err = r.loadResults(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *SQLiteRecorder) loadResults(ctx context.Context, runID string) (forecast.Bundle, error) {
	bundle := forecast.Bundle{}
	rows, err := r.db.QueryContext(ctx, `SELECT model, label, r2 FROM forecast_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	for rows.Next() {
		var (
			model, label string
			r2           sql.NullFloat64
		)
		if err := rows.Scan(&model, &label, &r2); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res := forecast.Result{Model: label, Predictions: []forecast.PredictionPoint{}}
		if r2.Valid {
			v := r2.Float64
			res.R2 = &v
		}
		bundle[forecast.ModelID(model)] = res
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pts, err := r.db.QueryContext(ctx, `SELECT model, date, predicted, actual FROM forecast_points
		WHERE run_id = ? ORDER BY model, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer pts.Close()
	for pts.Next() {
		var (
			model, date string
			p           forecast.PredictionPoint
			actual      sql.NullFloat64
		)
		if err := pts.Scan(&model, &date, &p.Predicted, &actual); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		if p.Date, err = calendar.Parse(date); err != nil {
			return nil, err
		}
		if actual.Valid {
			v := actual.Float64
			p.Actual = &v
		}
		res := bundle[forecast.ModelID(model)]
		res.Predictions = append(res.Predictions, p)
		bundle[forecast.ModelID(model)] = res
	}
	return bundle, pts.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
