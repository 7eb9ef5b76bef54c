package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmptySymbol is returned when a blank symbol is added or removed.
var ErrEmptySymbol = errors.New("symbol must not be empty")

// Entry is one saved stock.
type Entry struct {
	Owner   string    `json:"owner"`
	Symbol  string    `json:"symbol"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// Store keeps per-owner lists of saved symbols in SQLite. Owner is an opaque
// id supplied by the caller (a chat id, an API user).
type Store struct {
	db    *sql.DB
	owned bool
}

// Open creates the table in db if needed. The caller keeps ownership of db.
func Open(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS watchlist (
		owner    TEXT NOT NULL,
		symbol   TEXT NOT NULL,
		name     TEXT,
		added_at INTEGER NOT NULL,
		PRIMARY KEY (owner, symbol)
	)`); err != nil {
		return nil, fmt.Errorf("create watchlist table: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenFile opens a standalone database at path, for setups without a recorder.
func OpenFile(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := Open(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// Close releases the database if the store opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Add saves symbol for owner. Adding an existing symbol updates its name.
func (s *Store) Add(ctx context.Context, owner, symbol, name string) error {
	symbol = normalize(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO watchlist (owner, symbol, name, added_at)
		VALUES (?,?,?,?)
		ON CONFLICT(owner, symbol) DO UPDATE SET name = CASE WHEN excluded.name != '' THEN excluded.name ELSE watchlist.name END`,
		owner, symbol, name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add %s: %w", symbol, err)
	}
	return nil
}

// Remove deletes symbol from owner's list and reports whether it was present.
func (s *Store) Remove(ctx context.Context, owner, symbol string) (bool, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return false, ErrEmptySymbol
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE owner = ? AND symbol = ?`, owner, symbol)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns owner's entries in the order they were added.
func (s *Store) List(ctx context.Context, owner string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, symbol, COALESCE(name, ''), added_at
		FROM watchlist WHERE owner = ? ORDER BY added_at, rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.Owner, &e.Symbol, &e.Name, &ts); err != nil {
			return nil, err
		}
		e.AddedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Symbols returns every distinct watched symbol across owners, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
