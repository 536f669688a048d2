package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/happyhackingspace/rapgen/lexicon"
)

// ErrNotFound is returned when a requested model snapshot does not exist.
var ErrNotFound = errors.New("storage: not found")

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key  TEXT NOT NULL,
	pos  INTEGER NOT NULL,
	word TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_key ON entries(key);
CREATE TABLE IF NOT EXISTS models (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	blob       BLOB NOT NULL
);
`

// DB stores dictionaries and serialized model bundles in SQLite.
type DB struct {
	db *sql.DB
}

// ModelInfo describes one stored model snapshot.
type ModelInfo struct {
	ID        string
	CreatedAt time.Time
	Size      int
}

// OpenDB opens the SQLite database at dsn and ensures the schema exists.
// Pass ":memory:" for a private in-memory database.
func OpenDB(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dsn, err)
	}
	// One connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveDictionary replaces the stored dictionary with dict.
func (d *DB) SaveDictionary(ctx context.Context, dict *lexicon.Dictionary) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries(key, pos, word) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range dict.Entries {
		key := strings.Join(e.Key, " ")
		for pos, w := range e.Words {
			if _, err := stmt.ExecContext(ctx, key, pos, w); err != nil {
				return fmt.Errorf("storage: insert %q: %w", key, err)
			}
		}
	}
	return tx.Commit()
}

// LoadDictionary reads the stored dictionary in insertion order.
func (d *DB) LoadDictionary(ctx context.Context) (*lexicon.Dictionary, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, word FROM entries ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dict := lexicon.NewDictionary()
	for rows.Next() {
		var key, word string
		if err := rows.Scan(&key, &word); err != nil {
			return nil, err
		}
		dict.Add(strings.Fields(key), word)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dict, nil
}

// SaveModel stores blob as a new snapshot and returns its id.
func (d *DB) SaveModel(ctx context.Context, blob []byte) (string, error) {
	id := uuid.New().String()
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO models(id, created_at, blob) VALUES(?, ?, ?)`,
		id, time.Now().UnixNano(), blob)
	if err != nil {
		return "", fmt.Errorf("storage: save model: %w", err)
	}
	return id, nil
}

// LoadModel returns the snapshot with the given id, or the newest snapshot
// when id is empty.
func (d *DB) LoadModel(ctx context.Context, id string) ([]byte, error) {
	var row *sql.Row
	if id == "" {
		row = d.db.QueryRowContext(ctx, `SELECT blob FROM models ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	} else {
		row = d.db.QueryRowContext(ctx, `SELECT blob FROM models WHERE id = ?`, id)
	}
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: model %q", ErrNotFound, id)
		}
		return nil, err
	}
	return blob, nil
}

// ListModels returns every snapshot, newest first.
func (d *DB) ListModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, created_at, length(blob) FROM models ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModelInfo
	for rows.Next() {
		var info ModelInfo
		var created int64
		if err := rows.Scan(&info.ID, &created, &info.Size); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(0, created)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteModel removes a snapshot.
func (d *DB) DeleteModel(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: model %q", ErrNotFound, id)
	}
	return nil
}
