package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perbu/reporag/pkg/minirag"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS embedding_records (
	seq     INTEGER PRIMARY KEY,
	path    TEXT NOT NULL,
	content TEXT NOT NULL,
	vector  TEXT NOT NULL
)`

// SQLiteBackend stores records in a SQLite table, one row per record with
// the vector as a JSON array. Replace runs in a single transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection serializes writers and keeps pragmas consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load reads all records in insertion order.
func (b *SQLiteBackend) Load(ctx context.Context) (minirag.Collection, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT path, content, vector FROM embedding_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	defer rows.Close()

	c := minirag.Collection{}
	for rows.Next() {
		var r minirag.Record
		var vecStr string
		if err := rows.Scan(&r.Path, &r.Content, &vecStr); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", minirag.ErrCorruptStore, err)
		}
		if err := json.Unmarshal([]byte(vecStr), &r.Vector); err != nil {
			return nil, fmt.Errorf("%w: vector of %s: %v", minirag.ErrCorruptStore, r.Path, err)
		}
		c = append(c, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return c, nil
}

// Replace deletes every record and inserts c within one transaction.
func (b *SQLiteBackend) Replace(ctx context.Context, c minirag.Collection) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embedding_records (seq, path, content, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range c {
		vecJSON, err := json.Marshal(r.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, i, r.Path, r.Content, string(vecJSON)); err != nil {
			return fmt.Errorf("insert record %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}
