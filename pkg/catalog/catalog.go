// Package catalog is the embedded relational store of file metadata.
// It owns the single files table and every row's lifecycle.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/filedrop/filedrop/pkg/types"
	_ "modernc.org/sqlite"
)

// Catalog wraps the single process-wide database handle. It is created
// once at boot and closed exactly once on shutdown; operations after
// Close fail fast with types.ErrClosed.
type Catalog struct {
	db     *sql.DB
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens (or creates) the database at dbPath. Table creation runs
// only when the init-state marker next to the database says it has not
// happened yet.
func Open(fs afero.Fs, dbPath string, logger *log.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	// the engine serializes writers internally; one connection keeps
	// the lock contention out of the pool
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", dbPath, err)
	}

	c := &Catalog{db: db, logger: logger}

	state, err := loadState(fs, dbPath)
	if err != nil {
		logger.Warn("init state unreadable, re-running schema setup", "error", err)
	}
	if !state.DatabaseInitialized {
		if err := c.initTables(); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize tables: %w", err)
		}
		if err := saveState(fs, dbPath, initState{
			DatabaseInitialized: true,
			InitializedAt:       time.Now().UTC(),
		}); err != nil {
			logger.Warn("failed to write init state", "error", err)
		}
	}

	return c, nil
}

func (c *Catalog) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		origin_path TEXT,
		stored_path TEXT,
		content_type TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_created_at ON files(created_at);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Close tears down the database handle. Safe to call once; later
// catalog operations return types.ErrClosed.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func (c *Catalog) guard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return types.ErrClosed
	}
	return nil
}

// Insert creates a new row for the record, stamping created_at and
// updated_at. An existing id reports types.ErrDuplicate.
func (c *Catalog) Insert(ctx context.Context, row *types.Row) error {
	if err := c.guard(); err != nil {
		return err
	}

	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	return insertRow(ctx, c.db, row)
}

// Update applies only the supplied fields to the row and refreshes
// updated_at. An empty fields map is a no-op. A missing id reports
// types.ErrNotFound.
func (c *Catalog) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := c.guard(); err != nil {
		return err
	}
	return updateRow(ctx, c.db, id, fields)
}

// Delete removes the row. Deleting an id that does not exist is
// success; only engine errors propagate.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.guard(); err != nil {
		return err
	}

	if _, err := c.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete row %s: %w", id, err)
	}
	return nil
}

// Get returns the row for id, or types.ErrNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*types.Row, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	row := c.db.QueryRowContext(ctx, `
		SELECT id, name, origin_path, stored_path, content_type, created_at, updated_at
		FROM files WHERE id = ?`, id)

	r, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("row %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get row %s: %w", id, err)
	}
	return r, nil
}

// ListAll returns every row, newest created_at first. The result is
// computed fresh on each call.
func (c *Catalog) ListAll(ctx context.Context) ([]*types.Row, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, origin_path, stored_path, content_type, created_at, updated_at
		FROM files ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []*types.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tx exposes the mutating operations inside one transaction.
type Tx struct {
	tx *sql.Tx
}

// Insert mirrors Catalog.Insert within the transaction.
func (t *Tx) Insert(ctx context.Context, row *types.Row) error {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	return insertRow(ctx, t.tx, row)
}

// Update mirrors Catalog.Update within the transaction.
func (t *Tx) Update(ctx context.Context, id string, fields map[string]any) error {
	return updateRow(ctx, t.tx, id, fields)
}

// Delete mirrors Catalog.Delete within the transaction.
func (t *Tx) Delete(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete row %s: %w", id, err)
	}
	return nil
}

// Batch runs fn inside a single transaction, committing only if fn
// returns nil. Compound operations like insert-then-update stay atomic.
func (c *Catalog) Batch(ctx context.Context, fn func(*Tx) error) error {
	if err := c.guard(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, db execer, row *types.Row) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO files (id, name, origin_path, stored_path, content_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name,
		nullable(row.OriginPath), nullable(row.StoredPath), nullable(row.ContentType),
		row.CreatedAt, row.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert row %s: %w", row.ID, types.ErrDuplicate)
		}
		return fmt.Errorf("insert row %s: %w", row.ID, err)
	}
	return nil
}

func updateRow(ctx context.Context, db execer, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setParts := []string{}
	args := []any{}

	for field, value := range fields {
		switch field {
		case "name", "origin_path", "stored_path", "content_type":
			setParts = append(setParts, fmt.Sprintf("%s = ?", field))
			args = append(args, value)
		default:
			return fmt.Errorf("update row %s: unknown field %q", id, field)
		}
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE files SET %s WHERE id = ?", strings.Join(setParts, ", "))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update row %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update row %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update row %s: %w", id, types.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*types.Row, error) {
	var r types.Row
	var originPath, storedPath, contentType sql.NullString

	err := s.Scan(&r.ID, &r.Name, &originPath, &storedPath, &contentType, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.OriginPath = originPath.String
	r.StoredPath = storedPath.String
	r.ContentType = contentType.String
	return &r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
