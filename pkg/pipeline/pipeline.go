// Package pipeline orchestrates file ingestion: it is the only
// component allowed to move a record from pending to persisted, and the
// only one keeping the catalog and the storage directory in sync.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/filedrop/filedrop/pkg/catalog"
	"github.com/filedrop/filedrop/pkg/encode"
	"github.com/filedrop/filedrop/pkg/store"
	"github.com/filedrop/filedrop/pkg/types"
)

const defaultContentType = "application/octet-stream"

// Pipeline wires the file store and the catalog together.
type Pipeline struct {
	store   *store.Store
	catalog *catalog.Catalog
	logger  *log.Logger
}

// New builds a pipeline over an already-constructed store and catalog.
func New(st *store.Store, cat *catalog.Catalog, logger *log.Logger) *Pipeline {
	return &Pipeline{store: st, catalog: cat, logger: logger}
}

// Ingest validates the record, writes its decoded payload to disk and
// registers it in the catalog. On success the record transitions to
// persisted: StoredPath is set and the in-memory payload dropped.
//
// A catalog failure after a successful write leaves the file on disk;
// user bytes are never rolled back over a metadata error. Reconcile
// picks up the inconsistency later.
func (p *Pipeline) Ingest(ctx context.Context, rec *types.Record) (string, error) {
	if rec == nil || rec.ID == "" || rec.Name == "" || rec.Payload == "" {
		return "", fmt.Errorf("record needs id, name and payload: %w", types.ErrValidation)
	}

	data, err := encode.Decode(rec.Payload)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, types.ErrValidation)
	}

	path, err := p.store.Write(diskName(rec), data)
	if err != nil {
		return "", err
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = detectContentType(rec.Name, data)
	}

	row := &types.Row{
		ID:          rec.ID,
		Name:        rec.Name,
		OriginPath:  rec.OriginPath,
		StoredPath:  path,
		ContentType: contentType,
	}
	if err := p.catalog.Insert(ctx, row); err != nil {
		p.logger.Error("catalog insert failed, file left on disk",
			"id", rec.ID, "path", path, "error", err)
		return "", fmt.Errorf("register %s: %w", rec.ID, err)
	}

	rec.Payload = ""
	rec.StoredPath = path
	rec.ContentType = contentType

	p.logger.Info("file ingested", "id", rec.ID, "path", path, "type", contentType)
	return rec.ID, nil
}

// List returns the catalog rows whose stored file is still readable.
// Rows pointing at missing files are logged and skipped, never deleted
// here; Reconcile does the cleanup explicitly.
func (p *Pipeline) List(ctx context.Context) ([]*types.Row, error) {
	rows, err := p.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, row := range rows {
		if row.StoredPath != "" && !p.store.Exists(row.StoredPath) {
			p.logger.Warn("stale catalog row, stored file missing",
				"id", row.ID, "path", row.StoredPath)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Files returns the persisted records with their payload re-read from
// disk and encoded. Nothing is cached between calls.
func (p *Pipeline) Files(ctx context.Context) ([]*types.Record, error) {
	rows, err := p.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		payload, err := p.store.Read(row.StoredPath)
		if err != nil {
			// the file vanished between listing and reading
			p.logger.Warn("skipping unreadable file", "id", row.ID, "error", err)
			continue
		}
		records = append(records, &types.Record{
			ID:          row.ID,
			Name:        row.Name,
			OriginPath:  row.OriginPath,
			StoredPath:  row.StoredPath,
			Payload:     payload,
			ContentType: row.ContentType,
		})
	}
	return records, nil
}

// Read returns the encoded contents of an arbitrary absolute path.
func (p *Pipeline) Read(_ context.Context, path string) (string, error) {
	return p.store.Read(path)
}

// Remove deletes the stored file (best effort) and then the catalog
// row. A failing file delete never blocks metadata cleanup, and a
// missing id is already-satisfied success.
func (p *Pipeline) Remove(ctx context.Context, id string) error {
	row, err := p.catalog.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if row.StoredPath != "" {
		if err := p.store.Delete(row.StoredPath); err != nil {
			p.logger.Warn("file delete failed, removing row anyway",
				"id", id, "path", row.StoredPath, "error", err)
		}
	}
	return p.catalog.Delete(ctx, id)
}

// Reconcile drops catalog rows whose stored file no longer exists and
// returns how many were removed. Called explicitly, never during
// listing.
func (p *Pipeline) Reconcile(ctx context.Context) (int, error) {
	rows, err := p.catalog.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, row := range rows {
		if row.StoredPath == "" || p.store.Exists(row.StoredPath) {
			continue
		}
		if err := p.catalog.Delete(ctx, row.ID); err != nil {
			return removed, err
		}
		p.logger.Info("reconciled stale row", "id", row.ID, "path", row.StoredPath)
		removed++
	}
	return removed, nil
}

// diskName keys the on-disk file by the record id, keeping the display
// name's extension. Two drops of the same display name never collide.
func diskName(rec *types.Record) string {
	return rec.ID + strings.ToLower(filepath.Ext(rec.Name))
}

func detectContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	if mt := mimetype.Detect(data); mt.String() != "" {
		return mt.String()
	}
	return defaultContentType
}
