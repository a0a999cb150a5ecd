package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	ID        string    `json:"document_id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentOption configures a document handle.
type DocumentOption func(*Document)

// AsUser opens the handle on behalf of user. The handle may write only when
// user owns the document; an empty user acts with full rights.
func AsUser(user string) DocumentOption {
	return func(d *Document) { d.user = user }
}

// CreateDocument stores a new document with a UUID v7 id and returns a handle
// to it. owner may be empty, leaving the document writable by every user.
func (b *Backend) CreateDocument(ctx context.Context, name, owner string, opts ...DocumentOption) (*Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	info := DocumentInfo{
		ID:        generateUUID(),
		Name:      name,
		Owner:     owner,
		CreatedAt: b.now().UTC().Truncate(time.Second),
	}
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO documents (document_id, name, owner, created_at) VALUES (?, ?, ?, ?)",
		info.ID, info.Name, info.Owner, info.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	if err := b.persist(documentsFile, "create", b.persistDocuments); err != nil {
		return nil, err
	}
	return b.handle(info, opts), nil
}

// Document returns a handle to the document with the given id.
// Returns ErrInvalidID for an empty id and ErrDocumentNotFound if absent.
func (b *Backend) Document(ctx context.Context, id string, opts ...DocumentOption) (*Document, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	info, err := b.documentInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.handle(info, opts), nil
}

// FindDocument returns a handle to the document whose id or name equals ref.
// Ids win over names; among equal names the oldest document is returned.
func (b *Backend) FindDocument(ctx context.Context, ref string, opts ...DocumentOption) (*Document, error) {
	if ref == "" {
		return nil, types.ErrInvalidID
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	info, err := b.documentInfo(ctx, ref)
	if errors.Is(err, types.ErrDocumentNotFound) {
		row := b.db.QueryRowContext(ctx,
			"SELECT document_id, name, owner, created_at FROM documents WHERE name = ? ORDER BY created_at, document_id LIMIT 1", ref)
		info, err = scanDocument(row)
	}
	if err != nil {
		return nil, err
	}
	return b.handle(info, opts), nil
}

// ListDocuments returns every document ordered by name, then id.
func (b *Backend) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.queryDocuments(ctx, "SELECT document_id, name, owner, created_at FROM documents ORDER BY name, document_id")
}

// DeleteDocument removes a document and all of its flags.
// Returns ErrDocumentNotFound if absent.
func (b *Backend) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM flags WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting flags: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE document_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrDocumentNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	if err := b.persist(documentsFile, "delete", b.persistDocuments); err != nil {
		return err
	}
	return b.persist(flagsFile, "delete", b.persistFlags)
}

func (b *Backend) handle(info DocumentInfo, opts []DocumentOption) *Document {
	d := &Document{backend: b, info: info}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// documentInfo loads one document row. The caller must hold b.mu.
func (b *Backend) documentInfo(ctx context.Context, id string) (DocumentInfo, error) {
	row := b.db.QueryRowContext(ctx,
		"SELECT document_id, name, owner, created_at FROM documents WHERE document_id = ?", id)
	info, err := scanDocument(row)
	if errors.Is(err, types.ErrDocumentNotFound) {
		return DocumentInfo{}, fmt.Errorf("%w: %s", types.ErrDocumentNotFound, id)
	}
	return info, err
}

func (b *Backend) queryDocuments(ctx context.Context, query string, args ...any) ([]DocumentInfo, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		info, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (DocumentInfo, error) {
	var info DocumentInfo
	var createdAt string
	err := row.Scan(&info.ID, &info.Name, &info.Owner, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentInfo{}, types.ErrDocumentNotFound
	}
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("scanning document: %w", err)
	}
	info.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("parsing document created_at: %w", err)
	}
	return info, nil
}

// persistDocuments rewrites documents.jsonl from the documents table.
func (b *Backend) persistDocuments() error {
	infos, err := b.queryDocuments(context.Background(),
		"SELECT document_id, name, owner, created_at FROM documents ORDER BY created_at, document_id")
	if err != nil {
		return err
	}
	rows := make([]documentJSON, len(infos))
	for i, info := range infos {
		rows[i] = documentJSON{
			DocumentID: info.ID,
			Name:       info.Name,
			Owner:      info.Owner,
			CreatedAt:  info.CreatedAt.Format(time.RFC3339),
		}
	}
	records, err := marshalRecords(rows)
	if err != nil {
		return err
	}
	return writeJSONL(b.filePath(documentsFile), records)
}

func (b *Backend) filePath(name string) string {
	return filepath.Join(b.config.DataDir, name)
}
