package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// Document is a handle to one stored document. It implements
// types.Document; each flag call is one statement under the backend lock.
type Document struct {
	backend *Backend
	info    DocumentInfo
	user    string
}

var _ types.Document = (*Document)(nil)

// ID returns the document id.
func (d *Document) ID() string { return d.info.ID }

// Name returns the document name.
func (d *Document) Name() string { return d.info.Name }

// Info returns the stored document attributes.
func (d *Document) Info() DocumentInfo { return d.info }

// IsOwner reports whether the handle's user may modify the document.
func (d *Document) IsOwner() bool {
	return d.user == "" || d.info.Owner == "" || d.user == d.info.Owner
}

// Flags returns the namespace in insertion order. A detached backend or a
// failed query yields no flags; the failure is logged.
func (d *Document) Flags(namespace string) []types.Flag {
	b := d.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil
	}

	rows, err := b.db.Query(
		"SELECT flag_key, value FROM flags WHERE document_id = ? AND namespace = ? ORDER BY ordinal",
		d.info.ID, namespace)
	if err != nil {
		slog.Warn("listing flags", "document", d.info.ID, "namespace", namespace, "error", err)
		return nil
	}
	defer rows.Close()

	var flags []types.Flag
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			slog.Warn("scanning flag", "document", d.info.ID, "namespace", namespace, "error", err)
			return nil
		}
		value, err := decodeValue(raw)
		if err != nil {
			slog.Warn("skipping undecodable flag", "document", d.info.ID, "key", key, "error", err)
			continue
		}
		flags = append(flags, types.Flag{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		slog.Warn("listing flags", "document", d.info.ID, "namespace", namespace, "error", err)
		return nil
	}
	return flags
}

// GetFlag returns the value stored under namespace/key.
func (d *Document) GetFlag(ctx context.Context, namespace, key string) (any, bool, error) {
	b := d.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, false, types.ErrBackendDetached
	}

	raw, ok, err := d.lookup(ctx, namespace, key)
	if err != nil || !ok {
		return nil, false, err
	}
	value, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetFlag stores value under namespace/key. An object value is merged into
// an existing object value key by key; anything else replaces it.
func (d *Document) SetFlag(ctx context.Context, namespace, key string, value any) error {
	incoming, err := types.NormalizeFlagValue(value)
	if err != nil {
		return err
	}

	b := d.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrBackendDetached
	}
	if _, err := b.documentInfo(ctx, d.info.ID); err != nil {
		return err
	}

	raw, exists, err := d.lookup(ctx, namespace, key)
	if err != nil {
		return err
	}
	if exists {
		existing, err := decodeValue(raw)
		if err != nil {
			return err
		}
		incoming = types.MergeFlagValue(existing, incoming)
	}
	encoded, err := json.Marshal(incoming)
	if err != nil {
		return fmt.Errorf("encoding flag %s: %w", key, err)
	}

	if exists {
		_, err = b.db.ExecContext(ctx,
			"UPDATE flags SET value = ? WHERE document_id = ? AND namespace = ? AND flag_key = ?",
			string(encoded), d.info.ID, namespace, key)
	} else {
		_, err = b.db.ExecContext(ctx,
			`INSERT INTO flags (document_id, namespace, flag_key, value, ordinal)
			 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM flags WHERE document_id = ?))`,
			d.info.ID, namespace, key, string(encoded), d.info.ID)
	}
	if err != nil {
		return fmt.Errorf("writing flag %s: %w", key, err)
	}
	return b.persist(flagsFile, "set", b.persistFlags)
}

// UnsetFlag removes namespace/key. Removing an absent key writes nothing.
func (d *Document) UnsetFlag(ctx context.Context, namespace, key string) error {
	b := d.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	res, err := b.db.ExecContext(ctx,
		"DELETE FROM flags WHERE document_id = ? AND namespace = ? AND flag_key = ?",
		d.info.ID, namespace, key)
	if err != nil {
		return fmt.Errorf("removing flag %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return b.persist(flagsFile, "unset", b.persistFlags)
}

// lookup returns the JSON text stored under namespace/key.
// The caller must hold the backend lock.
func (d *Document) lookup(ctx context.Context, namespace, key string) (string, bool, error) {
	var raw string
	err := d.backend.db.QueryRowContext(ctx,
		"SELECT value FROM flags WHERE document_id = ? AND namespace = ? AND flag_key = ?",
		d.info.ID, namespace, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading flag %s: %w", key, err)
	}
	return raw, true, nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decoding flag value: %w", err)
	}
	return v, nil
}

// persistFlags rewrites flags.jsonl from the flags table.
func (b *Backend) persistFlags() error {
	rows, err := b.db.Query(
		"SELECT document_id, namespace, flag_key, value, ordinal FROM flags ORDER BY document_id, ordinal")
	if err != nil {
		return fmt.Errorf("querying flags: %w", err)
	}
	defer rows.Close()

	var out []flagJSON
	for rows.Next() {
		var f flagJSON
		var raw string
		if err := rows.Scan(&f.DocumentID, &f.Namespace, &f.FlagKey, &raw, &f.Ordinal); err != nil {
			return fmt.Errorf("scanning flag: %w", err)
		}
		f.Value = json.RawMessage(raw)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	records, err := marshalRecords(out)
	if err != nil {
		return err
	}
	return writeJSONL(b.filePath(flagsFile), records)
}
