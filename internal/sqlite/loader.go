package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL files to their tables and columns. Tables
// referenced by foreign keys load first. Columns listed in jsonColumns hold
// JSON text and are stored re-encoded, whatever the value type.
var jsonlTableMapping = []struct {
	file        string
	table       string
	columns     []string
	jsonColumns map[string]bool
}{
	{
		file:    documentsFile,
		table:   "documents",
		columns: []string{"document_id", "name", "owner", "created_at"},
	},
	{
		file:        flagsFile,
		table:       "flags",
		columns:     []string{"document_id", "namespace", "flag_key", "value", "ordinal"},
		jsonColumns: map[string]bool{"value": true},
	},
}

// loadAllJSONL reads each JSONL file from dataDir into its table inside one
// transaction: either every file loads or the database stays empty.
// Malformed lines and records that violate constraints, such as flags of an
// unknown document, are skipped. Unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, mapping.table, mapping.columns, mapping.jsonColumns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into table. Only the listed
// columns are extracted; a missing column inserts NULL and lets the schema
// decide.
func insertRecords(tx *sql.Tx, table string, columns []string, jsonColumns map[string]bool, records []json.RawMessage) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			raw, ok := obj[col]
			if !ok {
				continue
			}
			if jsonColumns[col] {
				args[i] = string(raw)
				continue
			}
			var val any
			if err := json.Unmarshal(raw, &val); err != nil {
				continue
			}
			args[i] = val
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}
