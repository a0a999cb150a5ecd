package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL for the flag store.
const (
	createDocuments = `CREATE TABLE documents (
    document_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

	// value holds the JSON encoding of the flag value. ordinal records
	// insertion order so a namespace lists keys the way they were added.
	createFlags = `CREATE TABLE flags (
    document_id TEXT NOT NULL,
    namespace TEXT NOT NULL,
    flag_key TEXT NOT NULL,
    value TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (document_id, namespace, flag_key),
    FOREIGN KEY (document_id) REFERENCES documents(document_id) ON DELETE CASCADE
);`
)

// Index DDL.
const (
	idxDocumentsName  = `CREATE INDEX idx_documents_name ON documents(name);`
	idxFlagsNamespace = `CREATE INDEX idx_flags_namespace ON flags(document_id, namespace, ordinal);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createDocuments,
	createFlags,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxDocumentsName,
	idxFlagsNamespace,
}

// createSchema creates every table and index.
func createSchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
