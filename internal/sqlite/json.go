package sqlite

import "encoding/json"

// JSONL record layouts. Field names match the SQLite column names so the
// loader can map records to columns directly.

// documentJSON is one line of documents.jsonl.
type documentJSON struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	CreatedAt  string `json:"created_at"`
}

// flagJSON is one line of flags.jsonl. Value is the flag value itself, not
// its string encoding.
type flagJSON struct {
	DocumentID string          `json:"document_id"`
	Namespace  string          `json:"namespace"`
	FlagKey    string          `json:"flag_key"`
	Value      json.RawMessage `json:"value"`
	Ordinal    int64           `json:"ordinal"`
}
