package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// Everything lives in one documents table keyed by (collection, id), where
// collection is a slash-separated path such as
// "branches/B1/inventory/MICHELIN/models". Timestamps are unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       TEXT NOT NULL CHECK (json_valid(data)),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection_created
    ON documents(collection, created_at);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
