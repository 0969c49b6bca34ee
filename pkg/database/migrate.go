package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql (or INDIEHUB_SCHEMA_PATH) to the db.
// The schema is written to be idempotent, so this is safe on every boot.
func Migrate(db *sql.DB) error {
	path := os.Getenv("INDIEHUB_SCHEMA_PATH")
	if path == "" {
		path = "docs/schema.sql"
	}
	return MigrateFrom(db, path)
}

func MigrateFrom(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
