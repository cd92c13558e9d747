// Package sqlite serves the penguin table from a SQLite file using the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"penguindash/internal/infra/source/sqlstore"
	"penguindash/internal/penguins"
)

const driverName = "sqlite"

// Dialect uses ? placeholders.
var Dialect = sqlstore.Dialect{
	Name:        driverName,
	Placeholder: func(int) string { return "?" },
	RealType:    "REAL",
	IntegerType: "INTEGER",
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

// Load reads table from the database at path.
func Load(ctx context.Context, path, table string) ([]penguins.Record, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite database: %w", err)
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return sqlstore.Load(ctx, db, table)
}

// Seed writes records into table of the database at path.
func Seed(ctx context.Context, path, table string, records []penguins.Record) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return sqlstore.Seed(ctx, db, Dialect, table, records)
}
