// Package sqlstore reads and writes the penguin table over database/sql.
// Dialect differences (placeholders and column types) are supplied by the
// sqlite and postgres packages.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"penguindash/internal/penguins"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "penguins"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	RealType    string
	IntegerType string
}

// ValidateTable rejects names that are not plain identifiers, since table
// names cannot be bound as parameters.
func ValidateTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	return table, ValidateTable(table)
}

var columns = []string{
	penguins.FieldSpecies,
	penguins.FieldIsland,
	penguins.FieldBillLength,
	penguins.FieldBillDepth,
	penguins.FieldFlipperLength,
	penguins.FieldBodyMass,
	penguins.FieldSex,
	penguins.FieldYear,
}

// CreateTableSQL returns the DDL for the penguin table.
func (d Dialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	row_order %s PRIMARY KEY,
	species TEXT,
	island TEXT,
	bill_length_mm %s,
	bill_depth_mm %s,
	flipper_length_mm %s,
	body_mass_g %s,
	sex TEXT,
	year %s
)`, table, d.IntegerType, d.RealType, d.RealType, d.RealType, d.IntegerType, d.IntegerType)
}

// InsertSQL returns the parameterized insert for one record.
func (d Dialect) InsertSQL(table string) string {
	placeholders := make([]string, len(columns)+1)
	for i := range placeholders {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (row_order, %s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// SelectSQL returns the query reading every record in row order.
func SelectSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY row_order", strings.Join(columns, ", "), table)
}

// Load reads all records from table in row order.
func Load(ctx context.Context, db *sql.DB, table string) ([]penguins.Record, error) {
	table, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, SelectSQL(table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []penguins.Record
	for rows.Next() {
		var (
			species, island, sex sql.NullString
			year                 sql.NullInt64
			r                    penguins.Record
		)
		if err := rows.Scan(&species, &island, &r.BillLengthMM, &r.BillDepthMM, &r.FlipperLengthMM, &r.BodyMassG, &sex, &year); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", table, len(out)+1, err)
		}
		r.Species, r.Island, r.Sex = species.String, island.String, sex.String
		r.Year = int(year.Int64)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// Seed replaces the contents of table with records inside one transaction,
// creating the table when missing.
func Seed(ctx context.Context, db *sql.DB, d Dialect, table string, records []penguins.Record) (retErr error) {
	table, err := resolveTable(table)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, d.CreateTableSQL(table)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	insert := d.InsertSQL(table)
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, insert,
			i, nullString(r.Species), nullString(r.Island),
			r.BillLengthMM, r.BillDepthMM, r.FlipperLengthMM, r.BodyMassG,
			nullString(r.Sex), nullYear(r.Year)); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullYear(y int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(y), Valid: y != 0}
}
