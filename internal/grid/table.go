// Package grid projects a filtered view onto the data-grid columns and
// applies the grid's own per-column filters and sorting.
package grid

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"penguindash/internal/penguins"
	"penguindash/pkg/datasetapi"
)

// Columns is the fixed grid projection, in display order.
var Columns = []datasetapi.Column{
	{Name: penguins.FieldSpecies, Label: "Species", Type: datasetapi.TypeString},
	{Name: penguins.FieldIsland, Label: "Island", Type: datasetapi.TypeString},
	{Name: penguins.FieldBillLength, Label: "Bill length", Type: datasetapi.TypeNumber, Unit: "mm"},
	{Name: penguins.FieldBillDepth, Label: "Bill depth", Type: datasetapi.TypeNumber, Unit: "mm"},
	{Name: penguins.FieldBodyMass, Label: "Body mass", Type: datasetapi.TypeInteger, Unit: "g"},
}

// Column looks up a grid column by name.
func Column(name string) (datasetapi.Column, bool) {
	for _, c := range Columns {
		if c.Name == name {
			return c, true
		}
	}
	return datasetapi.Column{}, false
}

// Rows is the record sequence a table is built from.
type Rows interface {
	Len() int
	At(i int) penguins.Record
}

// Table is an immutable grid over a sequence of records.
type Table struct {
	records []penguins.Record
}

// New copies rows into a table.
func New(rows Rows) Table {
	records := make([]penguins.Record, rows.Len())
	for i := range records {
		records[i] = rows.At(i)
	}
	return Table{records: records}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.records) }

// At returns the record behind row i.
func (t Table) At(i int) penguins.Record { return t.records[i] }

// Value returns the typed value of column for row i, or nil when missing.
func (t Table) Value(i int, column string) any {
	return value(t.records[i], column)
}

// Cell returns the display text of column for row i. Missing values are empty.
func (t Table) Cell(i int, column string) string {
	switch v := t.Value(i, column).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Cells returns every row as display text in column order.
func (t Table) Cells() [][]string {
	out := make([][]string, len(t.records))
	for i := range t.records {
		row := make([]string, len(Columns))
		for j, c := range Columns {
			row[j] = t.Cell(i, c.Name)
		}
		out[i] = row
	}
	return out
}

// Rows returns the rows keyed by column name.
func (t Table) Rows() []datasetapi.Row {
	out := make([]datasetapi.Row, len(t.records))
	for i := range t.records {
		row := make(datasetapi.Row, len(Columns))
		for _, c := range Columns {
			row[c.Name] = t.Value(i, c.Name)
		}
		out[i] = row
	}
	return out
}

// Result wraps the table as a render-ready dataset result.
func (t Table) Result(generatedAt time.Time) datasetapi.Result {
	return datasetapi.Result{
		Schema:      append([]datasetapi.Column(nil), Columns...),
		Rows:        t.Rows(),
		Metadata:    map[string]any{"rows": t.Len()},
		GeneratedAt: generatedAt.UTC(),
	}
}

// WriteCSV writes a header row and one line per row.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Name
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range t.Cells() {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// MarshalJSON encodes the schema and rows.
func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []datasetapi.Column `json:"columns"`
		Rows    []datasetapi.Row    `json:"rows"`
	}{Columns: Columns, Rows: t.Rows()})
}

func value(r penguins.Record, column string) any {
	switch column {
	case penguins.FieldSpecies:
		return nonEmpty(r.Species)
	case penguins.FieldIsland:
		return nonEmpty(r.Island)
	case penguins.FieldBillLength:
		if r.BillLengthMM.Valid {
			return r.BillLengthMM.Float64
		}
	case penguins.FieldBillDepth:
		if r.BillDepthMM.Valid {
			return r.BillDepthMM.Float64
		}
	case penguins.FieldBodyMass:
		if r.BodyMassG.Valid {
			return r.BodyMassG.Int64
		}
	}
	return nil
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
