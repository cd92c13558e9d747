package penguins

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// requiredColumns must appear in every CSV header; the rest are optional.
var requiredColumns = []string{FieldSpecies, FieldIsland, FieldBillLength, FieldBillDepth, FieldBodyMass}

// ParseCSV reads records from CSV with a header row. Columns are matched by
// name (case-insensitive, surrounding spaces ignored) so column order and
// extra columns do not matter. "NA" and empty cells are missing values.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", col)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, index map[string]int) (Record, error) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[i])
		if isMissing(v) {
			return ""
		}
		return v
	}

	rec := Record{
		Species: cell(FieldSpecies),
		Island:  cell(FieldIsland),
		Sex:     cell(FieldSex),
	}
	var err error
	if rec.BillLengthMM, err = parseFloat(FieldBillLength, cell(FieldBillLength)); err != nil {
		return Record{}, err
	}
	if rec.BillDepthMM, err = parseFloat(FieldBillDepth, cell(FieldBillDepth)); err != nil {
		return Record{}, err
	}
	if rec.FlipperLengthMM, err = parseFloat(FieldFlipperLength, cell(FieldFlipperLength)); err != nil {
		return Record{}, err
	}
	if rec.BodyMassG, err = parseInt(FieldBodyMass, cell(FieldBodyMass)); err != nil {
		return Record{}, err
	}
	if y := cell(FieldYear); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %q is not an integer", FieldYear, y)
		}
		rec.Year = year
	}
	return rec, nil
}

func isMissing(v string) bool {
	return v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "NaN")
}

func parseFloat(field, v string) (sql.NullFloat64, error) {
	if v == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("%s: %q is not a number", field, v)
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

// parseInt accepts integral floats ("3750.0") since some exports widen the
// mass column.
func parseInt(field, v string) (sql.NullInt64, error) {
	if v == "" {
		return sql.NullInt64{}, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return sql.NullInt64{Int64: n, Valid: true}, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int64(f)) {
		return sql.NullInt64{}, fmt.Errorf("%s: %q is not an integer", field, v)
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}, nil
}

// WriteCSV writes records with the canonical header. Missing values are
// written as NA so the output parses back with ParseCSV.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	header := []string{FieldSpecies, FieldIsland, FieldBillLength, FieldBillDepth, FieldFlipperLength, FieldBodyMass, FieldSex, FieldYear}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			orNA(r.Species),
			orNA(r.Island),
			formatNullFloat(r.BillLengthMM),
			formatNullFloat(r.BillDepthMM),
			formatNullFloat(r.FlipperLengthMM),
			formatNullInt(r.BodyMassG),
			orNA(r.Sex),
			strconv.Itoa(r.Year),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func orNA(v string) string {
	if v == "" {
		return "NA"
	}
	return v
}

func formatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return "NA"
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return "NA"
	}
	return strconv.FormatInt(v.Int64, 10)
}
