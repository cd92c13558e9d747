// Package summary computes the value-box statistics over a filtered view.
package summary

import (
	"fmt"

	"penguindash/internal/penguins"
)

// NoData is shown in place of a statistic that has no input values.
const NoData = "N/A"

// Rows is the read-only record sequence statistics are computed over.
type Rows interface {
	Len() int
	At(i int) penguins.Record
}

// Stat is an aggregate with an explicit no-data state.
type Stat struct {
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
	N     int     `json:"n"`
}

// Count returns the number of rows.
func Count(rows Rows) int { return rows.Len() }

// Mean averages field over rows, skipping missing values. OK is false when
// no row has a value.
func Mean(rows Rows, field string) Stat {
	var sum float64
	var n int
	for i := 0; i < rows.Len(); i++ {
		if v, ok := rows.At(i).Measurement(field); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return Stat{}
	}
	return Stat{Value: sum / float64(n), OK: true, N: n}
}

// Label formats the statistic to one decimal place followed by unit, or
// NoData.
func (s Stat) Label(unit string) string {
	if !s.OK {
		return NoData
	}
	if unit == "" {
		return fmt.Sprintf("%.1f", s.Value)
	}
	return fmt.Sprintf("%.1f %s", s.Value, unit)
}
