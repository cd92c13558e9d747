package grid

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"penguindash/internal/penguins"
)

// FilterPrefix marks grid column filters in query parameters: f.<column>=<expr>.
const FilterPrefix = "f."

// SortParam names the query parameter selecting the sort column. A leading
// "-" sorts descending.
const SortParam = "sort"

// ErrUnknownColumn is returned for filters or sorts on a column outside the grid.
var ErrUnknownColumn = errors.New("grid: unknown column")

// Filter narrows grid rows on one column. Text columns match a
// case-insensitive substring. Numeric columns accept "min..max", "min..",
// "..max" or an exact value; bounds are inclusive and missing values never
// match.
type Filter struct {
	Column string `json:"column"`
	Expr   string `json:"expr"`

	numeric bool
	text    string
	min     *float64
	max     *float64
}

// ParseFilter validates expr against column.
func ParseFilter(column, expr string) (Filter, error) {
	col, ok := Column(column)
	if !ok {
		return Filter{}, fmt.Errorf("%w %q", ErrUnknownColumn, column)
	}
	expr = strings.TrimSpace(expr)
	f := Filter{Column: column, Expr: expr, numeric: col.Numeric()}
	if !f.numeric {
		f.text = strings.ToLower(expr)
		return f, nil
	}
	lo, hi, isRange := strings.Cut(expr, "..")
	if !isRange {
		v, err := parseBound(column, expr)
		if err != nil {
			return Filter{}, err
		}
		f.min, f.max = v, v
		return f, nil
	}
	var err error
	if f.min, err = parseBound(column, lo); err != nil {
		return Filter{}, err
	}
	if f.max, err = parseBound(column, hi); err != nil {
		return Filter{}, err
	}
	if f.min == nil && f.max == nil {
		return Filter{}, fmt.Errorf("grid: filter on %s needs a bound", column)
	}
	return f, nil
}

func parseBound(column, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil, fmt.Errorf("grid: filter on %s: %q is not a number", column, raw)
	}
	return &v, nil
}

// Match reports whether r passes the filter.
func (f Filter) Match(r penguins.Record) bool {
	v := value(r, f.Column)
	if !f.numeric {
		if f.text == "" {
			return true
		}
		s, _ := v.(string)
		return strings.Contains(strings.ToLower(s), f.text)
	}
	n, ok := numeric(v)
	if !ok {
		return false
	}
	if f.min != nil && n < *f.min {
		return false
	}
	if f.max != nil && n > *f.max {
		return false
	}
	return true
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Query is the grid's own filter and sort state.
type Query struct {
	Filters    []Filter `json:"filters,omitempty"`
	SortBy     string   `json:"sort_by,omitempty"`
	Descending bool     `json:"descending,omitempty"`
}

// ParseQuery reads f.<column> filters and the sort parameter. Empty filter
// values are ignored. Filters are ordered by column position.
func ParseQuery(values url.Values) (Query, error) {
	var q Query
	for _, c := range Columns {
		expr := strings.TrimSpace(values.Get(FilterPrefix + c.Name))
		if expr == "" {
			continue
		}
		f, err := ParseFilter(c.Name, expr)
		if err != nil {
			return Query{}, err
		}
		q.Filters = append(q.Filters, f)
	}
	for key := range values {
		if name, ok := strings.CutPrefix(key, FilterPrefix); ok {
			if _, known := Column(name); !known {
				return Query{}, fmt.Errorf("%w %q", ErrUnknownColumn, name)
			}
		}
	}
	if raw := strings.TrimSpace(values.Get(SortParam)); raw != "" {
		name, desc := strings.CutPrefix(raw, "-")
		if _, ok := Column(name); !ok {
			return Query{}, fmt.Errorf("%w %q", ErrUnknownColumn, name)
		}
		q.SortBy, q.Descending = name, desc
	}
	return q, nil
}

// Values encodes the query back into query parameters.
func (q Query) Values() url.Values {
	out := url.Values{}
	for _, f := range q.Filters {
		out.Set(FilterPrefix+f.Column, f.Expr)
	}
	if q.SortBy != "" {
		if q.Descending {
			out.Set(SortParam, "-"+q.SortBy)
		} else {
			out.Set(SortParam, q.SortBy)
		}
	}
	return out
}

// Expr returns the filter expression for column, or "".
func (q Query) Expr(column string) string {
	for _, f := range q.Filters {
		if f.Column == column {
			return f.Expr
		}
	}
	return ""
}

// Apply filters then stably sorts the table. Rows missing the sort value go
// last in either direction.
func (t Table) Apply(q Query) Table {
	out := make([]penguins.Record, 0, len(t.records))
	for _, r := range t.records {
		keep := true
		for _, f := range q.Filters {
			if !f.Match(r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	if q.SortBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return less(value(out[i], q.SortBy), value(out[j], q.SortBy), q.Descending)
		})
	}
	return Table{records: out}
}

func less(a, b any, desc bool) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	var cmp int
	if an, ok := numeric(a); ok {
		bn, _ := numeric(b)
		switch {
		case an < bn:
			cmp = -1
		case an > bn:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(a.(string), b.(string))
	}
	if desc {
		return cmp > 0
	}
	return cmp < 0
}
