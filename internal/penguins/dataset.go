package penguins

import (
	"errors"
	"strings"
)

// ErrEmptyDataset is returned when a source yields no records.
var ErrEmptyDataset = errors.New("penguins: dataset is empty")

// Dataset is an ordered, read-only collection of records loaded once at
// start. Callers never receive the backing slice.
type Dataset struct {
	records []Record
	source  string
}

// New copies records into a Dataset. An empty input is an error because no
// view can be served without data.
func New(records []Record, source string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	for i := range cp {
		cp[i].Species = strings.TrimSpace(cp[i].Species)
		cp[i].Island = strings.TrimSpace(cp[i].Island)
	}
	return &Dataset{records: cp, source: source}, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// At returns the record at index i by value.
func (d *Dataset) At(i int) Record { return d.records[i] }

// Records returns a copy of all records in source order.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Source describes where the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// SpeciesCounts returns the number of records per species name, including
// records with a missing species under the empty key.
func (d *Dataset) SpeciesCounts() map[string]int {
	out := make(map[string]int, len(AllSpecies))
	for _, r := range d.records {
		out[r.Species]++
	}
	return out
}
