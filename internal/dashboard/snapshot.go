package dashboard

import (
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/penguins"
	"penguindash/internal/render"
	"penguindash/internal/summary"
)

// BillUnit suffixes the bill averages.
const BillUnit = "mm"

// Snapshot is everything one refresh renders, derived from a single view.
type Snapshot struct {
	Version         uint64           `json:"version"`
	Selection       filter.Selection `json:"selection"`
	Count           int              `json:"count"`
	BillLength      summary.Stat     `json:"bill_length"`
	BillDepth       summary.Stat     `json:"bill_depth"`
	BillLengthLabel string           `json:"bill_length_label"`
	BillDepthLabel  string           `json:"bill_depth_label"`
	Series          []render.Series  `json:"series"`
	Table           grid.Table       `json:"table"`

	View filter.View `json:"-"`
}

// Build computes the view for sel and every output derived from it.
func Build(ds *penguins.Dataset, sel filter.Selection) Snapshot {
	view := filter.Apply(ds, sel)
	length := summary.Mean(view, penguins.FieldBillLength)
	depth := summary.Mean(view, penguins.FieldBillDepth)
	return Snapshot{
		Selection:       sel,
		Count:           summary.Count(view),
		BillLength:      length,
		BillDepth:       depth,
		BillLengthLabel: length.Label(BillUnit),
		BillDepthLabel:  depth.Label(BillUnit),
		Series:          render.SeriesFromRows(view),
		Table:           grid.New(view),
		View:            view,
	}
}
