package exports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"penguindash/internal/dashboard"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/render"
	"penguindash/pkg/datasetapi"
)

// ArtifactName returns the stored file name for format.
func ArtifactName(format datasetapi.Format) string {
	switch format {
	case datasetapi.FormatJSON:
		return "snapshot.json"
	case datasetapi.FormatCSV:
		return "table.csv"
	case datasetapi.FormatHTML:
		return "table.html"
	case datasetapi.FormatSVG:
		return "plot.svg"
	case datasetapi.FormatPNG:
		return "plot.png"
	default:
		return "artifact." + format.Extension()
	}
}

type snapshotDocument struct {
	Selection  filter.Selection    `json:"selection"`
	Count      int                 `json:"count"`
	BillLength string              `json:"average_bill_length"`
	BillDepth  string              `json:"average_bill_depth"`
	Table      datasetapi.Result   `json:"table"`
	Grid       map[string][]string `json:"grid,omitempty"`
}

// Materialize encodes one output of snap. table is the grid after its own
// filters; the count and averages always describe the unfiltered view.
func Materialize(format datasetapi.Format, snap dashboard.Snapshot, table grid.Table, q grid.Query, now time.Time) ([]byte, error) {
	switch format {
	case datasetapi.FormatJSON:
		doc := snapshotDocument{
			Selection:  snap.Selection,
			Count:      snap.Count,
			BillLength: snap.BillLengthLabel,
			BillDepth:  snap.BillDepthLabel,
			Table:      table.Result(now),
			Grid:       q.Values(),
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return payload, nil
	case datasetapi.FormatCSV:
		var buf bytes.Buffer
		if err := table.WriteCSV(&buf); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
		return buf.Bytes(), nil
	case datasetapi.FormatHTML:
		return buildHTML(snap, table)
	case datasetapi.FormatSVG:
		return render.ScatterSVG(snap.Series, render.DefaultOptions()), nil
	case datasetapi.FormatPNG:
		return render.ScatterPNG(snap.Series, render.DefaultOptions())
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

var htmlTemplate = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Penguin Data</title></head>
<body>
<h1>Penguin Data</h1>
<dl>
<dt>Number of Penguins</dt><dd>{{.Count}}</dd>
<dt>Average Bill Length</dt><dd>{{.BillLength}}</dd>
<dt>Average Bill Depth</dt><dd>{{.BillDepth}}</dd>
</dl>
<table>
<thead><tr>{{range .Columns}}<th>{{.Label}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table>
</body></html>
`))

func buildHTML(snap dashboard.Snapshot, table grid.Table) ([]byte, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Count      int
		BillLength string
		BillDepth  string
		Columns    []datasetapi.Column
		Rows       [][]string
	}{
		Count:      snap.Count,
		BillLength: snap.BillLengthLabel,
		BillDepth:  snap.BillDepthLabel,
		Columns:    grid.Columns,
		Rows:       table.Cells(),
	})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
