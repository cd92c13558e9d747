// Package datasetapi describes the typed surface shared by the dashboard's
// controls, tabular outputs and export formats.
package datasetapi

import (
	"encoding/json"
	"strings"
	"time"
)

// Format names a materialized output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
)

// Formats lists every supported output format in display order.
var Formats = []Format{FormatJSON, FormatCSV, FormatHTML, FormatSVG, FormatPNG}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(raw string) (Format, bool) {
	candidate := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, f := range Formats {
		if f == candidate {
			return f, true
		}
	}
	return "", false
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension, without dot, for the format.
func (f Format) Extension() string { return string(f) }

// Parameter types understood by ValidateParameters.
const (
	TypeString     = "string"
	TypeStringList = "string[]"
	TypeInteger    = "integer"
	TypeNumber     = "number"
	TypeBoolean    = "boolean"
)

// Parameter declares one user-adjustable input.
type Parameter struct {
	Name        string          `json:"name"`
	Label       string          `json:"label,omitempty"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Min         *float64        `json:"min,omitempty"`
	Max         *float64        `json:"max,omitempty"`
	Example     json.RawMessage `json:"example,omitempty"`
	Default     json.RawMessage `json:"default,omitempty"`
}

// ParameterError reports a rejected parameter value.
type ParameterError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e ParameterError) Error() string { return e.Name + ": " + e.Message }

// Column describes one column of a tabular output.
type Column struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Numeric reports whether the column holds numbers.
func (c Column) Numeric() bool {
	return c.Type == TypeInteger || c.Type == TypeNumber
}

// Row is a single tabular output row keyed by column name. Missing values are nil.
type Row map[string]any

// Result is a render-ready table plus metadata.
type Result struct {
	Schema      []Column       `json:"schema"`
	Rows        []Row          `json:"rows"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Float returns a pointer to v for Parameter bounds.
func Float(v float64) *float64 { return &v }
