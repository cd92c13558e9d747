package penguins

import (
	"bytes"
	_ "embed"
	"fmt"
)

// EmbeddedSource is the source description of the bundled dataset.
const EmbeddedSource = "embedded:penguins.csv"

//go:embed data/penguins.csv
var embeddedCSV []byte

// LoadEmbedded parses the dataset compiled into the binary.
func LoadEmbedded() (*Dataset, error) {
	records, err := ParseCSV(bytes.NewReader(embeddedCSV))
	if err != nil {
		return nil, fmt.Errorf("parse embedded dataset: %w", err)
	}
	return New(records, EmbeddedSource)
}
