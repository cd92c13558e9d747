package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/blob"
	"penguindash/internal/dashboard"
	"penguindash/internal/datasource"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/penguins"
	"penguindash/pkg/datasetapi"
)

// selectionFlags are shared by filter and export.
type selectionFlags struct {
	mass    float64
	species []string
	where   []string
	sort    string
}

func (f *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.mass, "mass", filter.DefaultMassThreshold, "exclusive upper bound on body mass in grams")
	cmd.Flags().StringSliceVar(&f.species, "species", penguins.AllSpecies, "species to include (comma separated)")
	cmd.Flags().StringArrayVar(&f.where, "where", nil, "grid filter as column=expr, e.g. island=dream or body_mass_g=3000..4000 (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "grid sort column, prefix with - for descending")
}

// selection builds the filter selection. Thresholds outside the slider range
// are accepted here; only the web controls enforce it.
func (f *selectionFlags) selection() filter.Selection {
	return filter.NewSelection(f.species, f.mass)
}

func (f *selectionFlags) query() (grid.Query, error) {
	values := url.Values{}
	for _, w := range f.where {
		column, expr, ok := strings.Cut(w, "=")
		if !ok {
			return grid.Query{}, fmt.Errorf("--where %q: want column=expr", w)
		}
		values.Set(grid.FilterPrefix+strings.TrimSpace(column), expr)
	}
	if f.sort != "" {
		values.Set(grid.SortParam, f.sort)
	}
	return grid.ParseQuery(values)
}

// loadDataset opens the configured source. The blob store is only opened
// for blob:// sources.
func (c *CLI) loadDataset(ctx context.Context) (*penguins.Dataset, error) {
	loc, err := datasource.Parse(c.cfg.Dataset.Source)
	if err != nil {
		return nil, err
	}
	opts := datasource.Options{Table: c.cfg.Dataset.Table, S3: c.cfg.Blob.S3}
	if loc.Kind == datasource.KindBlob {
		store, err := blob.Open(ctx, c.cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		opts.Blob = store
	}
	return datasource.Open(ctx, c.cfg.Dataset.Source, opts)
}

type selectionOutput struct {
	Species []string `json:"species" yaml:"species"`
	Mass    float64  `json:"mass" yaml:"mass"`
}

// filterOutput is the machine-readable result of the filter command.
type filterOutput struct {
	Selection         selectionOutput  `json:"selection" yaml:"selection"`
	Count             int              `json:"count" yaml:"count"`
	AverageBillLength string           `json:"average_bill_length" yaml:"average_bill_length"`
	AverageBillDepth  string           `json:"average_bill_depth" yaml:"average_bill_depth"`
	Rows              []datasetapi.Row `json:"rows,omitempty" yaml:"rows,omitempty"`
}

func (c *CLI) newFilterCmd() *cobra.Command {
	var (
		sel      selectionFlags
		format   string
		withRows bool
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the dashboard summary for a selection",
		Example: `  penguindash filter --species Adelie --mass 4000
  penguindash filter --format json --rows --where island=dream --sort -body_mass_g`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := sel.query()
			if err != nil {
				return err
			}
			ds, err := c.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			snap := dashboard.Build(ds, sel.selection())
			table := snap.Table.Apply(q)
			out := filterOutput{
				Selection:         selectionOutput{Species: snap.Selection.Species, Mass: snap.Selection.MassThreshold},
				Count:             snap.Count,
				AverageBillLength: snap.BillLengthLabel,
				AverageBillDepth:  snap.BillDepthLabel,
			}
			if withRows {
				out.Rows = table.Rows()
			}
			return writeFilterOutput(cmd.OutOrStdout(), format, out, table, withRows)
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&withRows, "rows", false, "include the grid rows")
	return cmd
}

func writeFilterOutput(w io.Writer, format string, out filterOutput, table grid.Table, withRows bool) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Number of Penguins:\t%d\n", out.Count)
		fmt.Fprintf(tw, "Average Bill Length:\t%s\n", out.AverageBillLength)
		fmt.Fprintf(tw, "Average Bill Depth:\t%s\n", out.AverageBillDepth)
		if withRows {
			fmt.Fprintln(tw)
			header := make([]string, len(grid.Columns))
			for i, col := range grid.Columns {
				header[i] = col.Name
			}
			fmt.Fprintln(tw, strings.Join(header, "\t"))
			for _, row := range table.Cells() {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func (c *CLI) newExportCmd() *cobra.Command {
	var (
		sel    selectionFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one dashboard output for a selection to a file",
		Example: `  penguindash export --format png --out plot.png --species Gentoo
  penguindash export --format csv --where island=biscoe --out -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, ok := datasetapi.ParseFormat(format)
			if !ok {
				return fmt.Errorf("%w %q", exports.ErrUnsupportedFormat, format)
			}
			q, err := sel.query()
			if err != nil {
				return err
			}
			ds, err := c.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			snap := dashboard.Build(ds, sel.selection())
			payload, err := exports.Materialize(f, snap, snap.Table.Apply(q), q, time.Now())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			if err := os.WriteFile(output, payload, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			c.logger.Info("export written", "path", output, "format", string(f), "bytes", len(payload))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "output format: json, csv, html, svg or png")
	cmd.Flags().StringVarP(&output, "out", "o", "-", "output file, - for stdout")
	return cmd
}
