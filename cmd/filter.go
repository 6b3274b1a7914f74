package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gst-filter/internal/export"
	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/pipeline"
	"github.com/sells-group/gst-filter/internal/pivot"
)

var (
	filterHSN           string
	filterStates        []string
	filterCities        []string
	filterBusinessTypes []string
	filterSlabs         []string
	filterLevel         string
	filterShapes        []string
	filterPreview       int
	filterFormat        string
	filterExport        string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Run the filter pipeline once and print the summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := buildFilter()
		if err != nil {
			return err
		}

		env, err := initFilterEnv(ctx, "filter", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Filter(ctx, f)
		if err != nil {
			return eris.Wrap(err, "filter")
		}

		if filterExport != "" {
			if err := writeExport(filterExport, res); err != nil {
				return err
			}
			zap.L().Info("export written", zap.String("path", filterExport), zap.Int("records", res.Total()))
		}

		return printResult(cmd.OutOrStdout(), filterFormat, res, filterPreview)
	},
}

func buildFilter() (model.RequestFilter, error) {
	level, err := model.ParseScopeLevel(filterLevel)
	if err != nil {
		return model.RequestFilter{}, err
	}
	return model.RequestFilter{
		HSNPrefixes:   hsn.ParsePrefixes(filterHSN),
		States:        filterStates,
		Cities:        filterCities,
		BusinessTypes: filterBusinessTypes,
		Slabs:         filterSlabs,
		Level:         level,
		Shapes:        filterShapes,
	}, nil
}

// writeExport writes the surviving records to path, choosing CSV or XLSX
// by extension.
func writeExport(path string, res *pipeline.Result) error {
	format := export.FormatCSV
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		format = export.FormatXLSX
	}
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := export.Write(out, format, res.Records); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(out.Close(), "close %s", path)
}

type filterOutput struct {
	RunID      string                 `json:"run_id" yaml:"run_id"`
	Total      int                    `json:"total" yaml:"total"`
	Preview    []model.Record         `json:"preview" yaml:"preview"`
	ByLocation *pivot.Crosstab        `json:"by_location" yaml:"by_location"`
	ByHSN      *pivot.Crosstab        `json:"by_hsn" yaml:"by_hsn"`
	Stages     []pipeline.StageResult `json:"stages" yaml:"stages"`
}

func printResult(w io.Writer, format string, res *pipeline.Result, preview int) error {
	out := filterOutput{
		RunID:      res.RunID,
		Total:      res.Total(),
		Preview:    res.Preview(preview),
		ByLocation: res.ByLocation,
		ByHSN:      res.ByHSN,
		Stages:     res.Stages,
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(out)
	case "text", "":
		formatResult(w, res)
		return nil
	default:
		return eris.Errorf("unknown output format %q (text, json, yaml)", format)
	}
}

// formatResult prints the stage counts and both crosstabs as tables.
func formatResult(out io.Writer, res *pipeline.Result) {
	_, _ = fmt.Fprintf(out, "run %s: %d records\n\n", res.RunID, res.Total())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tIN\tOUT")
	_, _ = fmt.Fprintln(w, "-----\t--\t---")
	for _, st := range res.Stages {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", st.Name, st.In, st.Out)
	}
	_ = w.Flush()

	formatCrosstab(out, res.ByLocation)
	formatCrosstab(out, res.ByHSN)
}

func formatCrosstab(out io.Writer, c *pivot.Crosstab) {
	_, _ = fmt.Fprintln(out)
	if c.Empty() {
		_, _ = fmt.Fprintln(out, "(no rows)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.ToUpper(c.Index)+"\t"+strings.Join(c.Columns, "\t")+"\tTOTAL")
	for _, r := range c.Rows {
		cells := make([]string, 0, len(r.Counts)+2)
		cells = append(cells, r.Key)
		for _, n := range r.Counts {
			cells = append(cells, fmt.Sprint(n))
		}
		cells = append(cells, fmt.Sprint(r.Total()))
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

func init() {
	filterCmd.Flags().StringVar(&filterHSN, "hsn", "", "comma-separated HSN code prefixes")
	filterCmd.Flags().StringSliceVar(&filterStates, "state", nil, "states to keep (repeatable)")
	filterCmd.Flags().StringSliceVar(&filterCities, "city", nil, "cities to keep (repeatable)")
	filterCmd.Flags().StringSliceVar(&filterBusinessTypes, "business-type", nil, "business categories to keep (repeatable)")
	filterCmd.Flags().StringSliceVar(&filterSlabs, "slab", nil, "turnover slabs to keep (repeatable)")
	filterCmd.Flags().StringVar(&filterLevel, "level", "", "scope level: state or city (default: full snapshot)")
	filterCmd.Flags().StringSliceVar(&filterShapes, "shape", nil, "shape names at --level (repeatable)")
	filterCmd.Flags().IntVar(&filterPreview, "preview", pipeline.DefaultPreviewSize, "number of records to include in json/yaml output")
	filterCmd.Flags().StringVar(&filterFormat, "format", "text", "output format: text, json, yaml")
	filterCmd.Flags().StringVar(&filterExport, "export", "", "write surviving records to a .csv or .xlsx file")
	rootCmd.AddCommand(filterCmd)
}
