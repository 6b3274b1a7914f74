// Package export renders filtered records as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "gst_export"

// Format is an export file type.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (the default for "") or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for f.
func (f Format) Filename() string {
	return "gst_filtered_export." + string(f)
}

// Header lists the exported columns in order.
var Header = []string{
	"gstin", "status", "state", "city", "pincode", "pincode_status",
	"core_nature_of_business", "nature_of_business", "turnover",
	"goods_hsns", "matched_hsn_code", "turnover_slab",
}

func row(r model.Record) []string {
	turnover := ""
	if r.Turnover != nil {
		turnover = strconv.FormatFloat(*r.Turnover, 'f', -1, 64)
	}
	return []string{
		r.GSTIN,
		string(r.Status),
		r.State,
		r.City,
		r.Pincode,
		string(r.PincodeStatus),
		r.CoreNatureOfBusiness,
		r.NatureOfBusiness,
		turnover,
		r.GoodsHSNsRaw,
		hsn.FormatCodeList(r.MatchedHSN),
		r.TurnoverSlab,
	}
}

// Write renders records in format f.
func Write(w io.Writer, f Format, records []model.Record) error {
	if f == FormatXLSX {
		return WriteXLSX(w, records)
	}
	return WriteCSV(w, records)
}

// WriteCSV writes a header row then one row per record.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", r.GSTIN)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes the same columns as WriteCSV to a single worksheet.
func WriteXLSX(w io.Writer, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow := func(values []string) {
		xr := sheet.AddRow()
		for _, v := range values {
			xr.AddCell().SetString(v)
		}
	}
	addRow(Header)
	for _, r := range records {
		addRow(row(r))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
