package snapshot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/model"
)

// Format identifies a snapshot file encoding.
type Format string

// Supported file formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// FormatOf infers the format from a path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("snapshot: unsupported file type %q", filepath.Ext(path))
}

// FileSource loads a snapshot from a local CSV, JSON, or XLSX file.
type FileSource struct {
	Path string
}

// Batch reads and decodes the whole file.
func (s *FileSource) Batch(ctx context.Context) (model.Batch, error) {
	format, err := FormatOf(s.Path)
	if err != nil {
		return model.Batch{}, err
	}

	var batch model.Batch
	switch format {
	case FormatXLSX:
		batch, err = ReadXLSX(ctx, s.Path)
	default:
		f, oerr := os.Open(s.Path)
		if oerr != nil {
			return model.Batch{}, eris.Wrapf(oerr, "snapshot: open %s", s.Path)
		}
		defer f.Close() //nolint:errcheck
		if format == FormatJSON {
			batch, err = ReadJSON(ctx, f)
		} else {
			delim := ','
			if strings.EqualFold(filepath.Ext(s.Path), ".tsv") {
				delim = '\t'
			}
			batch, err = ReadCSV(ctx, f, delim)
		}
	}
	if err != nil {
		return model.Batch{}, eris.Wrapf(err, "snapshot: load %s", s.Path)
	}
	return batch, nil
}

// ReadCSV decodes a delimited file with a header row. Columns are matched
// by name, case-insensitively; unknown columns are ignored.
func ReadCSV(ctx context.Context, r io.Reader, delim rune) (model.Batch, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	cols, err := reader.Read()
	if err == io.EOF {
		return model.Batch{}, nil
	}
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "csv: read header")
	}
	h := newHeader(cols)

	var batch model.Batch
	batch.HasPincodeStatus, batch.HasBusinessType = h.flags()
	for {
		if ctx.Err() != nil {
			return model.Batch{}, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Batch{}, eris.Wrap(err, "csv: read row")
		}
		batch.Records = append(batch.Records, decodeRecord(h.getter(row)))
	}
	return batch, nil
}

// ReadJSON decodes an array of objects keyed by column name. A column is
// considered present if any element carries the key. goods_hsns may be
// either a list-literal string or a JSON array.
func ReadJSON(ctx context.Context, r io.Reader) (model.Batch, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	tok, err := decoder.Token()
	if err == io.EOF {
		return model.Batch{}, nil
	}
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "json: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return model.Batch{}, eris.Errorf("json: expected '[', got %v", tok)
	}

	var (
		batch   model.Batch
		present = make(map[string]bool)
	)
	for decoder.More() {
		if ctx.Err() != nil {
			return model.Batch{}, eris.Wrap(ctx.Err(), "json: context cancelled")
		}
		var item map[string]any
		if err := decoder.Decode(&item); err != nil {
			return model.Batch{}, eris.Wrap(err, "json: decode element")
		}
		cells := make(map[string]string, len(item))
		for k, v := range item {
			key := strings.ToLower(k)
			present[key] = true
			cells[key] = jsonCell(key, v)
		}
		batch.Records = append(batch.Records, decodeRecord(func(col string) string { return cells[col] }))
	}
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return model.Batch{}, eris.Wrap(err, "json: read closing token")
	}

	batch.HasPincodeStatus = present[ColPincodeStatus]
	batch.HasBusinessType = present[ColCoreNatureOfBusiness] && present[ColNatureOfBusiness]
	return batch, nil
}

func jsonCell(key string, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []any:
		if key != ColGoodsHSNs {
			return ""
		}
		codes := make([]string, 0, len(val))
		for _, c := range val {
			switch code := c.(type) {
			case string:
				codes = append(codes, code)
			case json.Number:
				codes = append(codes, code.String())
			default:
				// Mixed arrays fall back to an undecodable literal.
				return "[?]"
			}
		}
		return hsn.FormatCodeList(codes)
	}
	return ""
}

// ReadXLSX decodes the first sheet of a workbook. The first row is the
// header.
func ReadXLSX(ctx context.Context, path string) (model.Batch, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return model.Batch{}, eris.New("xlsx: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	var (
		batch model.Batch
		h     header
	)
	for i, row := range sheet.Rows {
		if ctx.Err() != nil {
			return model.Batch{}, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			h = newHeader(cells)
			batch.HasPincodeStatus, batch.HasBusinessType = h.flags()
			continue
		}
		if isBlankRow(cells) {
			continue
		}
		batch.Records = append(batch.Records, decodeRecord(h.getter(cells)))
	}
	return batch, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
