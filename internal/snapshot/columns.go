package snapshot

import (
	"strconv"
	"strings"

	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/slab"
)

// Snapshot column names.
const (
	ColGSTIN                = "gstin"
	ColStatus               = "status"
	ColState                = "state"
	ColCity                 = "city"
	ColPincode              = "pincode"
	ColPincodeStatus        = "pincode_status"
	ColCoreNatureOfBusiness = "core_nature_of_business"
	ColNatureOfBusiness     = "nature_of_business"
	ColTurnover             = "turnover"
	ColTurnoverSlab         = "turnover_slab"
	ColGoodsHSNs            = "goods_hsns"
	ColLatitude             = "latitude"
	ColLongitude            = "longitude"
)

// Columns lists the stored columns in load order.
var Columns = []string{
	ColGSTIN, ColStatus, ColState, ColCity, ColPincode, ColPincodeStatus,
	ColCoreNatureOfBusiness, ColNatureOfBusiness, ColTurnover, ColTurnoverSlab,
	ColGoodsHSNs, ColLatitude, ColLongitude,
}

// header maps lower-cased column names to their position in a row.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

func (h header) getter(row []string) func(string) string {
	return func(col string) string {
		i, ok := h[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
}

// flags reports which optional columns the header carries.
func (h header) flags() (pincode, business bool) {
	return h.has(ColPincodeStatus), h.has(ColCoreNatureOfBusiness) && h.has(ColNatureOfBusiness)
}

// decodeRecord is the single ingestion point from loosely typed cells to a
// Record. Numeric cells that do not parse become nil.
func decodeRecord(get func(string) string) model.Record {
	return model.Record{
		GSTIN:                strings.TrimSpace(get(ColGSTIN)),
		Status:               model.RecordStatus(strings.TrimSpace(get(ColStatus))),
		State:                strings.TrimSpace(get(ColState)),
		City:                 strings.TrimSpace(get(ColCity)),
		Pincode:              strings.TrimSpace(get(ColPincode)),
		PincodeStatus:        model.PincodeStatus(strings.TrimSpace(get(ColPincodeStatus))),
		CoreNatureOfBusiness: get(ColCoreNatureOfBusiness),
		NatureOfBusiness:     get(ColNatureOfBusiness),
		Turnover:             slab.ParseTurnover(get(ColTurnover)),
		TurnoverSlab:         strings.TrimSpace(get(ColTurnoverSlab)),
		GoodsHSNsRaw:         get(ColGoodsHSNs),
		Latitude:             parseCoord(get(ColLatitude)),
		Longitude:            parseCoord(get(ColLongitude)),
	}
}

// encodeRecord renders r as one row in Columns order. Missing numbers and
// empty strings become nil so databases store NULL.
func encodeRecord(r model.Record) []any {
	return []any{
		nullString(r.GSTIN),
		nullString(string(r.Status)),
		nullString(r.State),
		nullString(r.City),
		nullString(r.Pincode),
		nullString(string(r.PincodeStatus)),
		nullString(r.CoreNatureOfBusiness),
		nullString(r.NatureOfBusiness),
		nullFloat(r.Turnover),
		nullString(r.TurnoverSlab),
		nullString(r.GoodsHSNsRaw),
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
	}
}

// scanRow holds nullable scan targets for one row in Columns order.
type scanRow struct {
	gstin, status, state, city, pincode, pincodeStatus *string
	core, nature, slab, goods                          *string
	turnover, lat, lon                                 *float64
}

func (s *scanRow) targets() []any {
	return []any{
		&s.gstin, &s.status, &s.state, &s.city, &s.pincode, &s.pincodeStatus,
		&s.core, &s.nature, &s.turnover, &s.slab, &s.goods, &s.lat, &s.lon,
	}
}

func (s *scanRow) record() model.Record {
	return model.Record{
		GSTIN:                deref(s.gstin),
		Status:               model.RecordStatus(deref(s.status)),
		State:                deref(s.state),
		City:                 deref(s.city),
		Pincode:              deref(s.pincode),
		PincodeStatus:        model.PincodeStatus(deref(s.pincodeStatus)),
		CoreNatureOfBusiness: deref(s.core),
		NatureOfBusiness:     deref(s.nature),
		Turnover:             s.turnover,
		TurnoverSlab:         deref(s.slab),
		GoodsHSNsRaw:         deref(s.goods),
		Latitude:             s.lat,
		Longitude:            s.lon,
	}
}

// ScanRecord scans a row whose trailing columns are Columns. extra
// receives any leading columns.
func ScanRecord(scan func(dest ...any) error, extra ...any) (model.Record, error) {
	var sr scanRow
	if err := scan(append(extra, sr.targets()...)...); err != nil {
		return model.Record{}, err
	}
	return sr.record(), nil
}

// SelectList renders Columns for a SELECT, each qualified by alias when set.
func SelectList(alias string) string {
	if alias == "" {
		return strings.Join(Columns, ", ")
	}
	cols := make([]string, len(Columns))
	for i, c := range Columns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseCoord(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
