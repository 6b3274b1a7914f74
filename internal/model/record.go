package model

// NA is the sentinel the GST snapshot uses for unknown categorical values.
// It marks both an unclassified turnover slab and an unclassified core
// nature of business.
const NA = "#NA"

// RecordStatus is the registration status of a GSTIN.
type RecordStatus string

const (
	StatusActive    RecordStatus = "Active"
	StatusCancelled RecordStatus = "Cancelled"
	StatusSuspended RecordStatus = "Suspended"
)

// PincodeStatus describes how a record's pincode was matched against the
// geographic reference data.
type PincodeStatus string

const (
	PincodeMatched   PincodeStatus = "matched_pincode"
	PincodeAdjacent  PincodeStatus = "adjacent_pincode"
	PincodeUnmatched PincodeStatus = "unmatched_pincode"
)

// Usable reports whether the pincode qualifier is one the prefilter keeps.
func (p PincodeStatus) Usable() bool {
	return p == PincodeMatched || p == PincodeAdjacent
}

// Record is one GST registration.
type Record struct {
	GSTIN                string        `json:"gstin"`
	Status               RecordStatus  `json:"status"`
	State                string        `json:"state"`
	City                 string        `json:"city"`
	Pincode              string        `json:"pincode"`
	PincodeStatus        PincodeStatus `json:"pincode_status,omitempty"`
	CoreNatureOfBusiness string        `json:"core_nature_of_business,omitempty"`
	NatureOfBusiness     string        `json:"nature_of_business,omitempty"`
	Turnover             *float64      `json:"turnover"`              // nil when missing or not numeric
	GoodsHSNsRaw         string        `json:"goods_hsns_raw"`        // list literal as stored, e.g. "['1001','2002']"
	GoodsHSNs            []string      `json:"goods_hsns"`            // decoded by the pipeline
	MatchedHSN           []string      `json:"matched_hsn_code"`      // requested prefixes this record matched
	TurnoverSlab         string        `json:"turnover_slab"`         // "" or NA until classified
	Latitude             *float64      `json:"latitude,omitempty"`    // used by the shapefile geo backend
	Longitude            *float64      `json:"longitude,omitempty"`   // used by the shapefile geo backend
	Location             string        `json:"location,omitempty"`    // resolved shape label in geographic mode
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Turnover = cloneFloat(r.Turnover)
	out.Latitude = cloneFloat(r.Latitude)
	out.Longitude = cloneFloat(r.Longitude)
	out.GoodsHSNs = cloneStrings(r.GoodsHSNs)
	out.MatchedHSN = cloneStrings(r.MatchedHSN)
	return out
}

// HasCoordinates reports whether the record carries a usable point.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Batch is a flat record collection together with the columns its source
// actually carried. Optional columns gate pipeline stages: a snapshot
// without pincode_status skips that part of the prefilter, and one without
// the business-category columns skips the business-type stage.
type Batch struct {
	Records          []Record `json:"records"`
	HasPincodeStatus bool     `json:"has_pincode_status"`
	HasBusinessType  bool     `json:"has_business_type"`
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// Clone returns a deep copy of the batch. The copy shares no memory with b.
func (b Batch) Clone() Batch {
	out := Batch{
		HasPincodeStatus: b.HasPincodeStatus,
		HasBusinessType:  b.HasBusinessType,
	}
	if b.Records != nil {
		out.Records = make([]Record, len(b.Records))
		for i := range b.Records {
			out.Records[i] = b.Records[i].Clone()
		}
	}
	return out
}

// Concat joins batches in the given order. A column flag survives only when
// every batch carries the column.
func Concat(batches ...Batch) Batch {
	if len(batches) == 0 {
		return Batch{}
	}
	out := Batch{HasPincodeStatus: true, HasBusinessType: true}
	total := 0
	for _, b := range batches {
		total += len(b.Records)
		out.HasPincodeStatus = out.HasPincodeStatus && b.HasPincodeStatus
		out.HasBusinessType = out.HasBusinessType && b.HasBusinessType
	}
	out.Records = make([]Record, 0, total)
	for _, b := range batches {
		out.Records = append(out.Records, b.Records...)
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
