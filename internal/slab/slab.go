// Package slab classifies annual turnover into the six fixed GST turnover slabs.
package slab

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/gst-filter/internal/model"
)

// Unclassified marks a turnover that fits no slab. Records carrying it are
// dropped by the pipeline; it is not a seventh slab.
const Unclassified = model.NA

// Slab labels, in declared order.
const (
	Upto40Lakh     = "Slab: Rs. 0 to 40 lakhs"
	Upto150Lakh    = "Slab: Rs. 40 lakhs to 1.5 Cr."
	Upto5Cr        = "Slab: Rs. 1.5 Cr. to 5 Cr."
	Upto25Cr       = "Slab: Rs. 5 Cr. to 25 Cr."
	Upto100Cr      = "Slab: Rs. 25 Cr. to 100 Cr."
	Upto500Cr      = "Slab: Rs. 100 Cr. to 500 Cr."
	lakh           = 100_000
	crore          = 10_000_000
	topSlabCeiling = 500 * crore
)

// Slab is a turnover range in rupees. Both bounds are inclusive, so adjacent
// slabs share their boundary value.
type Slab struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether v lies in [Min, Max].
func (s Slab) Contains(v float64) bool {
	return s.Min <= v && v <= s.Max
}

// slabs is scanned in order; the first slab containing a value wins, which
// attributes a shared boundary to the lower slab.
var slabs = []Slab{
	{Label: Upto40Lakh, Min: 0, Max: 40 * lakh},
	{Label: Upto150Lakh, Min: 40 * lakh, Max: 15 * crore / 10},
	{Label: Upto5Cr, Min: 15 * crore / 10, Max: 5 * crore},
	{Label: Upto25Cr, Min: 5 * crore, Max: 25 * crore},
	{Label: Upto100Cr, Min: 25 * crore, Max: 100 * crore},
	{Label: Upto500Cr, Min: 100 * crore, Max: topSlabCeiling},
}

// All returns the six slabs in declared order.
func All() []Slab {
	out := make([]Slab, len(slabs))
	copy(out, slabs)
	return out
}

// Labels returns the slab labels in declared order.
func Labels() []string {
	out := make([]string, len(slabs))
	for i, s := range slabs {
		out[i] = s.Label
	}
	return out
}

// IsLabel reports whether label names one of the six slabs.
func IsLabel(label string) bool {
	for _, s := range slabs {
		if s.Label == label {
			return true
		}
	}
	return false
}

// IsClassified reports whether label holds a real slab value rather than
// the blank or unclassified sentinel.
func IsClassified(label string) bool {
	label = strings.TrimSpace(label)
	return label != "" && label != Unclassified
}

// Classify returns the slab for a record.
//
// A record that already holds a slab keeps it whatever its turnover, so
// classification is idempotent. Otherwise a missing or non-positive
// turnover, or one above the top ceiling, is Unclassified; any other value
// gets the first slab in declared order that contains it.
func Classify(current string, turnover *float64) string {
	if IsClassified(current) {
		return current
	}
	if turnover == nil {
		return Unclassified
	}
	v := *turnover
	if math.IsNaN(v) || v <= 0 {
		return Unclassified
	}
	for _, s := range slabs {
		if s.Contains(v) {
			return s.Label
		}
	}
	return Unclassified
}

// ParseTurnover coerces a raw turnover cell to a number. Blank and
// non-numeric cells yield nil, which Classify treats as missing. Thousands
// separators are not numeric: "1,000" yields nil.
func ParseTurnover(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// Order returns the position of label in declared order, or -1.
func Order(label string) int {
	for i, s := range slabs {
		if s.Label == label {
			return i
		}
	}
	return -1
}
