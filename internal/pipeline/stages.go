package pipeline

import (
	"github.com/sells-group/gst-filter/internal/business"
	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/slab"
)

// Stage names, in execution order.
const (
	StagePrefilter = "prefilter"
	StageScope     = "scope"
	StageHSN       = "hsn"
	StageBusiness  = "business_type"
	StageSlab      = "turnover_slab"
)

// keep filters records in place, reusing the backing array. The batch is
// owned by the current run, so no other reader can observe the rewrite.
func keep(records []model.Record, pred func(*model.Record) bool) []model.Record {
	out := records[:0]
	for i := range records {
		if pred(&records[i]) {
			out = append(out, records[i])
		}
	}
	// clear the tail so dropped records can be collected
	for i := len(out); i < len(records); i++ {
		records[i] = model.Record{}
	}
	return out
}

// prefilter keeps active registrations and, when the batch carries a
// pincode qualifier, only matched or adjacent pincodes.
func prefilter(b model.Batch) []model.Record {
	return keep(b.Records, func(r *model.Record) bool {
		if r.Status != model.StatusActive {
			return false
		}
		if b.HasPincodeStatus && !r.PincodeStatus.Usable() {
			return false
		}
		return true
	})
}

// scope narrows to the requested states and cities. An empty set leaves
// that dimension unrestricted.
func scope(records []model.Record, states, cities map[string]bool) []model.Record {
	if len(states) == 0 && len(cities) == 0 {
		return records
	}
	return keep(records, func(r *model.Record) bool {
		if len(states) > 0 && !states[r.State] {
			return false
		}
		if len(cities) > 0 && !cities[r.City] {
			return false
		}
		return true
	})
}

// codeStats counts records whose goods_hsns field did not decode.
type codeStats struct {
	undecodable int
}

// matchCodes decodes every record's goods_hsns and annotates the requested
// prefixes it matched. With no prefixes requested every record is kept
// with an empty annotation.
func matchCodes(records []model.Record, prefixes []string) ([]model.Record, codeStats) {
	var stats codeStats
	for i := range records {
		r := &records[i]
		r.GoodsHSNs = hsn.ParseCodeList(r.GoodsHSNsRaw)
		if len(r.GoodsHSNs) == 0 && r.GoodsHSNsRaw != "" && r.GoodsHSNsRaw != "[]" {
			stats.undecodable++
		}
		if len(prefixes) == 0 {
			r.MatchedHSN = []string{}
			continue
		}
		r.MatchedHSN = hsn.MatchPrefixes(r.GoodsHSNs, prefixes)
	}
	if len(prefixes) == 0 {
		return records, stats
	}
	return keep(records, func(r *model.Record) bool {
		return len(r.MatchedHSN) > 0
	}), stats
}

// matchBusiness applies the business-type classifier. It is skipped when the
// batch lacks the category columns or nothing was selected.
func matchBusiness(records []model.Record, hasColumns bool, c *business.Classifier) []model.Record {
	if !hasColumns || !c.Active() {
		return records
	}
	return keep(records, func(r *model.Record) bool {
		return c.Match(r.CoreNatureOfBusiness, r.NatureOfBusiness)
	})
}

// classifySlabs assigns each record its turnover slab, drops unclassified
// records, then narrows to the requested slabs if any.
func classifySlabs(records []model.Record, requested map[string]bool) []model.Record {
	for i := range records {
		records[i].TurnoverSlab = slab.Classify(records[i].TurnoverSlab, records[i].Turnover)
	}
	return keep(records, func(r *model.Record) bool {
		if r.TurnoverSlab == slab.Unclassified {
			return false
		}
		return len(requested) == 0 || requested[r.TurnoverSlab]
	})
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
