package pivot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/slab"
)

func TestBuild_CodeByBand(t *testing.T) {
	records := []model.Record{
		{GSTIN: "1", MatchedHSN: []string{"A"}, TurnoverSlab: "X"},
		{GSTIN: "2", MatchedHSN: []string{"A", "B"}, TurnoverSlab: "X"},
		{GSTIN: "3", MatchedHSN: []string{"C"}, TurnoverSlab: "Y"},
	}

	tab := Build("matched_hsn_code", ExplodeHSN(records), []string{"X", "Y"})

	require.Equal(t, []string{"X", "Y"}, tab.Columns)
	require.Len(t, tab.Rows, 3)
	assert.Equal(t, 2, tab.Count("A", "X"))
	assert.Equal(t, 1, tab.Count("B", "X"))
	assert.Equal(t, 0, tab.Count("A", "Y"))
	assert.Equal(t, 0, tab.Count("B", "Y"))
	assert.Equal(t, 1, tab.Count("C", "Y"))
	for _, r := range tab.Rows {
		assert.Len(t, r.Counts, 2, "row %s must be zero-filled", r.Key)
	}
	assert.Equal(t, []string{"A", "B", "C"}, []string{tab.Rows[0].Key, tab.Rows[1].Key, tab.Rows[2].Key})
}

func TestBuild_SortsByFullColumnTuple(t *testing.T) {
	pairs := []Pair{
		{"low", "c1"},
		{"mid", "c1"}, {"mid", "c2"}, {"mid", "c2"},
		{"high", "c1"}, {"high", "c1"},
		{"tie", "c1"}, {"tie", "c2"}, {"tie", "c2"},
	}
	tab := Build("city", pairs, []string{"c1", "c2"})

	keys := make([]string, len(tab.Rows))
	for i, r := range tab.Rows {
		keys[i] = r.Key
	}
	// high (2,0) > mid (1,2) = tie (1,2) > low (1,0); equal tuples by key
	assert.Equal(t, []string{"high", "mid", "tie", "low"}, keys)
}

func TestBuild_ColumnOrder(t *testing.T) {
	pairs := []Pair{{"r", "zeta"}, {"r", "beta"}, {"r", "alpha"}, {"r", "known"}}
	tab := Build("x", pairs, []string{"known", "beta"})
	assert.Equal(t, []string{"known", "beta", "alpha", "zeta"}, tab.Columns)
}

func TestBuild_RowsSortOverLexicalColumns(t *testing.T) {
	fiftyLakh, twoCrore := 5_000_000.0, 20_000_000.0
	records := []model.Record{
		{City: "Mumbai", TurnoverSlab: slab.Classify("", &fiftyLakh)},
		{City: "Pune", TurnoverSlab: slab.Classify("", &twoCrore)},
	}

	tab := Build("city", ExplodeLocation(records, func(r model.Record) string { return r.City }), slab.Labels())

	// Display keeps declared order.
	require.Equal(t, []string{slab.Upto150Lakh, slab.Upto5Cr}, tab.Columns)
	// "Slab: Rs. 1.5 Cr. to 5 Cr." sorts before "Slab: Rs. 40 lakhs to 1.5 Cr."
	// so the 1.5-5 Cr count decides first.
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "Pune", tab.Rows[0].Key)
	assert.Equal(t, []int{0, 1}, tab.Rows[0].Counts)
	assert.Equal(t, "Mumbai", tab.Rows[1].Key)
	assert.Equal(t, []int{1, 0}, tab.Rows[1].Counts)
}

func TestBuild_SkipsBlankKeys(t *testing.T) {
	tab := Build("x", []Pair{{"", "c"}, {"r", ""}, {"r", "c"}}, nil)
	require.Len(t, tab.Rows, 1)
	assert.Equal(t, []string{"c"}, tab.Columns)
	assert.Equal(t, 1, tab.Count("r", "c"))
}

func TestBuild_Empty(t *testing.T) {
	tab := Build("x", nil, nil)
	assert.True(t, tab.Empty())
	assert.Empty(t, tab.Columns)
	assert.Equal(t, 0, tab.Count("r", "c"))
}

func TestExplodeHSN_DropsUnmatched(t *testing.T) {
	records := []model.Record{
		{MatchedHSN: []string{}, TurnoverSlab: "X"},
		{MatchedHSN: nil, TurnoverSlab: "X"},
		{MatchedHSN: []string{"A", "B", "C"}, TurnoverSlab: "Y"},
	}
	pairs := ExplodeHSN(records)
	assert.Len(t, pairs, 3)
}

func TestExplodeLocation(t *testing.T) {
	records := []model.Record{
		{City: "Pune", MatchedHSN: []string{"A", "B"}, TurnoverSlab: "X"},
		{City: "Pune", MatchedHSN: []string{}, TurnoverSlab: "X"},
		{City: "Nagpur", TurnoverSlab: "Y"},
	}
	tab := Build("city", ExplodeLocation(records, func(r model.Record) string { return r.City }), nil)
	assert.Equal(t, 3, tab.Count("Pune", "X"))
	assert.Equal(t, 1, tab.Count("Nagpur", "Y"))
	assert.Equal(t, 0, tab.Count("Nagpur", "X"))
	assert.Equal(t, 3, tab.Rows[0].Total())
}
