package slab

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		turnover *float64
		expected string
	}{
		{"missing turnover", "", nil, Unclassified},
		{"zero turnover", "", f(0), Unclassified},
		{"negative turnover", "", f(-10), Unclassified},
		{"NaN turnover", "", f(math.NaN()), Unclassified},
		{"smallest positive", "", f(1), Upto40Lakh},
		{"boundary 40 lakhs goes to lower slab", "", f(4_000_000), Upto40Lakh},
		{"just above 40 lakhs", "", f(4_000_001), Upto150Lakh},
		{"boundary 1.5 Cr", "", f(15_000_000), Upto150Lakh},
		{"inside 1.5 to 5 Cr", "", f(20_000_000), Upto5Cr},
		{"boundary 5 Cr", "", f(50_000_000), Upto5Cr},
		{"boundary 25 Cr", "", f(250_000_000), Upto25Cr},
		{"boundary 100 Cr", "", f(1_000_000_000), Upto100Cr},
		{"top ceiling 500 Cr", "", f(5_000_000_000), Upto500Cr},
		{"above top ceiling", "", f(5_000_000_001), Unclassified},
		{"infinite turnover", "", f(math.Inf(1)), Unclassified},
		{"sentinel current is reclassified", Unclassified, f(100), Upto40Lakh},
		{"blank current is reclassified", "  ", f(100), Upto40Lakh},
		{"existing slab kept over turnover", Upto500Cr, f(100), Upto500Cr},
		{"existing slab kept with missing turnover", Upto5Cr, nil, Upto5Cr},
		{"existing slab kept with zero turnover", Upto25Cr, f(0), Upto25Cr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.current, tt.turnover))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	for _, v := range []float64{1, 4_000_000, 4_000_001, 49_999_999, 5_000_000_000} {
		first := Classify("", f(v))
		require.True(t, IsClassified(first))
		assert.Equal(t, first, Classify(first, f(v)))
		assert.Equal(t, first, Classify(first, f(-1)))
		assert.Equal(t, first, Classify(first, nil))
	}
}

func TestClassify_SentinelIff(t *testing.T) {
	for _, v := range []float64{-1e9, -1, 0, 0.5, 1, 3e6, 4e6, 1.5e7, 9.99e8, 5e9, 5e9 + 1, 1e12} {
		got := Classify("", f(v))
		unclassified := v <= 0 || v > topSlabCeiling
		assert.Equal(t, unclassified, got == Unclassified, "turnover %v", v)
	}
}

func TestSharedBoundariesGoToLowerSlab(t *testing.T) {
	all := All()
	for i := 0; i+1 < len(all); i++ {
		require.Equal(t, all[i].Max, all[i+1].Min, "slabs %d and %d must share a boundary", i, i+1)
		assert.Equal(t, all[i].Label, Classify("", f(all[i].Max)))
	}
}

func TestLabels(t *testing.T) {
	labels := Labels()
	require.Len(t, labels, 6)
	assert.Equal(t, Upto40Lakh, labels[0])
	assert.Equal(t, Upto500Cr, labels[5])
	assert.True(t, IsLabel(Upto5Cr))
	assert.False(t, IsLabel(Unclassified))
	assert.Equal(t, 2, Order(Upto5Cr))
	assert.Equal(t, -1, Order("Slab: unknown"))
}

func TestParseTurnover(t *testing.T) {
	require.NotNil(t, ParseTurnover("4000000"))
	assert.InDelta(t, 4_000_000, *ParseTurnover(" 4000000 "), 0.001)
	assert.InDelta(t, 1250.5, *ParseTurnover("1250.5"), 0.001)
	assert.InDelta(t, -3, *ParseTurnover("-3"), 0.001)
	assert.Nil(t, ParseTurnover(""))
	assert.Nil(t, ParseTurnover("n/a"))
	assert.Nil(t, ParseTurnover("NaN"))
	assert.Nil(t, ParseTurnover("1,000"))
	assert.Nil(t, ParseTurnover("1,250.5"))
}
