package business

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Match(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		core     string
		nature   string
		expected bool
	}{
		{"exact core match", []string{Manufacturer}, Manufacturer, "", true},
		{"exact core match ignores free text", []string{Manufacturer}, Manufacturer, "Retail Business", true},
		{"core mismatch without fallback", []string{Manufacturer}, ServiceProvider, "Factory / Manufacturing", false},
		{"NA core falls back to keyword", []string{Manufacturer}, "#NA", "Factory / Manufacturing, Office", true},
		{"padded NA core falls back", []string{TraderDistributor}, " #NA ", "Wholesale Business", true},
		{"blank core falls back", []string{ServiceProvider}, "", "Supplier of Services", true},
		{"keyword match is case-insensitive", []string{TraderRetailer}, "#NA", "RETAIL BUSINESS; Warehouse", true},
		{"NA core without keyword", []string{TraderRetailer}, "#NA", "Office / Sale Office", false},
		{"keyword of unselected category", []string{ServiceProvider}, "#NA", "Wholesale Business", false},
		{"any selected category may match", []string{ServiceProvider, TraderDistributor}, "#NA", "Distributor", true},
		{"core match is exact, not case-insensitive", []string{Manufacturer}, "manufacturer", "Manufacturing", false},
		{"no selection is a no-op", nil, ServiceProvider, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.selected, nil)
			assert.Equal(t, tt.expected, c.Match(tt.core, tt.nature))
		})
	}
}

func TestClassifier_Active(t *testing.T) {
	assert.False(t, NewClassifier(nil, nil).Active())
	assert.False(t, NewClassifier([]string{}, nil).Active())
	assert.True(t, NewClassifier([]string{Manufacturer}, nil).Active())
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := NewClassifier([]string{"Exporter"}, map[string][]string{"Exporter": {"Export"}})
	assert.True(t, c.Match("#NA", "Import / Export"))
	assert.True(t, c.Match("Exporter", ""))
	assert.False(t, c.Match("#NA", "Wholesale"))
}

func TestDefaultKeywords_IsCopy(t *testing.T) {
	kw := DefaultKeywords()
	require.Len(t, kw, 4)
	kw[Manufacturer][0] = "changed"
	assert.Equal(t, "Factory / Manufacturing", DefaultKeywords()[Manufacturer][0])
}

func TestValidateCategories(t *testing.T) {
	assert.NoError(t, ValidateCategories(Categories()))
	assert.NoError(t, ValidateCategories(nil))
	assert.Error(t, ValidateCategories([]string{"Trader"}))
}
