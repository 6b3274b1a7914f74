// Package business matches GST records against user-selected core nature of
// business categories.
package business

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/gst-filter/internal/model"
)

// Core nature of business categories as they appear in the snapshot.
const (
	Manufacturer      = "Manufacturer"
	TraderDistributor = "Trader:Distributor"
	TraderRetailer    = "Trader: Retailer"
	ServiceProvider   = "Service Provider"
)

// Categories returns the selectable categories in display order.
func Categories() []string {
	return []string{Manufacturer, TraderDistributor, TraderRetailer, ServiceProvider}
}

// defaultKeywords maps each category to substrings of the free-text
// nature_of_business column that imply it when the core category is unknown.
var defaultKeywords = map[string][]string{
	Manufacturer:      {"Factory / Manufacturing", "Manufacturing"},
	TraderDistributor: {"Wholesale", "Distributor"},
	ServiceProvider:   {"Services"},
	TraderRetailer:    {"Retail Business"},
}

// DefaultKeywords returns a copy of the built-in keyword table.
func DefaultKeywords() map[string][]string {
	out := make(map[string][]string, len(defaultKeywords))
	for k, v := range defaultKeywords {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ValidateCategories rejects categories outside the known vocabulary.
func ValidateCategories(selected []string) error {
	for _, s := range selected {
		if _, ok := defaultKeywords[s]; !ok {
			return eris.Errorf("business: unknown category %q", s)
		}
	}
	return nil
}

// Classifier decides whether a record belongs to any selected category.
// It is not safe for concurrent use.
type Classifier struct {
	selected map[string]bool
	keywords []string // case-folded keywords of every selected category
	fold     cases.Caser
}

// NewClassifier builds a Classifier for the selected categories using the
// given keyword table. A nil table uses the built-in one.
func NewClassifier(selected []string, keywords map[string][]string) *Classifier {
	if keywords == nil {
		keywords = defaultKeywords
	}
	c := &Classifier{
		selected: make(map[string]bool, len(selected)),
		fold:     cases.Fold(),
	}
	for _, s := range selected {
		if c.selected[s] {
			continue
		}
		c.selected[s] = true
		for _, k := range keywords[s] {
			c.keywords = append(c.keywords, c.fold.String(k))
		}
	}
	return c
}

// Active reports whether any category was selected. An inactive
// Classifier is a no-op filter.
func (c *Classifier) Active() bool {
	return len(c.selected) > 0
}

// Match applies the category rules to one record:
//   - a core category equal to a selected category matches;
//   - an unknown core category (NA or blank) falls back to a
//     case-insensitive keyword search of the nature description;
//   - any other core category does not match.
//
// With no categories selected every record matches.
func (c *Classifier) Match(core, nature string) bool {
	if !c.Active() {
		return true
	}
	if c.selected[core] {
		return true
	}
	trimmed := strings.TrimSpace(core)
	if trimmed != model.NA && trimmed != "" {
		return false
	}
	text := c.fold.String(nature)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
