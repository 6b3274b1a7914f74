package pipeline

import (
	"sort"

	"github.com/sells-group/gst-filter/internal/business"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/slab"
)

// Options is the vocabulary a request form offers.
type Options struct {
	States        []string            `json:"states" yaml:"states"`
	Cities        map[string][]string `json:"cities" yaml:"cities"` // state -> sorted cities
	BusinessTypes []string            `json:"business_types" yaml:"business_types"`
	Slabs         []string            `json:"slabs" yaml:"slabs"`
}

// CitiesFor returns the sorted distinct cities of the given states.
func (o *Options) CitiesFor(states []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range states {
		for _, c := range o.Cities[s] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BuildOptions derives the states and cities offered to the user from the
// prefiltered batch (active records with a usable pincode). b is not
// modified.
func BuildOptions(b model.Batch) *Options {
	states := make(map[string]map[string]bool)
	for _, r := range b.Records {
		if r.Status != model.StatusActive {
			continue
		}
		if b.HasPincodeStatus && !r.PincodeStatus.Usable() {
			continue
		}
		if r.State == "" {
			continue
		}
		cities, ok := states[r.State]
		if !ok {
			cities = make(map[string]bool)
			states[r.State] = cities
		}
		if r.City != "" {
			cities[r.City] = true
		}
	}

	opts := &Options{
		Cities:        make(map[string][]string, len(states)),
		BusinessTypes: business.Categories(),
		Slabs:         slab.Labels(),
	}
	for state, cities := range states {
		opts.States = append(opts.States, state)
		list := make([]string, 0, len(cities))
		for c := range cities {
			list = append(list, c)
		}
		sort.Strings(list)
		opts.Cities[state] = list
	}
	sort.Strings(opts.States)
	return opts
}
