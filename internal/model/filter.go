package model

import (
	"errors"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidScope is returned for a scope level the system does not know.
// It is raised before any data access.
var ErrInvalidScope = errors.New("invalid scope level")

// ScopeLevel selects how the raw batch is acquired.
type ScopeLevel string

const (
	// ScopeSnapshot filters the cached full snapshot (the default).
	ScopeSnapshot ScopeLevel = ""
	// ScopeState resolves state shapes and queries records inside them.
	ScopeState ScopeLevel = "state"
	// ScopeCity resolves city shapes and queries records inside them.
	ScopeCity ScopeLevel = "city"
)

// ParseScopeLevel normalizes user input into a ScopeLevel.
func ParseScopeLevel(s string) (ScopeLevel, error) {
	switch ScopeLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeSnapshot, "snapshot":
		return ScopeSnapshot, nil
	case ScopeState:
		return ScopeState, nil
	case ScopeCity:
		return ScopeCity, nil
	default:
		return "", eris.Wrapf(ErrInvalidScope, "model: scope level %q", s)
	}
}

// Geographic reports whether the level requires shape resolution.
func (l ScopeLevel) Geographic() bool {
	return l == ScopeState || l == ScopeCity
}

// RequestFilter is the validated user input for one pipeline run.
type RequestFilter struct {
	HSNPrefixes   []string   `json:"hsn_codes"`
	States        []string   `json:"states"`
	Cities        []string   `json:"cities"`
	BusinessTypes []string   `json:"business_types"`
	Slabs         []string   `json:"slabs"`
	Level         ScopeLevel `json:"level,omitempty"`
	Shapes        []string   `json:"shapes,omitempty"`
}

// Validate checks the scope part of the filter. Category and slab values
// are checked by the packages that own those vocabularies.
func (f RequestFilter) Validate() error {
	switch f.Level {
	case ScopeSnapshot:
		return nil
	case ScopeState, ScopeCity:
		if len(f.Shapes) == 0 {
			return eris.Wrapf(ErrInvalidScope, "model: scope level %q needs at least one shape name", f.Level)
		}
		return nil
	default:
		return eris.Wrapf(ErrInvalidScope, "model: scope level %q", f.Level)
	}
}

// Clone returns a copy of f that shares no slices with it.
func (f RequestFilter) Clone() RequestFilter {
	return RequestFilter{
		HSNPrefixes:   slices.Clone(f.HSNPrefixes),
		States:        slices.Clone(f.States),
		Cities:        slices.Clone(f.Cities),
		BusinessTypes: slices.Clone(f.BusinessTypes),
		Slabs:         slices.Clone(f.Slabs),
		Level:         f.Level,
		Shapes:        slices.Clone(f.Shapes),
	}
}
