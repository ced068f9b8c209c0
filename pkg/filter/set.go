// Package filter holds catalog filter selections, their canonical cache keys,
// and the speculative candidate builder used for hover prefetching.
package filter

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Dimension names a set-valued filter dimension.
type Dimension string

const (
	// Categories is the clothing category dimension (e.g. "shirts").
	Categories Dimension = "categories"

	// Colors is the color dimension (e.g. "red").
	Colors Dimension = "colors"

	// Sizes is the size dimension (e.g. "M").
	Sizes Dimension = "sizes"
)

// Dimensions lists every set-valued dimension in key order.
var Dimensions = []Dimension{Categories, Colors, Sizes}

// PriceRange is either a [Min, Max] tuple or unset.
// The zero value is unset, see NoPrice.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	set bool
}

// NoPrice is the unset sentinel. Passing it as a hover or committed price
// clears the price filter.
var NoPrice = PriceRange{}

// Between returns a price range tuple.
func Between(min, max float64) PriceRange {
	return PriceRange{Min: min, Max: max, set: true}
}

// IsSet reports whether the range is a tuple rather than the unset sentinel.
func (p PriceRange) IsSet() bool {
	return p.set
}

// MarshalJSON encodes a tuple as [min,max] and the unset sentinel as "".
func (p PriceRange) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte(`""`), nil
	}
	return json.Marshal([2]float64{p.Min, p.Max})
}

// UnmarshalJSON accepts [min,max], "" or null.
func (p *PriceRange) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `""`, "null":
		*p = NoPrice
		return nil
	}
	var tuple [2]float64
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("price range: %w", err)
	}
	*p = Between(tuple[0], tuple[1])
	return nil
}

// Set is one combination of filter selections defining a catalog query.
// Dimension slices are treated as sets of unique values.
type Set struct {
	Gender     string     `json:"gender,omitempty"`
	Categories []string   `json:"categories"`
	Colors     []string   `json:"colors"`
	Sizes      []string   `json:"sizes"`
	Price      PriceRange `json:"price"`
}

// Values returns the selections of one dimension.
// The returned slice aliases the Set; use Clone before mutating.
func (s Set) Values(d Dimension) []string {
	switch d {
	case Categories:
		return s.Categories
	case Colors:
		return s.Colors
	case Sizes:
		return s.Sizes
	default:
		return nil
	}
}

// with returns s with dimension d replaced by values.
func (s Set) with(d Dimension, values []string) Set {
	switch d {
	case Categories:
		s.Categories = values
	case Colors:
		s.Colors = values
	case Sizes:
		s.Sizes = values
	}
	return s
}

// Clone returns a deep copy whose slices share nothing with s.
func (s Set) Clone() Set {
	s.Categories = cloneValues(s.Categories)
	s.Colors = cloneValues(s.Colors)
	s.Sizes = cloneValues(s.Sizes)
	return s
}

// Canonical returns a copy with every dimension sorted and de-duplicated.
// Empty values are dropped.
//
// Values are compared bytewise (sort.Strings), which is a total order over
// strings, so two logically equal sets always canonicalize identically.
func (s Set) Canonical() Set {
	s.Categories = canonicalValues(s.Categories)
	s.Colors = canonicalValues(s.Colors)
	s.Sizes = canonicalValues(s.Sizes)
	return s
}

// IsEmpty reports whether no dimension and no price is selected.
// Gender does not count as a filter.
func (s Set) IsEmpty() bool {
	return len(s.Categories) == 0 && len(s.Colors) == 0 && len(s.Sizes) == 0 && !s.Price.IsSet()
}

// Equal reports whether s and o select the same logical filters,
// ignoring order within each dimension.
func (s Set) Equal(o Set) bool {
	return s.Key() == o.Key()
}

func cloneValues(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func canonicalValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}

// toggled applies the involution rule to a copy of values:
// present values are removed, absent values are appended.
// An empty value leaves the copy unchanged.
func toggled(values []string, value string) []string {
	out := cloneValues(values)
	if value == "" {
		return out
	}
	if i := slices.Index(out, value); i >= 0 {
		return slices.Delete(out, i, i+1)
	}
	return append(out, value)
}
