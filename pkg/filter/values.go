package filter

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names understood by the storefront API.
const (
	ParamCategory = "category"
	ParamColor    = "color"
	ParamSize     = "size"
	ParamMinPrice = "minPrice"
	ParamMaxPrice = "maxPrice"
)

var dimensionParams = map[Dimension]string{
	Categories: ParamCategory,
	Colors:     ParamColor,
	Sizes:      ParamSize,
}

// QueryValues encodes the canonical form of s as repeatable query
// parameters, e.g. color=blue&color=red&minPrice=10&maxPrice=50.
func (s Set) QueryValues() url.Values {
	c := s.Canonical()
	q := url.Values{}

	if c.Gender != "" {
		q.Set(GenderParam, c.Gender)
	}
	for _, d := range Dimensions {
		for _, v := range c.Values(d) {
			q.Add(dimensionParams[d], v)
		}
	}
	if c.Price.IsSet() {
		q.Set(ParamMinPrice, formatPrice(c.Price.Min))
		q.Set(ParamMaxPrice, formatPrice(c.Price.Max))
	}

	return q
}

// ParseQueryValues decodes a Set from query parameters produced by
// QueryValues. The price filter is set only when both bounds are present.
func ParseQueryValues(q url.Values) (Set, error) {
	set := Set{Gender: ParseGender(q)}.Clone()

	for _, d := range Dimensions {
		var values []string
		for _, v := range q[dimensionParams[d]] {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		set = set.with(d, canonicalValues(values))
	}

	minStr, maxStr := q.Get(ParamMinPrice), q.Get(ParamMaxPrice)
	if minStr != "" && maxStr != "" {
		price, err := ParsePriceRange(minStr, maxStr)
		if err != nil {
			return Set{}, err
		}
		set.Price = price
	}

	return set, nil
}

// ParsePriceRange parses two decimal bounds into a tuple.
func ParsePriceRange(minStr, maxStr string) (PriceRange, error) {
	min, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return NoPrice, fmt.Errorf("parse %s: %w", ParamMinPrice, err)
	}
	max, err := strconv.ParseFloat(maxStr, 64)
	if err != nil {
		return NoPrice, fmt.Errorf("parse %s: %w", ParamMaxPrice, err)
	}
	if !finite(min) || !finite(max) {
		return NoPrice, fmt.Errorf("invalid price range: bounds must be finite (got %s-%s)", minStr, maxStr)
	}
	if min > max {
		return NoPrice, fmt.Errorf("invalid price range: %s > %s", minStr, maxStr)
	}
	return Between(min, max), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
