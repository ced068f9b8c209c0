package filter

import (
	"net/url"
	"strconv"
	"strings"
)

// KeyPrefix namespaces clothes list keys.
const KeyPrefix = "clothes:list"

// Key is the deterministic cache key of a canonical filter set.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Key generates the cache key of s.
// Format: clothes:list:gender=G:categories=a,b:colors=x:sizes=y:price=MIN-MAX
//
// Empty dimensions are omitted. Values are sorted and query-escaped, so
// insertion order never affects the key and separators inside values
// cannot collide.
//
// Example:
//
//	clothes:list:gender=women:colors=blue,red:price=10-50
func (s Set) Key() Key {
	c := s.Canonical()
	parts := []string{KeyPrefix}

	if c.Gender != "" {
		parts = append(parts, "gender="+url.QueryEscape(c.Gender))
	}

	for _, d := range Dimensions {
		values := c.Values(d)
		if len(values) == 0 {
			continue
		}
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = url.QueryEscape(v)
		}
		parts = append(parts, string(d)+"="+strings.Join(escaped, ","))
	}

	if c.Price.IsSet() {
		parts = append(parts, "price="+formatPrice(c.Price.Min)+"-"+formatPrice(c.Price.Max))
	}

	return Key(strings.Join(parts, ":"))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
