package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var priceNumRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ParsePrice maps a raw storefront price string to a numeric price.
// "Free" (any casing) is 0.0. Otherwise the first number in the string
// is parsed with comma treated as a decimal separator. Anything
// unparsable ("No disponible", demo banners, bundles) yields nil,
// meaning "price unknown", not an extraction failure.
func ParsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.Contains(strings.ToLower(raw), "free") {
		zero := 0.0
		return &zero
	}

	num := priceNumRe.FindString(raw)
	if num == "" {
		return nil
	}
	num = strings.ReplaceAll(num, ",", ".")

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &v
}
