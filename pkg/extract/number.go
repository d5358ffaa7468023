package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Game clients write fractional numbers with the decimal separator of
// the machine locale: a period, a comma, or the Arabic decimal
// separator. Group separators are never written, so every separator
// seen is a decimal mark.
const arabicDecimal = "٫"

// NormalizeDecimal rewrites locale decimal separators to a period.
func NormalizeDecimal(s string) string {
	s = strings.ReplaceAll(s, ",", ".")
	return strings.ReplaceAll(s, arabicDecimal, ".")
}

// ParseAmount parses a numeric payload locale-invariantly. More than
// one decimal mark, or no digits at all, is a parse error.
func ParseAmount(s string) (float64, error) {
	normalized := NormalizeDecimal(s)
	if strings.Count(normalized, ".") > 1 {
		return 0, fmt.Errorf("multiple decimal separators in %q", s)
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
