package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	spacedSeparator = regexp.MustCompile(`(\d)\s+[.,]\s+(\d)`)
	nonPriceChars   = regexp.MustCompile(`[^0-9.]`)
	decimalPair     = regexp.MustCompile(`\d+\.\d+`)
	bareInteger     = regexp.MustCompile(`(\d+)$`)
)

// NormalizePrice repairs OCR-garbled currency text ("S1.50", "£1.50",
// "1 .30", "82,85") into a numeric price. It reports false when no digit
// pair can be extracted; absence of a price is a normal outcome, never an
// error.
func NormalizePrice(s string) (float64, bool) {
	// Collapse spaces that crept in around the decimal separator.
	s = spacedSeparator.ReplaceAllString(s, "$1.$2")

	// Normalize the decimal separator to a dot.
	s = strings.ReplaceAll(s, ",", ".")

	// Strip currency symbols, OCR letter substitutions and whitespace.
	s = nonPriceChars.ReplaceAllString(s, "")

	if m := decimalPair.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return math.Round(v*100) / 100, true
		}
	}

	// A trailing bare integer is a whole-currency-unit price.
	if m := bareInteger.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	return 0, false
}
