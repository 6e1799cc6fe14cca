package importer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errBadAmount = errors.New("not a number")

// parseAmount accepts both "1,234.56" and "1.234,56" styles, an optional
// currency symbol, and "(12.00)" for negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", "€", "", "$", "", "£", "").Replace(s)

	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}

	if clean == "" {
		return decimal.Zero, errBadAmount
	}

	clean = normalizeSeparators(clean)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, errBadAmount
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator
// and no grouping separators remain.
func normalizeSeparators(s string) string {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}

		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		// A single comma followed by one or two digits is a decimal comma.
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}

		return strings.ReplaceAll(s, ",", "")
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}

	return s
}
