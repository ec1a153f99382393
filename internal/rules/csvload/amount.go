package csvload

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseUSAmount parses spreadsheet-formatted dollar amounts:
// "$1,234.56" -> 1234.56, "(250.00)" -> -250.00, "-1,000" -> -1000.
func parseUSAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)

	negative := false
	if inner, ok := strings.CutPrefix(clean, "("); ok {
		if inner, ok = strings.CutSuffix(inner, ")"); ok {
			clean, negative = inner, true
		}
	}

	clean = strings.NewReplacer("$", "", ",", "", " ", "").Replace(clean)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}
