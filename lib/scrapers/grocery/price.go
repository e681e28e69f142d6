package grocery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// matches currency formatted tokens like $3, $12.49 or $1,049.99
var priceToken = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})*)(?:\.(\d{1,2}))?`)

// no single grocery search hit plausibly costs more than this
const maxPlausibleCents Cents = 50_000

// ParseCents parses the first currency token in s into cents.
func ParseCents(s string) (Cents, error) {
	groups := priceToken.FindStringSubmatch(s)
	if groups == nil {
		return 0, fmt.Errorf("no currency token in %q", s)
	}

	dollars, err := strconv.ParseInt(strings.ReplaceAll(groups[1], ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse dollars of %q: %w", s, err)
	}

	var cents int64
	if groups[2] != "" {
		fraction := groups[2]
		if len(fraction) == 1 {
			fraction += "0"
		}
		cents, err = strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cents of %q: %w", s, err)
		}
	}

	return Cents(dollars*100 + cents), nil
}

// Plausible rejects zero, negative and absurdly large amounts so a
// garbage extraction never turns into a quote.
func Plausible(c Cents) bool {
	return c > 0 && c <= maxPlausibleCents
}

// HasPriceToken reports whether s contains anything that looks like a
// price. Used as the page readiness signal while waiting on stores
// that render prices through client side javascript.
func HasPriceToken(s string) bool {
	return priceToken.MatchString(s)
}
