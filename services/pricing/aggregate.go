package pricing

import (
	"sort"

	"budgeat-backend/lib/scrapers/grocery"
)

// AggregatedPrice fuses every quote collected for one ingredient into
// a single representative price. When no valid quote exists the
// ingredient is unpriced, never zero.
type AggregatedPrice struct {
	Ingredient string          `json:"ingredient"`
	Cents      grocery.Cents   `json:"cents"`
	Chosen     *grocery.Quote  `json:"chosen,omitempty"`
	Considered []grocery.Quote `json:"considered"`
	Unpriced   bool            `json:"unpriced"`
}

// the system exists to find the best price, so the representative
// price is the minimum across stores. html quotes beat vision quotes
// on equal price (cheaper to have obtained, marginally higher trust),
// equal method ties break on store id for determinism.
func quoteLess(a, b grocery.Quote) bool {
	if a.Cents != b.Cents {
		return a.Cents < b.Cents
	}
	if a.Method != b.Method {
		return a.Method == grocery.MethodHTML
	}
	return a.StoreId < b.StoreId
}

func validQuote(q grocery.Quote) bool {
	return grocery.Plausible(q.Cents) && q.Currency == "USD"
}

// Aggregate is pure: the same quote set always yields the same
// aggregated price.
func Aggregate(ingredient string, quotes []grocery.Quote) AggregatedPrice {
	valid := make([]grocery.Quote, 0, len(quotes))
	for _, q := range quotes {
		if validQuote(q) {
			valid = append(valid, q)
		}
	}

	if len(valid) == 0 {
		return AggregatedPrice{
			Ingredient: ingredient,
			Considered: valid,
			Unpriced:   true,
		}
	}

	sort.Slice(valid, func(i, j int) bool {
		return quoteLess(valid[i], valid[j])
	})

	chosen := valid[0]
	return AggregatedPrice{
		Ingredient: ingredient,
		Cents:      chosen.Cents,
		Chosen:     &chosen,
		Considered: valid,
	}
}
