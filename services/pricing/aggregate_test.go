package pricing

import (
	"testing"

	"budgeat-backend/lib/scrapers/grocery"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func usd(store string, cents grocery.Cents, method grocery.Method) grocery.Quote {
	return grocery.Quote{
		StoreId:    store,
		Ingredient: "eggs",
		Cents:      cents,
		Currency:   "USD",
		Method:     method,
		Confidence: 0.9,
	}
}

func TestAggregatePicksMinimum(t *testing.T) {
	result := Aggregate("eggs", []grocery.Quote{
		usd("walmart", 499, grocery.MethodHTML),
		usd("target", 329, grocery.MethodHTML),
		usd("kroger", 450, grocery.MethodVision),
	})
	require.False(t, result.Unpriced)
	require.Equal(t, grocery.Cents(329), result.Cents)
	require.Equal(t, "target", result.Chosen.StoreId)
	require.Len(t, result.Considered, 3)
}

func TestAggregateTieBreaking(t *testing.T) {
	// equal price: the html quote wins over the vision one
	result := Aggregate("eggs", []grocery.Quote{
		usd("amazon", 399, grocery.MethodVision),
		usd("walmart", 399, grocery.MethodHTML),
	})
	require.Equal(t, "walmart", result.Chosen.StoreId)
	require.Equal(t, grocery.MethodHTML, result.Chosen.Method)

	// equal price and method: lowest store id wins
	result = Aggregate("eggs", []grocery.Quote{
		usd("walmart", 399, grocery.MethodHTML),
		usd("amazon", 399, grocery.MethodHTML),
	})
	require.Equal(t, "amazon", result.Chosen.StoreId)
}

func TestAggregateFiltersInvalidQuotes(t *testing.T) {
	tooHigh := usd("target", 123_456, grocery.MethodHTML)
	foreign := usd("walmart", 250, grocery.MethodHTML)
	foreign.Currency = "EUR"
	zero := usd("kroger", 0, grocery.MethodHTML)

	result := Aggregate("eggs", []grocery.Quote{
		tooHigh,
		foreign,
		zero,
		usd("amazon", 275, grocery.MethodHTML),
	})
	require.False(t, result.Unpriced)
	require.Equal(t, grocery.Cents(275), result.Cents)
	require.Len(t, result.Considered, 1)
}

func TestAggregateUnpriced(t *testing.T) {
	result := Aggregate("saffron", nil)
	require.True(t, result.Unpriced)
	require.Nil(t, result.Chosen)
	require.Equal(t, grocery.Cents(0), result.Cents)

	// all quotes invalid is the same as no quotes
	foreign := usd("target", 250, grocery.MethodHTML)
	foreign.Currency = "CAD"
	result = Aggregate("saffron", []grocery.Quote{foreign})
	require.True(t, result.Unpriced)
}

func TestAggregateDeterministic(t *testing.T) {
	quotes := []grocery.Quote{
		usd("walmart", 399, grocery.MethodHTML),
		usd("target", 329, grocery.MethodVision),
		usd("amazon", 329, grocery.MethodHTML),
		usd("kroger", 610, grocery.MethodHTML),
	}
	reversed := make([]grocery.Quote, len(quotes))
	for i, q := range quotes {
		reversed[len(quotes)-1-i] = q
	}

	a := Aggregate("eggs", quotes)
	b := Aggregate("eggs", reversed)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("aggregation depends on input order:\n%s", diff)
	}
	require.Equal(t, "amazon", a.Chosen.StoreId)
}
