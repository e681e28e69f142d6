package grocery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const searchResultsPage = `<html>
<head><script>window.noise = true;</script><style>.tile{}</style></head>
<body>
<header>Free shipping over $35</header>
<nav>Departments</nav>
<div class="tile">
  <span>Great Value Large White Eggs, 12 Count</span>
  <span>$3.29</span>
</div>
<div class="tile">
  <span>Organic Brown Rice, 2lb Bag</span>
  <span>$4.12</span>
</div>
<div class="tile">
  <span>Stainless Steel Rice Cooker</span>
  <span>$49.99</span>
</div>
<footer>© store</footer>
</body>
</html>`

func TestHTMLExtractorFindsMatchingTile(t *testing.T) {
	page := Page{StoreId: "walmart", HTML: searchResultsPage}

	quote, err := HTMLExtractor{}.Extract(context.Background(), page, "eggs")
	require.NoError(t, err)
	require.Equal(t, Cents(329), quote.Cents)
	require.Equal(t, "walmart", quote.StoreId)
	require.Equal(t, "eggs", quote.Ingredient)
	require.Equal(t, MethodHTML, quote.Method)
	require.Equal(t, "USD", quote.Currency)
	require.GreaterOrEqual(t, quote.Confidence, minTitleSimilarity)
}

func TestHTMLExtractorMultiWordTerm(t *testing.T) {
	page := Page{StoreId: "walmart", HTML: searchResultsPage}

	quote, err := HTMLExtractor{}.Extract(context.Background(), page, "brown rice")
	require.NoError(t, err)
	require.Equal(t, Cents(412), quote.Cents)
}

func TestHTMLExtractorInconclusiveOnNoMatch(t *testing.T) {
	page := Page{StoreId: "walmart", HTML: searchResultsPage}

	_, err := HTMLExtractor{}.Extract(context.Background(), page, "saffron threads")
	require.True(t, errors.Is(err, ErrInconclusive))
}

func TestHTMLExtractorInconclusiveOnEmptyPage(t *testing.T) {
	page := Page{StoreId: "walmart", HTML: "<html><body></body></html>"}

	_, err := HTMLExtractor{}.Extract(context.Background(), page, "eggs")
	require.True(t, errors.Is(err, ErrInconclusive))
}

func TestHTMLExtractorIgnoresHeaderNoise(t *testing.T) {
	// the only currency token lives in a stripped header element
	page := Page{StoreId: "target", HTML: `<html><body>
<header>Free shipping over $35 Eggs promo</header>
<div>Great Value Large White Eggs</div>
</body></html>`}

	_, err := HTMLExtractor{}.Extract(context.Background(), page, "eggs")
	require.True(t, errors.Is(err, ErrInconclusive))
}

func TestHTMLExtractorRejectsImplausiblePrices(t *testing.T) {
	page := Page{StoreId: "amazon", HTML: `<html><body>
<div>Commercial Eggs Incubator Machine</div>
<div>$1,299.00</div>
</body></html>`}

	_, err := HTMLExtractor{}.Extract(context.Background(), page, "eggs incubator machine commercial")
	require.True(t, errors.Is(err, ErrInconclusive))
}

func TestTitleSimilarity(t *testing.T) {
	// containment is a strong signal even with brand and size noise
	require.Equal(t, 0.95, titleSimilarity("Great Value Large White Eggs, 12 Count", "eggs"))
	require.GreaterOrEqual(t, titleSimilarity("Organic Brown Rice, 2lb Bag", "brown rice"), minTitleSimilarity)
	require.Less(t, titleSimilarity("Stainless Steel Rice Cooker", "eggs"), minTitleSimilarity)
	require.Equal(t, 0.0, titleSimilarity("anything", ""))
}

func TestBlockedPageMarkers(t *testing.T) {
	require.True(t, blockedPage("<html><title>Access Denied</title></html>"))
	require.True(t, blockedPage("please verify you are a human"))
	require.True(t, blockedPage("Complete the CAPTCHA to continue"))
	require.False(t, blockedPage(searchResultsPage))
}
