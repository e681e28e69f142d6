package grocery

import (
	"context"
	"strings"
	"time"

	"budgeat-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// minimum title similarity for a price to count as a match for the
// queried ingredient
const minTitleSimilarity = 0.72

// how many text lines above a price line are considered as its
// product title
const titleLookback = 4

// HTMLExtractor scans the rendered page text for currency tokens close
// to a product title resembling the queried ingredient.
type HTMLExtractor struct{}

func (HTMLExtractor) Method() Method {
	return MethodHTML
}

type candidate struct {
	title      string
	cents      Cents
	similarity float64
}

func (HTMLExtractor) Extract(ctx context.Context, page Page, term string) (Quote, error) {
	ctx, span := tracer.Start(ctx, "html:Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return Quote{}, joinErr(ErrInconclusive, err)
	}

	lines := strings.Split(htmlutil.BodyText(doc), "\n")
	best := bestCandidate(lines, term)
	if best == nil {
		span.SetStatus(codes.Ok, "inconclusive")
		return Quote{}, ErrInconclusive
	}

	span.SetAttributes(
		attribute.String("title", best.title),
		attribute.Int64("cents", int64(best.cents)),
		attribute.Float64("similarity", best.similarity),
	)

	return Quote{
		StoreId:    page.StoreId,
		Ingredient: term,
		Cents:      best.cents,
		Currency:   "USD",
		Method:     MethodHTML,
		Confidence: best.similarity,
		Time:       time.Now().UTC(),
	}, nil
}

func bestCandidate(lines []string, term string) *candidate {
	var best *candidate

	for i, line := range lines {
		if !HasPriceToken(line) {
			continue
		}
		cents, err := ParseCents(line)
		if err != nil || !Plausible(cents) {
			continue
		}

		title, similarity := nearestTitle(lines, i, term)
		if similarity < minTitleSimilarity {
			continue
		}
		if best == nil || similarity > best.similarity {
			best = &candidate{title: title, cents: cents, similarity: similarity}
		}
	}

	return best
}

// nearestTitle looks back a few lines from a price for the text most
// resembling the search term. store layouts put the product name right
// above its price tile in document order.
func nearestTitle(lines []string, priceIdx int, term string) (string, float64) {
	bestTitle := ""
	bestSimilarity := 0.0

	start := priceIdx - titleLookback
	if start < 0 {
		start = 0
	}
	for i := start; i < priceIdx; i++ {
		line := lines[i]
		if line == "" || HasPriceToken(line) {
			continue
		}
		similarity := titleSimilarity(line, term)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestTitle = line
		}
	}

	return bestTitle, bestSimilarity
}

// titleSimilarity compares an ingredient term against a product title.
// full titles carry brand and size noise, so the term is also matched
// against each window of words and substring containment counts as a
// strong signal.
func titleSimilarity(title, term string) float64 {
	title = strings.ToLower(title)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || title == "" {
		return 0
	}

	if strings.Contains(title, term) {
		return 0.95
	}

	best := matchr.JaroWinkler(title, term, false)

	words := strings.Fields(title)
	termWords := len(strings.Fields(term))
	for i := 0; i+termWords <= len(words); i++ {
		window := strings.Join(words[i:i+termWords], " ")
		similarity := matchr.JaroWinkler(window, term, false)
		if similarity > best {
			best = similarity
		}
	}

	return best
}
