package pricing

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"budgeat-backend/lib/scrapers/grocery"
	"budgeat-backend/services/pricing/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("services/pricing")

type Options struct {
	Stores []grocery.Store
	// upper bound on concurrent navigations across all stores
	Concurrency int64
	// wall clock budget for researching one ingredient across every
	// store; on expiry in-flight attempts are cancelled and whatever
	// settled is aggregated
	IngredientTimeout time.Duration
	// navigation attempts per store before the pair settles with no
	// quote
	MaxNavAttempts int
	// base delay between navigation retries, grown exponentially
	RetryBaseDelay time.Duration
}

func (o *Options) fillDefaults() {
	if len(o.Stores) == 0 {
		o.Stores = grocery.DefaultStores()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.IngredientTimeout <= 0 {
		o.IngredientTimeout = 2 * time.Minute
	}
	if o.MaxNavAttempts <= 0 {
		o.MaxNavAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = time.Second
	}
}

// Service runs the extraction pipeline: navigate, extract html, fall
// back to vision, aggregate.
type Service struct {
	navigator  grocery.Navigator
	extractors []grocery.Extractor
	qry        *db.Queries
	opts       Options

	// global pool plus one slot per store so no store ever sees two
	// concurrent hits from us
	pool     *semaphore.Weighted
	perStore map[string]*semaphore.Weighted
}

// NewService wires the pipeline. `database` may be nil, quote history
// is then not persisted. `extractors` is the ordered fallback chain,
// usually [html, vision].
func NewService(database *sql.DB, navigator grocery.Navigator, extractors []grocery.Extractor, opts Options) *Service {
	opts.fillDefaults()

	perStore := make(map[string]*semaphore.Weighted, len(opts.Stores))
	for _, store := range opts.Stores {
		perStore[store.Id] = semaphore.NewWeighted(1)
	}

	var qry *db.Queries
	if database != nil {
		qry = db.New(database)
	}

	return &Service{
		navigator:  navigator,
		extractors: extractors,
		qry:        qry,
		opts:       opts,
		pool:       semaphore.NewWeighted(opts.Concurrency),
		perStore:   perStore,
	}
}

// Outcome classifies how one (store, ingredient) attempt settled.
type Outcome string

const (
	OutcomeQuote        Outcome = "quote"
	OutcomeInconclusive Outcome = "inconclusive"
	OutcomeBlocked      Outcome = "blocked"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeTransport    Outcome = "transport"
	OutcomeModelError   Outcome = "model_error"
	OutcomeCancelled    Outcome = "cancelled"
)

// Attempt is one entry of the diagnostic trail. Every queried store
// produces exactly one, silent omission of failed lookups is
// disallowed.
type Attempt struct {
	StoreId string         `json:"store_id"`
	Outcome Outcome        `json:"outcome"`
	Quote   *grocery.Quote `json:"quote,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// IngredientResult is everything the pipeline learned about one
// ingredient.
type IngredientResult struct {
	Ingredient string          `json:"ingredient"`
	Aggregated AggregatedPrice `json:"aggregated"`
	Attempts   []Attempt       `json:"attempts"`
}

// ResearchIngredient fans the ingredient out over every configured
// store and aggregates once all attempts have settled. Partial
// results are fine, mixing with still-pending ones is not.
func (s *Service) ResearchIngredient(ctx context.Context, ingredient string) IngredientResult {
	ctx, span := tracer.Start(ctx, "ResearchIngredient")
	defer span.End()
	span.SetAttributes(attribute.String("ingredient", ingredient))

	ctx, cancel := context.WithTimeout(ctx, s.opts.IngredientTimeout)
	defer cancel()

	attempts := make([]Attempt, len(s.opts.Stores))
	wg := sync.WaitGroup{}
	for i, store := range s.opts.Stores {
		wg.Add(1)
		go func(i int, store grocery.Store) {
			defer wg.Done()
			attempts[i] = s.attemptStore(ctx, store, ingredient)
		}(i, store)
	}
	wg.Wait()

	var quotes []grocery.Quote
	for _, attempt := range attempts {
		if attempt.Quote != nil {
			quotes = append(quotes, *attempt.Quote)
		}
	}

	aggregated := Aggregate(ingredient, quotes)
	if aggregated.Unpriced {
		span.SetAttributes(attribute.Bool("unpriced", true))
	} else {
		span.SetAttributes(attribute.Int64("cents", int64(aggregated.Cents)))
	}

	s.recordQuotes(ctx, quotes)

	return IngredientResult{
		Ingredient: ingredient,
		Aggregated: aggregated,
		Attempts:   attempts,
	}
}

// ResearchIngredients researches a deduplicated ingredient set. The
// global pool bounds actual navigation concurrency, so fanning out
// every ingredient at once is safe.
func (s *Service) ResearchIngredients(ctx context.Context, ingredients []string) map[string]IngredientResult {
	ctx, span := tracer.Start(ctx, "ResearchIngredients")
	defer span.End()

	unique := make([]string, 0, len(ingredients))
	seen := make(map[string]struct{}, len(ingredients))
	for _, ingredient := range ingredients {
		if _, ok := seen[ingredient]; ok {
			continue
		}
		seen[ingredient] = struct{}{}
		unique = append(unique, ingredient)
	}

	results := make([]IngredientResult, len(unique))
	wg := sync.WaitGroup{}
	for i, ingredient := range unique {
		wg.Add(1)
		go func(i int, ingredient string) {
			defer wg.Done()
			results[i] = s.ResearchIngredient(ctx, ingredient)
		}(i, ingredient)
	}
	wg.Wait()

	out := make(map[string]IngredientResult, len(results))
	for _, result := range results {
		out[result.Ingredient] = result
	}
	return out
}

func (s *Service) recordQuotes(ctx context.Context, quotes []grocery.Quote) {
	if s.qry == nil {
		return
	}
	// history insert failures never fail the research run
	for _, q := range quotes {
		err := s.qry.InsertQuote(ctx, db.InsertQuoteParams{
			StoreID:    q.StoreId,
			Ingredient: q.Ingredient,
			Cents:      int64(q.Cents),
			Currency:   q.Currency,
			Method:     string(q.Method),
			Confidence: q.Confidence,
			CreatedAt:  q.Time.Unix(),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to record quote", "store", q.StoreId, "ingredient", q.Ingredient, "err", err)
		}
	}
}

func classify(err error) (Outcome, string) {
	switch {
	case errors.Is(err, grocery.ErrBlocked):
		return OutcomeBlocked, err.Error()
	case errors.Is(err, grocery.ErrNavTimeout):
		return OutcomeTimeout, err.Error()
	case errors.Is(err, grocery.ErrTransport):
		return OutcomeTransport, err.Error()
	case errors.Is(err, grocery.ErrModel):
		return OutcomeModelError, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled, err.Error()
	default:
		return OutcomeTransport, err.Error()
	}
}
