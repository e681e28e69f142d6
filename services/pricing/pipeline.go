package pricing

import (
	"context"
	"errors"
	"log/slog"

	"budgeat-backend/lib/scrapers/grocery"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// attemptStore settles one (store, ingredient) pair: navigate with
// bounded retries, then walk the extractor chain until a tier
// produces a quote or the chain runs out.
func (s *Service) attemptStore(ctx context.Context, store grocery.Store, ingredient string) Attempt {
	ctx, span := tracer.Start(ctx, "attemptStore")
	defer span.End()
	span.SetAttributes(
		attribute.String("store", store.Id),
		attribute.String("ingredient", ingredient),
	)

	storeSem, ok := s.perStore[store.Id]
	if !ok {
		return Attempt{StoreId: store.Id, Outcome: OutcomeTransport, Detail: "store is not configured"}
	}
	if err := storeSem.Acquire(ctx, 1); err != nil {
		return cancelledAttempt(store.Id, err)
	}
	defer storeSem.Release(1)

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return cancelledAttempt(store.Id, err)
	}
	defer s.pool.Release(1)

	page, err := s.navigateWithRetry(ctx, store, ingredient)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		outcome, detail := classify(err)
		return Attempt{StoreId: store.Id, Outcome: outcome, Detail: detail}
	}

	for _, extractor := range s.extractors {
		quote, err := extractor.Extract(ctx, page, ingredient)
		if err == nil {
			span.SetAttributes(attribute.String("method", string(quote.Method)))
			return Attempt{StoreId: store.Id, Outcome: OutcomeQuote, Quote: &quote}
		}
		if errors.Is(err, grocery.ErrInconclusive) {
			slog.DebugContext(ctx, "extractor inconclusive",
				"store", store.Id,
				"ingredient", ingredient,
				"method", extractor.Method(),
			)
			continue
		}
		// a hard tier failure (model unavailable, malformed
		// response) is terminal for this attempt, there is no
		// further fallback
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		outcome, detail := classify(err)
		return Attempt{StoreId: store.Id, Outcome: outcome, Detail: detail}
	}

	span.SetStatus(codes.Ok, "inconclusive")
	return Attempt{StoreId: store.Id, Outcome: OutcomeInconclusive}
}

func cancelledAttempt(storeId string, err error) Attempt {
	return Attempt{StoreId: storeId, Outcome: OutcomeCancelled, Detail: err.Error()}
}

// navigation failures are retried with exponential backoff up to the
// configured attempt count; bot blocks and transport hiccups are often
// transient, the next attempt lands on a different edge node
func (s *Service) navigateWithRetry(ctx context.Context, store grocery.Store, ingredient string) (grocery.Page, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(s.opts.RetryBaseDelay),
				backoff.WithMaxInterval(10*s.opts.RetryBaseDelay),
			),
			uint64(s.opts.MaxNavAttempts-1),
		),
		ctx,
	)

	var page grocery.Page
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		loaded, err := s.navigator.Load(ctx, store, ingredient)
		if err != nil {
			slog.WarnContext(ctx, "navigation attempt failed",
				"store", store.Id,
				"ingredient", ingredient,
				"attempt", attempt,
				"err", err,
			)
			if retryableNav(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		page = loaded
		return nil
	}, policy)
	return page, err
}

func retryableNav(err error) bool {
	return errors.Is(err, grocery.ErrTransport) ||
		errors.Is(err, grocery.ErrBlocked) ||
		errors.Is(err, grocery.ErrNavTimeout)
}
