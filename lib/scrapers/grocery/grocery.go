package grocery

import (
	"context"
	"fmt"
	"time"
)

// the extraction pipeline for one (store, ingredient) pair is a fixed
// chain of tiers sharing one interface:
//
//	navigate -> extract html -> [extract vision] -> settle
//
// a tier either produces a quote, reports ErrInconclusive (the normal
// trigger for the next tier), or fails the attempt. new tiers are
// added by appending to the chain, never by branching on type.

// Method records which tier produced a quote.
type Method string

const (
	MethodHTML   Method = "html"
	MethodVision Method = "vision"
)

// Cents is a USD amount in cents. Quotes never carry zero or negative
// amounts, such extractions are rejected at the parse boundary.
type Cents int64

func (c Cents) String() string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}

// Quote is a single store's reported price for one ingredient at one
// point in time.
type Quote struct {
	StoreId    string    `json:"store_id"`
	Ingredient string    `json:"ingredient"`
	Cents      Cents     `json:"cents"`
	Currency   string    `json:"currency"`
	Method     Method    `json:"method"`
	Confidence float64   `json:"confidence"`
	Time       time.Time `json:"time"`
}

// Page is the rendered content of a store's search results page.
// Screenshot is nil when the navigator cannot rasterize (the static
// fetcher), which disables the vision tier for the attempt.
type Page struct {
	StoreId    string
	Url        string
	HTML       string
	Screenshot []byte
}

// Navigator loads a store's search results page for one ingredient
// term and returns its rendered content.
type Navigator interface {
	Load(ctx context.Context, store Store, term string) (Page, error)
}

// Extractor is one tier of the extraction chain.
type Extractor interface {
	Method() Method
	// Extract returns ErrInconclusive when it cannot confidently
	// identify a price. that is not a failure, it hands the page to
	// the next tier.
	Extract(ctx context.Context, page Page, term string) (Quote, error)
}

var (
	// navigation failures, retryable with bounded backoff
	ErrNavTimeout = fmt.Errorf("page never reached ready state")
	ErrBlocked    = fmt.Errorf("request was blocked by the store")
	ErrTransport  = fmt.Errorf("transport level failure")

	// extraction outcomes
	ErrInconclusive = fmt.Errorf("no confident price match")
	ErrModel        = fmt.Errorf("vision model failure")
)

// joinErr tags a concrete cause with one of the sentinel errors above
// so callers can classify with errors.Is and still see the cause.
func joinErr(sentinel, cause error) error {
	return fmt.Errorf("%w: %v", sentinel, cause)
}

func errStatus(code int) error {
	return fmt.Errorf("unexpected status %d", code)
}
