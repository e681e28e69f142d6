package grocery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"budgeat-backend/lib/browser"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
)

// javascript readiness predicate: the page has a body and at least one
// currency formatted token somewhere in its visible text.
const priceReadyExpr = `document.body != null && /\$\s?\d/.test(document.body.innerText)`

type ChromeNavigatorOptions struct {
	// upper bound on waiting for the readiness predicate
	ReadyTimeout time.Duration
	// random pre navigation delay in [0, JitterMs] milliseconds,
	// hammering a store at machine speed is the fastest way to get
	// the client blocked
	JitterMs int
}

// ChromeNavigator drives a pooled headless chrome to render search
// pages, including ones that only show prices after client side
// javascript runs. Pages it produces carry a screenshot for the
// vision tier.
type ChromeNavigator struct {
	browser *browser.Browser
	opts    ChromeNavigatorOptions
}

func NewChromeNavigator(b *browser.Browser, opts ChromeNavigatorOptions) *ChromeNavigator {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	if opts.JitterMs <= 0 {
		opts.JitterMs = 1500
	}
	return &ChromeNavigator{browser: b, opts: opts}
}

func (n *ChromeNavigator) Load(ctx context.Context, store Store, term string) (Page, error) {
	ctx, span := tracer.Start(ctx, "chrome:Load")
	defer span.End()

	delay, err := random.IntRange(0, n.opts.JitterMs)
	if err == nil && delay > 0 {
		select {
		case <-time.After(time.Duration(delay) * time.Millisecond):
		case <-ctx.Done():
			return Page{}, joinErr(ErrNavTimeout, ctx.Err())
		}
	}

	session, err := n.browser.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no free tab")
		return Page{}, joinErr(ErrNavTimeout, err)
	}
	defer session.Release()

	searchUrl := store.SearchURL(term)
	slog.DebugContext(ctx, "navigating", "store", store.Id, "url", searchUrl)

	err = session.Navigate(ctx, searchUrl, priceReadyExpr, n.opts.ReadyTimeout)
	if err != nil {
		span.RecordError(err)
		if isTimeout(err) {
			span.SetStatus(codes.Error, "navigation timed out")
			return Page{}, joinErr(ErrNavTimeout, err)
		}
		span.SetStatus(codes.Error, "transport failure")
		return Page{}, joinErr(ErrTransport, err)
	}

	html, err := session.HTML(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read page html")
		return Page{}, joinErr(ErrTransport, err)
	}
	if blockedPage(html) {
		span.SetStatus(codes.Error, "blocked by store")
		return Page{}, ErrBlocked
	}

	screenshot, err := session.Screenshot(ctx)
	if err != nil {
		// a missing screenshot only disables the vision tier, the
		// html tier can still run
		slog.WarnContext(ctx, "failed to capture screenshot", "store", store.Id, "err", err)
		screenshot = nil
	}

	return Page{
		StoreId:    store.Id,
		Url:        searchUrl,
		HTML:       html,
		Screenshot: screenshot,
	}, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "ready state") ||
		strings.Contains(msg, "polling timeout")
}

func blockedPage(html string) bool {
	lowered := strings.ToLower(html)
	for _, marker := range []string{
		"captcha",
		"are you a robot",
		"verify you are a human",
		"access denied",
	} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
