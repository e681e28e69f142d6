package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Default user agent, kept in sync with the one the static fetcher
// sends so a store sees the same client either way.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// number of tabs kept around, each tab runs at most one
	// navigation at a time
	PoolSize int
	Headless bool
}

// Browser wraps a single chrome process with a fixed pool of tabs.
type Browser struct {
	allocCancel context.CancelFunc
	tabs        chan *tab
	size        int
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New(ctx context.Context, opts Options) (*Browser, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 2
	}

	execOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		// stores sniff for automation, hide the obvious tells
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(UserAgent),
		chromedp.Flag("lang", "en-US"),
	)
	if !opts.Headless {
		execOpts = append(execOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)

	b := &Browser{
		allocCancel: allocCancel,
		tabs:        make(chan *tab, opts.PoolSize),
		size:        opts.PoolSize,
	}
	for i := 0; i < opts.PoolSize; i++ {
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		b.tabs <- &tab{ctx: tabCtx, cancel: tabCancel}
	}
	return b, nil
}

func (b *Browser) Close() {
	for i := 0; i < b.size; i++ {
		t := <-b.tabs
		t.cancel()
	}
	b.allocCancel()
}

// Acquire checks a tab out of the pool, blocking until one is free or
// the context expires. The returned session owns the tab exclusively
// until Release is called.
func (b *Browser) Acquire(ctx context.Context) (*Session, error) {
	select {
	case t := <-b.tabs:
		return &Session{tab: t, pool: b.tabs}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Session struct {
	tab  *tab
	pool chan *tab
}

func (s *Session) Release() {
	if s.tab == nil {
		return
	}
	s.pool <- s.tab
	s.tab = nil
}

// Navigate loads the url and polls readyExpr (a javascript expression
// evaluating to a boolean) until it holds or the timeout passes.
func (s *Session) Navigate(ctx context.Context, url, readyExpr string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(s.tab.ctx, timeout)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var ready bool
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Poll(
			readyExpr,
			&ready,
			chromedp.WithPollingInterval(250*time.Millisecond),
			chromedp.WithPollingTimeout(timeout),
		),
	)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("page never reached ready state")
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.tab.ctx, 15*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var out string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &out))
	return out, err
}

// Screenshot captures the visible viewport, png encoded.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(s.tab.ctx, 15*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var buf []byte
	err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}
