package ligamagic

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"commander_go/internal/infra"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"
)

// ChromeRenderer renders card pages in a headless Chrome started on first use.
// Calls are serialised on one browser instance.
type ChromeRenderer struct {
	baseURL  string
	timeout  time.Duration
	execPath string

	// launch starts a browser; replaced in tests
	launch func() (browserCtx context.Context, cancelBrowser, cancelAlloc context.CancelFunc, err error)

	mu            sync.Mutex
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer waits up to timeout for the marketplace prices of a page.
// execPath may be empty to let chromedp locate Chrome.
func NewChromeRenderer(baseURL string, timeout time.Duration, execPath string) *ChromeRenderer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &ChromeRenderer{baseURL: baseURL, timeout: timeout, execPath: execPath}
	r.launch = r.launchChrome
	return r
}

func (r *ChromeRenderer) cardURL(card string) string {
	q := url.Values{}
	q.Set("view", "cards/card")
	q.Set("card", card)
	return r.baseURL + "?" + q.Encode()
}

// ensureBrowser must be called with mu held. A browser whose context has
// ended (crash, killed process) is released and started again.
func (r *ChromeRenderer) ensureBrowser() error {
	if r.browserCtx != nil {
		if r.browserCtx.Err() == nil {
			return nil
		}
		slog.Warn("Headless browser is gone, restarting", slog.Any("error", context.Cause(r.browserCtx)))
		r.release()
	}

	browserCtx, cancelBrowser, cancelAlloc, err := r.launch()
	if err != nil {
		return err
	}

	slog.Info("Headless browser started")
	r.cancelAlloc = cancelAlloc
	r.browserCtx = browserCtx
	r.cancelBrowser = cancelBrowser
	return nil
}

func (r *ChromeRenderer) launchChrome() (context.Context, context.CancelFunc, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(infra.DefaultUserAgent),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, nil, nil, err
	}
	return browserCtx, cancelBrowser, cancelAlloc, nil
}

// release must be called with mu held
func (r *ChromeRenderer) release() {
	if r.cancelBrowser != nil {
		r.cancelBrowser()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
	r.browserCtx = nil
	r.cancelBrowser = nil
	r.cancelAlloc = nil
}

// RenderPrice loads the card page and returns the cheapest marketplace price.
// A page that never shows prices within the timeout is found=false.
func (r *ChromeRenderer) RenderPrice(ctx context.Context, card string) (decimal.Decimal, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowser(); err != nil {
		return decimal.Zero, false, err
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(r.cardURL(card)),
		chromedp.WaitReady(selectorRenderReady, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Zero, false, ctx.Err()
		}
		if infra.IsTimeout(err) {
			slog.Info("Rendered page showed no prices in time", slog.String("card", card), slog.Duration("timeout", r.timeout))
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return decimal.Zero, false, err
	}
	price, ok := renderedPrice(doc)
	return price, ok, nil
}

// Close shuts the browser down. The renderer restarts it on next use.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release()
}
