// Package gmaps implements scraper.Session on a headless Chrome driven by chromedp.
package gmaps

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"shower-scraper/config"
	"shower-scraper/scraper"
	"shower-scraper/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

var errNoPage = errors.New("no page open")

var _ scraper.Session = (*Session)(nil)

// Options configures the browser.
type Options struct {
	Headless   bool
	ChromeBin  string
	NavTimeout time.Duration
	// NavInterval is the minimum spacing between navigations.
	NavInterval time.Duration
	// ScrollWait is how long lazily loaded content gets after a scroll or click.
	ScrollWait time.Duration
}

// OptionsFromConfig maps the application config onto browser options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:    cfg.Headless,
		ChromeBin:   cfg.ChromeBin,
		NavTimeout:  cfg.NavTimeout,
		NavInterval: cfg.NavInterval,
		ScrollWait:  cfg.ScrollWait,
	}
}

// Session is one Chrome process with at most one open tab.
type Session struct {
	opts    Options
	logger  *utils.Logger
	limiter *rate.Limiter

	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	mu        sync.Mutex
	tabCtx    context.Context
	cancelTab context.CancelFunc
	url       string

	closeOnce sync.Once
}

// Factory returns a scraper.SessionFactory launching a new browser per call.
func Factory(opts Options, logger *utils.Logger) scraper.SessionFactory {
	return func(ctx context.Context) (scraper.Session, error) {
		return Launch(ctx, opts, logger)
	}
}

// Launch starts Chrome. The browser outlives ctx; it is released by Close.
func Launch(ctx context.Context, opts Options, logger *utils.Logger) (*Session, error) {
	logger = logger.With("browser")

	chromeBin := findChromeBinary(opts.ChromeBin)
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		logger.Debug("Using browser binary: %s", chromeBin)
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))

	// The first Run starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, &scraper.BrowserLaunchError{Err: err}
	}

	interval := opts.NavInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 45 * time.Second
	}

	return &Session{
		opts:          opts,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Open closes the current tab and navigates a fresh one to rawURL.
func (s *Session) Open(ctx context.Context, rawURL string) (scraper.PageHandle, error) {
	navErr := func(err error) (scraper.PageHandle, error) {
		return scraper.PageHandle{}, &scraper.NavigationError{URL: rawURL, Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return navErr(err)
	}

	s.mu.Lock()
	if s.cancelTab != nil {
		s.cancelTab()
	}
	s.tabCtx, s.cancelTab = chromedp.NewContext(s.browserCtx)
	s.url = ""
	s.mu.Unlock()

	var landed string
	var consented bool
	err := s.run(ctx, s.opts.NavTimeout,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(consentScript, &consented),
		chromedp.Location(&landed),
	)
	if err != nil {
		return navErr(err)
	}
	if consented {
		s.logger.Debug("Dismissed consent dialog on %s", rawURL)
		if err := s.run(ctx, s.opts.NavTimeout, chromedp.WaitReady("body", chromedp.ByQuery), chromedp.Location(&landed)); err != nil {
			return navErr(err)
		}
	}
	if err := utils.Sleep(ctx, s.opts.ScrollWait); err != nil {
		return navErr(err)
	}

	s.mu.Lock()
	s.url = landed
	s.mu.Unlock()
	return scraper.PageHandle{RequestedURL: rawURL, URL: landed}, nil
}

func (s *Session) ExtractText(ctx context.Context, intent scraper.Intent) ([]string, error) {
	if intent == scraper.IntentPageURL {
		var loc string
		if err := s.run(ctx, s.opts.NavTimeout, chromedp.Location(&loc)); err != nil {
			return nil, s.pageErr(err)
		}
		return []string{loc}, nil
	}

	if _, err := lookup(intent); err != nil {
		return nil, err
	}
	var html string
	if err := s.run(ctx, s.opts.NavTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, s.pageErr(err)
	}
	return extractFromHTML(html, intent)
}

func (s *Session) ScrollUntil(ctx context.Context, intent scraper.Intent, pred scraper.Predicate, maxAttempts int) (bool, error) {
	sel, err := lookup(intent)
	if err != nil {
		return false, err
	}
	script := scrollScript(sel.css)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var found bool
		if err := s.run(ctx, s.opts.NavTimeout, chromedp.Evaluate(script, &found)); err != nil {
			return false, s.pageErr(err)
		}
		if !found {
			return false, &scraper.ExtractionError{Intent: intent}
		}
		if err := utils.Sleep(ctx, s.opts.ScrollWait); err != nil {
			return false, s.pageErr(err)
		}
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		s.logger.Debug("%s: nothing new after scroll %d/%d", intent, attempt, maxAttempts)
	}
	return false, nil
}

func (s *Session) Click(ctx context.Context, intent scraper.Intent) (int, error) {
	sel, err := lookup(intent)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.run(ctx, s.opts.NavTimeout, chromedp.Evaluate(clickScript(sel.css), &n)); err != nil {
		return 0, s.pageErr(err)
	}
	if n > 0 {
		if err := utils.Sleep(ctx, s.opts.ScrollWait); err != nil {
			return n, s.pageErr(err)
		}
	}
	return n, nil
}

// Close shuts the browser down. Later calls are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.cancelTab != nil {
			s.cancelTab()
		}
		s.mu.Unlock()

		err = chromedp.Cancel(s.browserCtx)
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return err
}

// run executes actions on the current tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	tab := s.tabCtx
	s.mu.Unlock()
	if tab == nil {
		return errNoPage
	}

	opCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// pageErr classifies a failed browser call as a navigation problem on the current page.
func (s *Session) pageErr(err error) error {
	s.mu.Lock()
	u := s.url
	s.mu.Unlock()
	return &scraper.NavigationError{URL: u, Err: err}
}
