package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"simcollect/pkg/config"
	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
)

const (
	emailSelector    = `input[name="email"]`
	passwordSelector = `input[name="password"]`
)

// ChromeOptions configures the browser login.
type ChromeOptions struct {
	LoginURL    string
	CookieName  string
	Headless    bool
	ExecPath    string
	UserAgent   string
	SettleDelay time.Duration
	Timeout     time.Duration
}

// ChromeOptionsFrom maps the session and fetch configuration onto browser
// options.
func ChromeOptionsFrom(s config.SessionConfig, f config.FetchConfig) ChromeOptions {
	return ChromeOptions{
		LoginURL:    s.LoginURL,
		CookieName:  s.CookieName,
		Headless:    s.Headless,
		ExecPath:    s.ChromePath,
		UserAgent:   f.UserAgent,
		SettleDelay: s.SettleDelay,
		Timeout:     s.LoginTimeout,
	}
}

// ChromeProvider signs in through a Chrome instance driven over the DevTools
// protocol. The browser starts on the first Acquire and lives until Close.
type ChromeProvider struct {
	opts   ChromeOptions
	logger logger.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	closed        bool
	closeOnce     sync.Once
}

// NewChromeProvider creates a provider. No browser is launched until Acquire.
func NewChromeProvider(opts ChromeOptions, log logger.Logger) *ChromeProvider {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ChromeProvider{
		opts:   opts,
		logger: log.WithField("component", "session"),
	}
}

func (p *ChromeProvider) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.opts.ExecPath))
	}
	if p.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.opts.UserAgent))
	}
	return opts
}

// browser returns the long-lived browser context, starting it if needed.
func (p *ChromeProvider) browser() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errs.New(errs.ErrorTypeAuth, "session provider is closed")
	}
	if p.browserCtx == nil {
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), p.allocatorOptions()...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		// Start the browser on the long-lived context so per-login
		// timeouts only close the tab's work, not the browser.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to start browser")
		}
		p.browserCtx = browserCtx
		p.allocCancel = allocCancel
		p.browserCancel = browserCancel
		p.logger.DebugWithFields("Browser allocated", map[string]interface{}{
			"headless": p.opts.Headless,
		})
	}
	return p.browserCtx, nil
}

// Acquire signs in with id and returns the cookies set by the site.
func (p *ChromeProvider) Acquire(ctx context.Context, id Identity) (Bundle, error) {
	if id.Email == "" || id.Password == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "email and password are required for browser login")
	}

	browserCtx, err := p.browser()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(browserCtx, p.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	p.logger.InfoWithFields("Signing in", map[string]interface{}{
		"url":   p.opts.LoginURL,
		"email": id.Email,
	})

	var cookies []*network.Cookie
	err = chromedp.Run(runCtx,
		chromedp.Navigate(p.opts.LoginURL),
		chromedp.WaitVisible(emailSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, id.Email, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, id.Password+kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(p.opts.SettleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logPage(browserCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "login page did not finish within %s", p.opts.Timeout)
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "browser login failed")
	}

	bundle := make(Bundle, len(cookies))
	for _, c := range cookies {
		bundle[c.Name] = c.Value
	}

	if p.opts.CookieName != "" && !bundle.Has(p.opts.CookieName) {
		reason := p.logPage(browserCtx)
		if reason == "" {
			reason = "no session cookie after sign-in"
		}
		return nil, errs.New(errs.ErrorTypeAuth, "login rejected: %s", reason)
	}

	p.logger.InfoWithFields("Signed in", map[string]interface{}{
		"cookies":     len(bundle),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return bundle, nil
}

// logPage dumps the current page at debug level and returns the condensed
// failure reason found in it.
func (p *ChromeProvider) logPage(browserCtx context.Context) string {
	ctx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		p.logger.WithError(err).Debug("Could not capture login page")
		return ""
	}
	reason := LoginFailureReason(html)
	p.logger.DebugWithFields("Login page source", map[string]interface{}{
		"reason": reason,
		"html":   html,
	})
	return reason
}

// Close shuts the browser down. Later calls do nothing.
func (p *ChromeProvider) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.closed = true
		if p.browserCancel != nil {
			p.browserCancel()
			p.allocCancel()
			p.logger.Debug("Browser closed")
		}
	})
	return nil
}
