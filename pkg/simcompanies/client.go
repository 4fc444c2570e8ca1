package simcompanies

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"simcollect/pkg/config"
	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/ratelimit"
	"simcollect/pkg/record"
	"simcollect/pkg/session"
)

const (
	// DefaultUserAgent mimics a desktop browser
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxResponseSize = 32 << 20
)

// Client fetches chatroom pages with session cookies.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	userAgent  string
	logger     logger.Logger
}

// NewClient creates a fetch client. limiter may be nil.
func NewClient(cfg config.FetchConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		userAgent:  ua,
		logger:     log.WithField("component", "fetch"),
	}
}

// Fetch requests url with the session's cookies and decodes the response
// body into records. Non-200 responses become typed errors.
func (c *Client) Fetch(ctx context.Context, url string, b session.Bundle) ([]record.Value, error) {
	if c.limiter != nil {
		if wait := c.limiter.Delay(); wait > 0 {
			logger.LogRateLimit(c.logger, url, wait)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "invalid endpoint url")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for _, cookie := range b.Cookies() {
		req.AddCookie(cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.Error{
			Type:    errs.TypeForStatus(resp.StatusCode),
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}

	records, err := record.DecodeRecords(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "response is not a JSON record list")
	}
	return records, nil
}
