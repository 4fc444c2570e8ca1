package session

import (
	"context"
	"net/http"
	"sort"
	"strings"

	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/retry"
)

// Identity is the account used to sign in.
type Identity struct {
	Email    string
	Password string
}

// Bundle maps cookie names to values for an authenticated session.
type Bundle map[string]string

// Names returns the cookie names in sorted order.
func (b Bundle) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cookies returns the bundle as HTTP cookies, sorted by name.
func (b Bundle) Cookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(b))
	for _, name := range b.Names() {
		cookies = append(cookies, &http.Cookie{Name: name, Value: b[name]})
	}
	return cookies
}

// Header renders the bundle as a Cookie header value.
func (b Bundle) Header() string {
	parts := make([]string, 0, len(b))
	for _, c := range b.Cookies() {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "; ")
}

// Has reports whether the bundle holds a non-empty cookie called name.
func (b Bundle) Has(name string) bool {
	return b[name] != ""
}

// Clone returns an independent copy.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Provider obtains a session for an identity. Close releases whatever the
// provider holds and may be called more than once.
type Provider interface {
	Acquire(ctx context.Context, id Identity) (Bundle, error)
	Close() error
}

// StaticProvider hands out a bundle obtained outside the process, for
// example a cookie copied from a browser.
type StaticProvider struct {
	bundle   Bundle
	required string
}

// NewStaticProvider returns a provider for bundle. When required is not
// empty, Acquire fails unless the bundle holds that cookie.
func NewStaticProvider(bundle Bundle, required string) *StaticProvider {
	return &StaticProvider{bundle: bundle.Clone(), required: required}
}

// Acquire returns a copy of the configured bundle.
func (p *StaticProvider) Acquire(ctx context.Context, _ Identity) (Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.bundle) == 0 {
		return nil, errs.New(errs.ErrorTypeAuth, "no session cookies configured")
	}
	if p.required != "" && !p.bundle.Has(p.required) {
		return nil, errs.New(errs.ErrorTypeAuth, "session cookie %q is not configured", p.required)
	}
	return p.bundle.Clone(), nil
}

// Close is a no-op.
func (p *StaticProvider) Close() error { return nil }

// RetryingProvider retries Acquire on retryable failures.
type RetryingProvider struct {
	Provider
	cfg *retry.Config
}

// WithRetry wraps p so Acquire is retried according to cfg.
func WithRetry(p Provider, cfg *retry.Config) *RetryingProvider {
	return &RetryingProvider{Provider: p, cfg: cfg}
}

// Acquire calls the wrapped provider until it succeeds, fails with a
// non-retryable error or runs out of attempts.
func (p *RetryingProvider) Acquire(ctx context.Context, id Identity) (Bundle, error) {
	log := logger.NewNopLogger()
	if p.cfg != nil && p.cfg.Logger != nil {
		log = p.cfg.Logger
	}
	log.Debug("Acquiring session")
	return retry.DoWithResult(ctx, func(ctx context.Context) (Bundle, error) {
		return p.Provider.Acquire(ctx, id)
	}, p.cfg)
}
