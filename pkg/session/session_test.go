package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"simcollect/pkg/config"
	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/retry"
)

func TestBundle(t *testing.T) {
	b := Bundle{"sessionid": "abc", "csrftoken": "x y"}

	assert.Equal(t, []string{"csrftoken", "sessionid"}, b.Names())
	cookies := b.Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "csrftoken", cookies[0].Name)
	assert.Equal(t, "sessionid", cookies[1].Name)
	assert.Equal(t, `csrftoken="x y"; sessionid=abc`, b.Header())

	assert.True(t, b.Has("sessionid"))
	assert.False(t, b.Has("missing"))

	clone := b.Clone()
	clone["sessionid"] = "changed"
	assert.Equal(t, "abc", b["sessionid"])
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	p := NewStaticProvider(Bundle{"sessionid": "abc"}, "sessionid")
	b, err := p.Acquire(ctx, Identity{})
	require.NoError(t, err)
	assert.Equal(t, "abc", b["sessionid"])

	b["sessionid"] = "mutated"
	again, err := p.Acquire(ctx, Identity{})
	require.NoError(t, err)
	assert.Equal(t, "abc", again["sessionid"])
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())

	_, err = NewStaticProvider(Bundle{"other": "1"}, "sessionid").Acquire(ctx, Identity{})
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))

	_, err = NewStaticProvider(nil, "").Acquire(ctx, Identity{})
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Acquire(cancelled, Identity{})
	assert.ErrorIs(t, err, context.Canceled)
}

type flakyProvider struct {
	failures int
	failWith error
	calls    int
	closed   int
}

func (f *flakyProvider) Acquire(ctx context.Context, id Identity) (Bundle, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.failWith
	}
	return Bundle{"sessionid": id.Email}, nil
}

func (f *flakyProvider) Close() error {
	f.closed++
	return nil
}

func fastRetry(attempts int) *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.Backoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return cfg
}

func TestRetryingProvider(t *testing.T) {
	inner := &flakyProvider{failures: 2, failWith: errs.New(errs.ErrorTypeNetwork, "page timeout")}
	p := WithRetry(inner, fastRetry(3))

	b, err := p.Acquire(context.Background(), Identity{Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", b["sessionid"])
	assert.Equal(t, 3, inner.calls)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, inner.closed)
}

func TestRetryingProviderStopsOnRejectedLogin(t *testing.T) {
	inner := &flakyProvider{failures: 5, failWith: errs.New(errs.ErrorTypeAuth, "login rejected")}
	p := WithRetry(inner, fastRetry(3))

	_, err := p.Acquire(context.Background(), Identity{Email: "a@b.c"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	assert.Equal(t, 1, inner.calls)
}

func TestChromeProviderWithoutBrowser(t *testing.T) {
	tl := logger.NewTestLogger()
	p := NewChromeProvider(ChromeOptionsFrom(config.DefaultConfig().Session, config.DefaultConfig().Fetch), tl)

	// Missing credentials fail before any browser is launched.
	_, err := p.Acquire(context.Background(), Identity{Email: "a@b.c"})
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	assert.Nil(t, p.browserCtx)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Acquire(context.Background(), Identity{Email: "a@b.c", Password: "pw"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	assert.Nil(t, p.browserCtx)
}

func TestChromeOptionsFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.ChromePath = "/usr/bin/chromium"
	cfg.Session.Headless = false
	cfg.Fetch.UserAgent = "simcollect-test"

	opts := ChromeOptionsFrom(cfg.Session, cfg.Fetch)
	assert.Equal(t, cfg.Session.LoginURL, opts.LoginURL)
	assert.Equal(t, "sessionid", opts.CookieName)
	assert.False(t, opts.Headless)
	assert.Equal(t, "simcollect-test", opts.UserAgent)

	p := NewChromeProvider(opts, nil)
	assert.NotEmpty(t, p.allocatorOptions())
}

func TestLoginFailureReason(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "alert text",
			html: `<html><head><title>Sign in</title></head><body>
				<div role="alert">  Incorrect email
				or password </div></body></html>`,
			want: "Incorrect email or password",
		},
		{
			name: "form error skips empty alerts",
			html: `<html><body><div class="alert"></div>
				<span class="invalid-feedback">Enter a valid email address.</span></body></html>`,
			want: "Enter a valid email address.",
		},
		{
			name: "script text ignored",
			html: `<html><head><title>Verify you are human</title>
				<script>var error = "x";</script></head><body><div class="error"><script>1</script></div></body></html>`,
			want: "page title: Verify you are human",
		},
		{
			name: "nothing useful",
			html: `<html><body><p>hello</p></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LoginFailureReason(tt.html))
		})
	}
}

func TestLoginFailureReasonTruncates(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := LoginFailureReason(`<div class="alert">` + long + `</div>`)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxReasonLen+3)
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(got, "...")))
}
