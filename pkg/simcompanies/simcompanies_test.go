package simcompanies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"simcollect/pkg/config"
	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/ratelimit"
	"simcollect/pkg/record"
	"simcollect/pkg/session"
)

func TestChatroomURL(t *testing.T) {
	assert.Equal(t,
		"https://www.simcompanies.com/api/chatroom/?chatroom=X&last_id=1000000000",
		ChatroomURL("X"))
}

func ids(endpoints []Endpoint) []string {
	out := make([]string, len(endpoints))
	for i, e := range endpoints {
		out[i] = e.ID
	}
	return out
}

func TestNewCatalogOverrides(t *testing.T) {
	c := NewCatalog(map[string]string{
		"EN":    "https://example.com/en",
		"Z_NEW": "https://example.com/z",
		"A_NEW": "https://example.com/a",
	})

	assert.Equal(t, []string{"ZH", "EN", "R2_H", "R2_X", "A_NEW", "Z_NEW"}, ids(c.All()))
	en, ok := c.Lookup("en")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/en", en.URL)

	// Defaults are not mutated by overrides.
	assert.Equal(t, ChatroomURL("G"), DefaultEndpoints[1].URL)
}

func TestSelect(t *testing.T) {
	c := NewCatalog(nil)

	tests := []struct {
		name      string
		selection string
		want      []string
		warnings  int
		wantErr   bool
	}{
		{name: "all", selection: "all", want: []string{"ZH", "EN", "R2_H", "R2_X"}},
		{name: "all uppercase", selection: " ALL ", want: []string{"ZH", "EN", "R2_H", "R2_X"}},
		{name: "user order", selection: "R2_X, EN", want: []string{"R2_X", "EN"}},
		{name: "unknown dropped", selection: "EN,FR,R2_H", want: []string{"EN", "R2_H"}, warnings: 1},
		{name: "repeats ignored", selection: "EN,en,EN", want: []string{"EN"}},
		{name: "only unknown", selection: "FR,DE", warnings: 2, wantErr: true},
		{name: "empty", selection: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := logger.NewTestLogger()
			got, err := c.Select(tt.selection, tl)
			assert.Len(t, tl.GetMessagesByLevel("WARN"), tt.warnings)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func newTestClient(limiter ratelimit.Limiter) *Client {
	return NewClient(config.FetchConfig{Timeout: 5 * time.Second}, limiter, logger.NewTestLogger())
}

func TestFetchSendsCookiesAndDecodes(t *testing.T) {
	var gotCookie, gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err == nil {
			gotCookie = c.Value
		}
		gotUA = r.UserAgent()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":2,"body":"hi"},{"id":1,"body":"yo"}]`))
	}))
	defer srv.Close()

	client := newTestClient(nil)
	recs, err := client.Fetch(context.Background(), srv.URL+"/?chatroom=X&last_id=1", session.Bundle{"sessionid": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "s3cret", gotCookie)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "chatroom=X&last_id=1", gotQuery)
	require.Len(t, recs, 2)
	id, ok := recs[0].(record.Map).Get("id")
	require.True(t, ok)
	assert.Equal(t, record.Number("2"), id)
}

func TestFetchStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(nil).Fetch(context.Background(), srv.URL, nil)
			require.Error(t, err)
			var typed *errs.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tt.want, typed.Type)
			assert.Equal(t, tt.status, typed.Code)
		})
	}
}

func TestFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), srv.URL, nil)
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newTestClient(nil).Fetch(context.Background(), addr, nil)
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
}

func TestFetchCancelledWhileRateLimited(t *testing.T) {
	limiter := ratelimit.NewTokenBucket(1, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(limiter).Fetch(ctx, "http://127.0.0.1:1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
