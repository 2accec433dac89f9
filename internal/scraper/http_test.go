package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
)

func newTestFetcher(t *testing.T, timeout time.Duration) *HTTPFetcher {
	t.Helper()
	cfg := config.Default().Scraper
	cfg.RequestTimeoutSeconds = timeout.Seconds()
	return NewHTTPFetcher(&cfg, NewUserAgentPool(nil), nil, logging.New(io.Discard, "error"))
}

func TestHTTPFetcherFetch(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<span class="price">19,90 €</span>`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 5*time.Second)
	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, `<span class="price">19,90 €</span>`, html)

	got := <-headers
	assert.True(t, f.Agents.Contains(got.Get("User-Agent")), got.Get("User-Agent"))
	assert.Equal(t, "fr-FR,fr;q=0.9,en;q=0.8", got.Get("Accept-Language"))
	assert.Contains(t, got.Get("Accept"), "text/html")
}

func TestHTTPFetcherDecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>Caf\xe9 12,00 \x80</p>"))
	}))
	defer srv.Close()

	html, err := newTestFetcher(t, 5*time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>Café 12,00 €</p>", html)
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 5*time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, 503, fe.StatusCode)
	assert.Equal(t, "http-status:503", err.Error())
}

func TestHTTPFetcherKeepsNoCookies(t *testing.T) {
	var withCookie atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err == nil {
			withCookie.Add(1)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, "<p>ok</p>")
	}))
	defer srv.Close()

	f := newTestFetcher(t, 5*time.Second)
	for range 3 {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Zero(t, withCookie.Load())
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 50*time.Millisecond).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestHTTPFetcherConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(t, 5*time.Second).Fetch(context.Background(), url)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindConnection, fe.Kind)
}

func TestHTTPFetcherCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<p>ok</p>")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t, 5*time.Second).Fetch(ctx, srv.URL)
	assert.True(t, IsCancelled(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
