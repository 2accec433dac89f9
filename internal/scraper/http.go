package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
	"golang.org/x/net/html/charset"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// HTTPFetcher performs plain GET requests with rotating browser-like headers
type HTTPFetcher struct {
	Agents  *UserAgentPool
	Timeout time.Duration
	Logger  *slog.Logger

	client *resty.Client
}

// NewHTTPFetcher creates a new static fetcher. The client keeps no cookie
// jar, so no cookies carry over between targets.
func NewHTTPFetcher(cfg *config.ScraperConfig, agents *UserAgentPool, proxies *proxy.Manager, logger *slog.Logger) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxies.Enabled() {
		transport.Proxy = proxies.TransportProxy
	}

	client := resty.New().
		SetTransport(transport).
		SetCookieJar(nil).
		SetTimeout(cfg.RequestTimeout()).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeaders(map[string]string{
			"Accept":                    acceptHTML,
			"Accept-Language":           cfg.AcceptLanguage,
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		})

	return &HTTPFetcher{
		Agents:  agents,
		Timeout: cfg.RequestTimeout(),
		Logger:  logging.OrDefault(logger),
		client:  client,
	}
}

// Name identifies the fetcher in logs
func (f *HTTPFetcher) Name() string { return "static" }

// Fetch issues one GET and returns the body decoded to UTF-8
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	userAgent := f.Agents.Random()
	resp, err := f.client.R().
		SetContext(reqCtx).
		SetHeader("User-Agent", userAgent).
		Get(url)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}

	f.Logger.Debug("static response", "url", url, "status", resp.StatusCode(), "bytes", len(resp.Body()))

	if !resp.IsSuccess() {
		return "", &FetchError{Kind: KindHTTPStatus, StatusCode: resp.StatusCode()}
	}

	html, err := decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", &FetchError{Kind: KindConnection, Message: "decode body", Err: err}
	}
	return html, nil
}

func decodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
