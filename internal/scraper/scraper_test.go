package scraper

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestFetchErrorMessages(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		err  *FetchError
		want string
	}{
		{&FetchError{Kind: KindHTTPStatus, StatusCode: 404}, "http-status:404"},
		{&FetchError{Kind: KindConnection, Err: cause}, "connection: dial tcp: connection refused"},
		{&FetchError{Kind: KindTimeout, Err: context.DeadlineExceeded}, "timeout: context deadline exceeded"},
		{&FetchError{Kind: KindRender, Message: "browser error", Err: cause}, "browser error: dial tcp: connection refused"},
		{&FetchError{Kind: KindCancelled, Err: context.Canceled}, "cancelled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}

	assert.ErrorIs(t, &FetchError{Kind: KindConnection, Err: cause}, cause)
}

func TestClassify(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, KindCancelled, classifyTransport(done, errors.New("boom")).Kind)
	assert.Equal(t, KindTimeout, classifyTransport(live, context.DeadlineExceeded).Kind)
	assert.Equal(t, KindTimeout, classifyTransport(live, &net.OpError{Op: "read", Err: timeoutErr{}}).Kind)
	assert.Equal(t, KindConnection, classifyTransport(live, errors.New("no such host")).Kind)

	assert.Equal(t, KindCancelled, classifyRender(done, errors.New("boom")).Kind)
	assert.Equal(t, "browser timeout: context deadline exceeded", classifyRender(live, context.DeadlineExceeded).Error())
	assert.Equal(t, "browser error: websocket closed", classifyRender(live, errors.New("websocket closed")).Error())

	assert.True(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(&FetchError{Kind: KindTimeout}))
}

func TestUserAgentPool(t *testing.T) {
	pool := NewUserAgentPool(nil)
	assert.Equal(t, len(config.DefaultUserAgents), pool.Len())
	for range 20 {
		assert.True(t, pool.Contains(pool.Random()))
	}

	agents := []string{"agent-a"}
	custom := NewUserAgentPool(agents)
	agents[0] = "mutated"
	assert.Equal(t, "agent-a", custom.Random())
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(_ context.Context, url string) (string, error) {
		return "<p>" + url + "</p>", nil
	})
	html, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", html)
}

func TestNewRenderer(t *testing.T) {
	cfg := config.Default()
	agents := NewUserAgentPool(nil)

	assert.IsType(t, &ChromeRenderer{}, NewRenderer(cfg, agents, nil, nil))

	cfg.Browser.Backend = config.BackendRod
	assert.IsType(t, &RodRenderer{}, NewRenderer(cfg, agents, nil, nil))
}

func TestNewRendererWarnsOnProxyAuth(t *testing.T) {
	cfg := config.Default()
	agents := NewUserAgentPool(nil)

	pc := &config.ProxyConfig{Enabled: true, List: []string{"http://proxy.local:8080"}}
	plain, err := proxy.NewManager(pc)
	require.NoError(t, err)

	var out bytes.Buffer
	NewRenderer(cfg, agents, plain, logging.New(&out, "warn"))
	assert.Empty(t, out.String())

	pc.Auth.Username = "user"
	pc.Auth.Password = "secret"
	authed, err := proxy.NewManager(pc)
	require.NoError(t, err)

	NewRenderer(cfg, agents, authed, logging.New(&out, "warn"))
	assert.Contains(t, out.String(), "proxy credentials are not passed to the browser")
	assert.NotContains(t, out.String(), "secret")
}

func testProxies(t *testing.T) *proxy.Manager {
	t.Helper()
	m, err := proxy.NewManager(&config.ProxyConfig{Enabled: true, List: []string{"http://proxy.local:8080"}})
	require.NoError(t, err)
	return m
}

func TestChromeAllocatorOptions(t *testing.T) {
	cfg := config.Default()
	r := NewChromeRenderer(cfg, NewUserAgentPool(nil), nil, nil)
	base := len(r.allocatorOptions("ua"))
	assert.Equal(t, len(chromedp.DefaultExecAllocatorOptions)+5, base)

	cfg.Browser.NoSandbox = true
	cfg.Browser.BrowserBin = "/usr/bin/chromium"
	r = NewChromeRenderer(cfg, NewUserAgentPool(nil), testProxies(t), nil)
	assert.Equal(t, base+3, len(r.allocatorOptions("ua")))

	cfg.Browser.UserAgent = "pinned"
	assert.Equal(t, "pinned", r.userAgent())
}

func TestRodLauncherFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Browser.NoSandbox = true
	r := NewRodRenderer(cfg, NewUserAgentPool(nil), testProxies(t), nil)

	l := r.launcher(context.Background())
	assert.Equal(t, "AutomationControlled", l.Get(flags.Flag("disable-blink-features")))
	assert.Equal(t, "http://proxy.local:8080", l.Get(flags.ProxyServer))
	assert.False(t, l.Has(flags.Flag("enable-automation")))
	assert.True(t, l.Has(flags.NoSandbox))
}
