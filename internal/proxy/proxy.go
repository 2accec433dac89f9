package proxy

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"

	"github.com/williampepple1/pricewatch/internal/config"
)

// Manager picks proxies from a fixed list. The list is parsed once and
// never mutated, so a Manager is safe for concurrent use.
type Manager struct {
	rotate  bool
	proxies []*url.URL
}

// NewManager parses the configured proxy list. A disabled or empty
// configuration yields a Manager that never proxies.
func NewManager(cfg *config.ProxyConfig) (*Manager, error) {
	m := &Manager{}
	if cfg == nil || !cfg.Enabled {
		return m, nil
	}
	m.rotate = cfg.Rotate

	for _, raw := range cfg.List {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: %w", raw, err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("proxy %q: scheme and host are required", raw)
		}

		// Add authentication if provided
		if cfg.Auth.Username != "" && cfg.Auth.Password != "" {
			proxyURL.User = url.UserPassword(cfg.Auth.Username, cfg.Auth.Password)
		}
		m.proxies = append(m.proxies, proxyURL)
	}
	return m, nil
}

// Enabled reports whether any proxy is configured
func (m *Manager) Enabled() bool {
	return m != nil && len(m.proxies) > 0
}

// Authenticated reports whether the proxies carry credentials
func (m *Manager) Authenticated() bool {
	return m.Enabled() && m.proxies[0].User != nil
}

// Pick returns a proxy URL, or nil when proxying is off
func (m *Manager) Pick() *url.URL {
	if !m.Enabled() {
		return nil
	}
	if m.rotate && len(m.proxies) > 1 {
		return m.proxies[rand.IntN(len(m.proxies))]
	}
	return m.proxies[0]
}

// TransportProxy is an http.Transport Proxy func drawing a proxy per request
func (m *Manager) TransportProxy(_ *http.Request) (*url.URL, error) {
	return m.Pick(), nil
}

// ServerAddress returns a proxy as a browser --proxy-server value.
// Browsers take credentials out of band, so user info is dropped.
func (m *Manager) ServerAddress() string {
	p := m.Pick()
	if p == nil {
		return ""
	}
	return p.Scheme + "://" + p.Host
}
