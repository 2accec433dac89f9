package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Rendering backends
const (
	BackendChromedp = "chromedp"
	BackendRod      = "rod"
)

// AppConfig holds the complete application configuration
type AppConfig struct {
	Scraper    ScraperConfig    `yaml:"scraper"`
	IO         IOConfig         `yaml:"io"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Proxies    ProxyConfig      `yaml:"proxies"`
	Browser    BrowserConfig    `yaml:"browser"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

// ScraperConfig holds the fetch and batch timing configuration
type ScraperConfig struct {
	// Workers bounds how many independent batches run at once.
	Workers                  int      `yaml:"workers"`
	RequestTimeoutSeconds    float64  `yaml:"request_timeout_seconds"`
	RenderTimeoutSeconds     float64  `yaml:"render_timeout_seconds"`
	RenderSettleSeconds      float64  `yaml:"render_settle_seconds"`
	InterRequestDelaySeconds float64  `yaml:"inter_request_delay_seconds"`
	MaxRetries               int      `yaml:"max_retries"` // reserved, no per-fetch retry yet
	UserAgentPool            []string `yaml:"user_agent_pool,omitempty"`
	AcceptLanguage           string   `yaml:"accept_language"`
}

// RequestTimeout bounds one static fetch
func (c ScraperConfig) RequestTimeout() time.Duration { return seconds(c.RequestTimeoutSeconds) }

// RenderTimeout bounds one rendered page load
func (c ScraperConfig) RenderTimeout() time.Duration { return seconds(c.RenderTimeoutSeconds) }

// RenderSettle is the pause after navigation before the DOM is read
func (c ScraperConfig) RenderSettle() time.Duration { return seconds(c.RenderSettleSeconds) }

// InterRequestDelay is the politeness delay between scrapes of a batch
func (c ScraperConfig) InterRequestDelay() time.Duration {
	return seconds(c.InterRequestDelaySeconds)
}

// IOConfig holds the input/output configuration
type IOConfig struct {
	InputFile    string `yaml:"input_file"`
	OutputFile   string `yaml:"output_file"`
	OutputFormat string `yaml:"output_format"`
}

// ExtractionConfig holds the price extraction policy
type ExtractionConfig struct {
	// PriceSelectors is the ordered heuristic selector list.
	PriceSelectors  []string `yaml:"price_selectors,omitempty"`
	MinRegexAmount  float64  `yaml:"min_regex_amount"`
	// MaxAmount rejects implausible prices in every tier; zero disables it.
	MaxAmount       float64  `yaml:"max_amount"`
	DefaultCurrency string   `yaml:"default_currency"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Rotate  bool     `yaml:"rotate"`
	List    []string `yaml:"list"`
	Auth    struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

// BrowserConfig holds the browser configuration for JavaScript rendering
type BrowserConfig struct {
	Backend string `yaml:"backend"`
	// Headful shows the browser window; the zero value runs headless.
	Headful    bool   `yaml:"headful"`
	NoSandbox  bool   `yaml:"no_sandbox"`
	BrowserBin string `yaml:"browser_bin"`
	// UserAgent pins the rendered user agent; empty draws from the pool.
	UserAgent string `yaml:"user_agent"`
}

// StoreConfig holds the SQLite persistence configuration
type StoreConfig struct {
	// Path of the database file; empty disables persistence.
	Path string `yaml:"path"`
}

// LogConfig holds the logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load loads the configuration from a YAML file on top of the defaults.
// A sibling "<name>.local.<ext>" file, when present, overrides the base file.
// Environment variables override both.
func Load(filename string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	localData, err := os.ReadFile(localPath(filename))
	switch {
	case err == nil:
		// seeded with the base so only keys present in the local file change,
		// including ones set to zero or false
		local := *cfg
		if err := yaml.Unmarshal(localData, &local); err != nil {
			return nil, fmt.Errorf("parse %s: %w", localPath(filename), err)
		}
		if err := mergo.Merge(cfg, local, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return nil, fmt.Errorf("merge local config: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	// Set default user agents if none provided
	if len(cfg.Scraper.UserAgentPool) == 0 {
		cfg.Scraper.UserAgentPool = DefaultUserAgents
	}
	if len(cfg.Extraction.PriceSelectors) == 0 {
		cfg.Extraction.PriceSelectors = DefaultPriceSelectors
	}

	return cfg, cfg.Validate()
}

// FromEnv returns the defaults with environment overrides applied
func FromEnv() (*AppConfig, error) {
	cfg := Default()
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the engine cannot run with
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Scraper.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("scraper.request_timeout_seconds must be positive"))
	}
	if c.Scraper.RenderTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("scraper.render_timeout_seconds must be positive"))
	}
	if c.Scraper.RenderSettleSeconds < 0 {
		errs = append(errs, errors.New("scraper.render_settle_seconds must not be negative"))
	}
	if c.Scraper.InterRequestDelaySeconds < 0 {
		errs = append(errs, errors.New("scraper.inter_request_delay_seconds must not be negative"))
	}
	if c.Scraper.MaxRetries < 0 {
		errs = append(errs, errors.New("scraper.max_retries must not be negative"))
	}
	if c.Scraper.Workers < 1 {
		errs = append(errs, errors.New("scraper.workers must be at least 1"))
	}
	if c.Extraction.MinRegexAmount < 0 {
		errs = append(errs, errors.New("extraction.min_regex_amount must not be negative"))
	}
	if c.Extraction.MaxAmount < 0 {
		errs = append(errs, errors.New("extraction.max_amount must not be negative"))
	}
	switch c.Browser.Backend {
	case BackendChromedp, BackendRod:
	default:
		errs = append(errs, fmt.Errorf("browser.backend %q is not one of %s, %s",
			c.Browser.Backend, BackendChromedp, BackendRod))
	}
	return errors.Join(errs...)
}

// env keys for the recognized scraper options
const (
	envRequestTimeout    = "PRICEWATCH_REQUEST_TIMEOUT_SECONDS"
	envRenderTimeout     = "PRICEWATCH_RENDER_TIMEOUT_SECONDS"
	envRenderSettle      = "PRICEWATCH_RENDER_SETTLE_SECONDS"
	envInterRequestDelay = "PRICEWATCH_INTER_REQUEST_DELAY_SECONDS"
	envMaxRetries        = "PRICEWATCH_MAX_RETRIES"
	envUserAgentPool     = "PRICEWATCH_USER_AGENT_POOL"
)

// LoadDotEnv exports the variables of the given .env files (".env" when
// none are given) without overriding variables already set. Missing files
// are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{envRequestTimeout, &cfg.Scraper.RequestTimeoutSeconds},
		{envRenderTimeout, &cfg.Scraper.RenderTimeoutSeconds},
		{envRenderSettle, &cfg.Scraper.RenderSettleSeconds},
		{envInterRequestDelay, &cfg.Scraper.InterRequestDelaySeconds},
	}
	for _, f := range floats {
		raw, ok := lookup(f.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}

	if raw, ok := lookup(envMaxRetries); ok && strings.TrimSpace(raw) != "" {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", envMaxRetries, err)
		}
		cfg.Scraper.MaxRetries = v
	}

	if raw, ok := lookup(envUserAgentPool); ok {
		var pool []string
		for _, ua := range strings.Split(raw, "|") {
			if ua = strings.TrimSpace(ua); ua != "" {
				pool = append(pool, ua)
			}
		}
		if len(pool) > 0 {
			cfg.Scraper.UserAgentPool = pool
		}
	}
	return nil
}

func localPath(filename string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + ".local" + ext
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
