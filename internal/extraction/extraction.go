package extraction

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/price"
	"github.com/williampepple1/pricewatch/pkg/models"
)

var (
	// ErrNotFound is returned when no tier yields a valid amount
	ErrNotFound = errors.New("price not found")
	// ErrInvalidSelector wraps CSS selector compilation failures
	ErrInvalidSelector = errors.New("invalid css selector")
)

// Candidate is a price located in a document
type Candidate struct {
	RawText  string
	Amount   float64
	Currency string
	Tier     string
	Selector string
}

// Strategy inspects a document and returns the first valid candidate
type Strategy func(doc *goquery.Document) (Candidate, bool)

type compiledSelector struct {
	raw     string
	matcher cascadia.Selector
}

// Extractor locates prices in HTML through an ordered list of strategies
type Extractor struct {
	Config *config.ExtractionConfig
	Parser price.Parser
	Logger *slog.Logger

	heuristics   []compiledSelector
	textPatterns []*regexp.Regexp
}

// NewExtractor creates a new price extractor
func NewExtractor(cfg *config.ExtractionConfig, logger *slog.Logger) *Extractor {
	if cfg == nil {
		cfg = &config.Default().Extraction
	}
	logger = logging.OrDefault(logger)

	e := &Extractor{
		Config: cfg,
		Parser: price.Parser{DefaultCurrency: cfg.DefaultCurrency, DecimalDigits: 2},
		Logger: logger,
	}

	selectors := cfg.PriceSelectors
	if len(selectors) == 0 {
		selectors = config.DefaultPriceSelectors
	}
	for _, raw := range selectors {
		m, err := ValidateSelector(raw)
		if err != nil {
			logger.Warn("skipping heuristic selector", "selector", raw, "err", err)
			continue
		}
		e.heuristics = append(e.heuristics, compiledSelector{raw: raw, matcher: m})
	}

	e.textPatterns = textPatterns()
	return e
}

// ValidateSelector compiles sel as a CSS selector group
func ValidateSelector(sel string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, sel, err)
	}
	return m, nil
}

// Extract parses html and runs the strategies for the given selector
func (e *Extractor) Extract(html string, selector string) (Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Candidate{}, fmt.Errorf("parse html: %w", err)
	}
	return e.ExtractDocument(doc, selector)
}

// ExtractDocument runs the strategies in order and returns the first hit
func (e *Extractor) ExtractDocument(doc *goquery.Document, selector string) (Candidate, error) {
	for _, strategy := range e.Strategies(selector) {
		if c, ok := strategy(doc); ok {
			return c, nil
		}
	}
	return Candidate{}, ErrNotFound
}

// Strategies returns the tier list: explicit selector (when valid),
// heuristic selectors, then free-text patterns
func (e *Extractor) Strategies(selector string) []Strategy {
	strategies := make([]Strategy, 0, 3)

	if selector = strings.TrimSpace(selector); selector != "" {
		m, err := ValidateSelector(selector)
		if err != nil {
			e.Logger.Warn("explicit selector ignored", "err", err)
		} else {
			strategies = append(strategies, e.selectorTier(models.TierSelector,
				[]compiledSelector{{raw: selector, matcher: m}}))
		}
	}

	strategies = append(strategies,
		e.selectorTier(models.TierHeuristic, e.heuristics),
		e.textTier,
	)
	return strategies
}

// selectorTier tries each selector in order, and each of its matches in
// document order, returning the first element whose text parses to a
// positive amount
func (e *Extractor) selectorTier(tier string, selectors []compiledSelector) Strategy {
	return func(doc *goquery.Document) (Candidate, bool) {
		for _, sel := range selectors {
			var found Candidate
			var ok bool
			doc.FindMatcher(sel.matcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := strings.TrimSpace(s.Text())
				amount, currency, parsed := e.Parser.Parse(text)
				if !parsed || amount <= 0 || e.tooLarge(amount) {
					return true
				}
				found = Candidate{
					RawText:  text,
					Amount:   amount,
					Currency: currency,
					Tier:     tier,
					Selector: sel.raw,
				}
				ok = true
				return false
			})
			if ok {
				e.Logger.Debug("price found by selector", "tier", tier, "selector", sel.raw, "text", found.RawText)
				return found, true
			}
		}
		return Candidate{}, false
	}
}

// textTier scans the visible text with currency-anchored patterns
func (e *Extractor) textTier(doc *goquery.Document) (Candidate, bool) {
	text := VisibleText(doc)
	minAmount := e.Config.MinRegexAmount

	for _, re := range e.textPatterns {
		for _, match := range re.FindAllString(text, -1) {
			amount, currency, ok := e.Parser.Parse(match)
			if !ok || amount <= minAmount || e.tooLarge(amount) {
				continue
			}
			e.Logger.Debug("price found in page text", "pattern", re.String(), "text", match)
			return Candidate{
				RawText:  strings.TrimSpace(match),
				Amount:   amount,
				Currency: currency,
				Tier:     models.TierText,
			}, true
		}
	}
	return Candidate{}, false
}

func (e *Extractor) tooLarge(amount float64) bool {
	return e.Config.MaxAmount > 0 && amount > e.Config.MaxAmount
}

// textPatterns lists amount-before-symbol and symbol-before-amount patterns
// for €, EUR and $, in priority order
func textPatterns() []*regexp.Regexp {
	n := `(?:` + price.NumberPattern + `)`
	return []*regexp.Regexp{
		regexp.MustCompile(n + `\s*€`),
		regexp.MustCompile(`€\s*` + n),
		regexp.MustCompile(n + `\s*EUR`),
		regexp.MustCompile(n + `\s*\$`),
		regexp.MustCompile(`\$\s*` + n),
	}
}
