package extraction

import (
	"io"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/pkg/models"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.Default().Extraction
	return NewExtractor(&cfg, logging.New(io.Discard, "error"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		amount   float64
		currency string
		tier     string
	}{
		{
			name:     "explicit selector hit",
			html:     `<span class="p">19,90 €</span>`,
			selector: ".p",
			amount:   19.9,
			currency: "EUR",
			tier:     models.TierSelector,
		},
		{
			name:     "explicit selector beats heuristics",
			html:     `<span class="price">20,00 €</span><span class="p">10,00 €</span>`,
			selector: ".p",
			amount:   10,
			currency: "EUR",
			tier:     models.TierSelector,
		},
		{
			name:     "explicit selector skips matches without a number",
			html:     `<span class="p">Promo</span><span class="p">12,50 €</span>`,
			selector: ".p",
			amount:   12.5,
			currency: "EUR",
			tier:     models.TierSelector,
		},
		{
			name:     "unmatched selector falls through",
			html:     `<span class="price">20,00 €</span>`,
			selector: ".missing",
			amount:   20,
			currency: "EUR",
			tier:     models.TierHeuristic,
		},
		{
			name:     "invalid selector falls through",
			html:     `<span class="price">20,00 €</span>`,
			selector: "[[",
			amount:   20,
			currency: "EUR",
			tier:     models.TierHeuristic,
		},
		{
			name:     "heuristic id selector",
			html:     `<html><body><h1>Widget</h1><div id="product-price">45.00 $</div></body></html>`,
			amount:   45,
			currency: "USD",
			tier:     models.TierHeuristic,
		},
		{
			name:     "heuristic attribute selector",
			html:     `<div class="pdp-price-now">1.299,00 €</div>`,
			amount:   1299,
			currency: "EUR",
			tier:     models.TierHeuristic,
		},
		{
			name:     "heuristic match without number falls to text",
			html:     `<div class="price">Contact us</div><p>Now 39,99 €</p>`,
			amount:   39.99,
			currency: "EUR",
			tier:     models.TierText,
		},
		{
			name:     "text tier symbol before amount",
			html:     `<p>Only $ 25.50 today</p>`,
			amount:   25.5,
			currency: "USD",
			tier:     models.TierText,
		},
		{
			name:     "text tier EUR code",
			html:     `<p>Total 149,00 EUR</p>`,
			amount:   149,
			currency: "EUR",
			tier:     models.TierText,
		},
		{
			name:     "text tier ignores scripts",
			html:     `<script>var p = "99,00 €";</script><p>15,00 €</p>`,
			amount:   15,
			currency: "EUR",
			tier:     models.TierText,
		},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.Extract(tt.html, tt.selector)
			require.NoError(t, err)
			assert.InDelta(t, tt.amount, c.Amount, 1e-9)
			assert.Equal(t, tt.currency, c.Currency)
			assert.Equal(t, tt.tier, c.Tier)
		})
	}
}

// The minimum amount for free-text matches is policy, not law.
func TestTextTierMinimumAmount(t *testing.T) {
	e := newTestExtractor(t)

	c, err := e.Extract(`<p>Livraison 0,01 €</p><p>Prix 12,00 €</p>`, "")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, c.Amount, 1e-9)

	cfg := config.Default().Extraction
	cfg.MinRegexAmount = 20
	strict := NewExtractor(&cfg, logging.New(io.Discard, "error"))
	_, err = strict.Extract(`<p>Prix 12,00 €</p>`, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaxAmount(t *testing.T) {
	e := newTestExtractor(t)

	// an implausible heuristic match falls through to the next tier
	c, err := e.Extract(`<div class="price">1.250.000,00 €</div><p>Prix 49,00 €</p>`, "")
	require.NoError(t, err)
	assert.InDelta(t, 49.0, c.Amount, 1e-9)
	assert.Equal(t, models.TierText, c.Tier)

	_, err = e.Extract(`<p>Total 2.000.000 €</p>`, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Extract(`<span id="p">1.000.000,00 €</span>`, "#p")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := config.Default().Extraction
	cfg.MaxAmount = 0
	unbounded := NewExtractor(&cfg, logging.New(io.Discard, "error"))
	c, err = unbounded.Extract(`<span id="p">1.000.000,00 €</span>`, "#p")
	require.NoError(t, err)
	assert.InDelta(t, 1000000.0, c.Amount, 1e-9)
}

func TestExtractNotFound(t *testing.T) {
	e := newTestExtractor(t)

	for _, html := range []string{
		``,
		`<p>No price here</p>`,
		`<div class="price">0</div>`,
	} {
		_, err := e.Extract(html, ".p")
		assert.ErrorIs(t, err, ErrNotFound, html)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t)
	html := `<div class="price">12,00 €</div><div class="sale-price">9,00 €</div>`

	first, err := e.Extract(html, "")
	require.NoError(t, err)
	for range 5 {
		again, err := e.Extract(html, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, ".price", first.Selector)
}

func TestStrategies(t *testing.T) {
	e := newTestExtractor(t)

	assert.Len(t, e.Strategies(""), 2)
	assert.Len(t, e.Strategies("  "), 2)
	assert.Len(t, e.Strategies(".p"), 3)
	assert.Len(t, e.Strategies("[["), 2)
}

func TestValidateSelector(t *testing.T) {
	for _, sel := range []string{".price", "#product-price", `[class*="price"]`, ".price-box .price", "span.a, div.b"} {
		_, err := ValidateSelector(sel)
		assert.NoError(t, err, sel)
	}
	for _, sel := range []string{"[[", ".", "<script>"} {
		_, err := ValidateSelector(sel)
		assert.ErrorIs(t, err, ErrInvalidSelector, sel)
	}
}

func TestVisibleText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><title>Shop</title><style>.a{}</style></head>` +
			`<body><div>Price<span>&nbsp;12,00&nbsp;€</span></div><noscript>enable js</noscript></body></html>`))
	require.NoError(t, err)

	text := VisibleText(doc)
	assert.Contains(t, text, "Shop")
	assert.Contains(t, text, "Price 12,00 €")
	assert.NotContains(t, text, ".a{}")
	assert.NotContains(t, text, "enable js")

	// blocks become plain space runs, never newlines
	doc, err = goquery.NewDocumentFromReader(strings.NewReader(`<p>12,00</p><p>€</p>`))
	require.NoError(t, err)
	text = VisibleText(doc)
	assert.NotContains(t, text, "\n")
	assert.Equal(t, "12,00 €", strings.Join(strings.Fields(text), " "))
}
