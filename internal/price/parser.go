// Package price turns raw price-bearing text into an amount and a currency.
//
// The separator rules are heuristics tuned for European and US shop pages.
// They live on Parser so that callers with other locales can swap them.
package price

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/williampepple1/pricewatch/pkg/models"
)

// NumberPattern matches a grouped number: 1-4 leading digits with
// thousands groups separated by ',', '.' or a space, or a plain digit run,
// followed by an optional two-digit fraction.
const NumberPattern = `(?:\d{1,4}(?:[,. ]\d{3})+|\d+)(?:[.,]\d{2})?`

var (
	strayChars = regexp.MustCompile(`[^\d,. €$£¥]`)
	numberRe   = regexp.MustCompile(NumberPattern)
)

// currencyGlyphs is checked in order; the first glyph present wins
var currencyGlyphs = []struct {
	glyph string
	code  string
}{
	{"$", "USD"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// Parser converts price text using a fixed separator policy
type Parser struct {
	// DefaultCurrency is reported when the text carries no known glyph.
	DefaultCurrency string
	// DecimalDigits is how many digits after a lone separator make it a
	// decimal separator rather than a thousands separator.
	DecimalDigits int
}

// Default is the parser used by the package-level Parse
var Default = Parser{DefaultCurrency: models.DefaultCurrency, DecimalDigits: 2}

// Parse runs the Default parser
func Parse(raw string) (amount float64, currency string, ok bool) {
	return Default.Parse(raw)
}

// Parse extracts the first number-shaped substring of raw and its currency.
// ok is false when no number is found or it does not convert.
func (p Parser) Parse(raw string) (amount float64, currency string, ok bool) {
	currency = p.Currency(raw)

	text := NormalizeSpaces(raw)
	cleaned := strayChars.ReplaceAllString(text, "")

	match := numberRe.FindString(cleaned)
	if match == "" {
		return 0, currency, false
	}

	amount, err := strconv.ParseFloat(p.normalize(match), 64)
	if err != nil {
		return 0, currency, false
	}
	return amount, currency, true
}

// Currency detects the currency code from glyphs in raw
func (p Parser) Currency(raw string) string {
	for _, g := range currencyGlyphs {
		if strings.Contains(raw, g.glyph) {
			return g.code
		}
	}
	if p.DefaultCurrency == "" {
		return models.DefaultCurrency
	}
	return p.DefaultCurrency
}

// normalize rewrites a matched number into Go float syntax
func (p Parser) normalize(num string) string {
	s := strings.ReplaceAll(num, " ", "")
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the later one is the decimal separator
		if lastDot > lastComma {
			return strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		return p.loneSeparator(s, ",", lastComma)
	case lastDot >= 0:
		return p.loneSeparator(s, ".", lastDot)
	default:
		return s
	}
}

func (p Parser) loneSeparator(s, sep string, last int) string {
	digits := p.DecimalDigits
	if digits <= 0 {
		digits = 2
	}
	if len(s)-last-1 == digits {
		intPart := strings.ReplaceAll(s[:last], sep, "")
		return intPart + "." + s[last+1:]
	}
	return strings.ReplaceAll(s, sep, "")
}

// NormalizeSpaces maps every Unicode space, such as NBSP, to an ASCII space
func NormalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}
