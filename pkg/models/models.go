package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Fetch methods recorded on a reading
const (
	MethodStatic   = "static"
	MethodRendered = "rendered"
)

// Extraction tiers recorded on a reading
const (
	TierSelector  = "selector"
	TierHeuristic = "heuristic"
	TierText      = "text"
)

// DefaultCurrency is reported when no currency glyph is found
const DefaultCurrency = "EUR"

// ScrapeTarget is one shop link to be priced
type ScrapeTarget struct {
	// LinkID is the caller's key for the link record; zero when unknown.
	LinkID      int64  `json:"link_id,omitempty" yaml:"link_id,omitempty"`
	URL         string `json:"url" yaml:"url"`
	CSSSelector string `json:"css_selector,omitempty" yaml:"css_selector,omitempty"`
	ShopLabel   string `json:"shop" yaml:"shop"`
}

// PriceReading is the normalized outcome of scraping one target.
// Available implies Price != nil; a non-empty ErrorMessage implies !Available.
type PriceReading struct {
	URL          string        `json:"url"`
	ShopLabel    string        `json:"shop"`
	Price        *float64      `json:"price"`
	Currency     string        `json:"currency"`
	Available    bool          `json:"is_available"`
	ErrorMessage string        `json:"error_message"`
	ObservedAt   time.Time     `json:"observed_at"`
	Method       string        `json:"method,omitempty"`
	Tier         string        `json:"tier,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Succeeded reports whether the reading carries a usable price
func (r PriceReading) Succeeded() bool {
	return r.Available && r.Price != nil
}

// MarshalJSON writes an empty ErrorMessage as null
func (r PriceReading) MarshalJSON() ([]byte, error) {
	type plain PriceReading
	var errMsg *string
	if r.ErrorMessage != "" {
		errMsg = &r.ErrorMessage
	}
	return json.Marshal(struct {
		plain
		ErrorMessage *string `json:"error_message"`
	}{plain(r), errMsg})
}

// Product groups the shop links of one product into a batch
type Product struct {
	Name  string         `json:"name" yaml:"name"`
	Links []ScrapeTarget `json:"links" yaml:"links"`
}

// BatchReport aggregates the readings of one batch, in input order
type BatchReport struct {
	ID          string         `json:"id"`
	Product     string         `json:"product,omitempty"`
	Readings    []PriceReading `json:"readings"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	FailedShops []string       `json:"failed_shops,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// Tally recomputes the success and failure counters from the readings
func (b *BatchReport) Tally() {
	b.Succeeded, b.Failed = 0, 0
	b.FailedShops = nil
	for _, r := range b.Readings {
		if r.Succeeded() {
			b.Succeeded++
			continue
		}
		b.Failed++
		b.FailedShops = append(b.FailedShops, r.ShopLabel)
	}
}

// Summary renders the batch outcome for humans
func (b BatchReport) Summary() string {
	if b.Failed == 0 {
		return fmt.Sprintf("%d succeeded, 0 failed", b.Succeeded)
	}
	return fmt.Sprintf("%d succeeded, %d failed for shops [%s]",
		b.Succeeded, b.Failed, strings.Join(b.FailedShops, ", "))
}
