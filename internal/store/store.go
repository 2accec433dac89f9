package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/williampepple1/pricewatch/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Entry is a stored reading together with its link and batch keys
type Entry struct {
	ID      int64
	LinkID  int64
	BatchID string
	Reading models.PriceReading
}

// Store persists shop links and their price history in SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: a path was not specified")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureLink returns the id of the (product, url) link, creating it or
// refreshing its shop and selector
func (s *Store) EnsureLink(ctx context.Context, product string, target models.ScrapeTarget) (int64, error) {
	return ensureLink(ctx, s.db, product, target)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureLink(ctx context.Context, db querier, product string, target models.ScrapeTarget) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		insert into links (product, shop_name, url, css_selector)
		values (?, ?, ?, ?)
		on conflict (product, url) do update set
			shop_name = excluded.shop_name,
			css_selector = excluded.css_selector
		returning id`,
		product, target.ShopLabel, target.URL, target.CSSSelector,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure link %s: %w", target.URL, err)
	}
	return id, nil
}

// Record stores one reading against a link. The row is stamped with the
// store's clock, not the reading's.
func (s *Store) Record(ctx context.Context, linkID int64, batchID string, r models.PriceReading) (int64, error) {
	return record(ctx, s.db, linkID, batchID, r, s.now())
}

func record(ctx context.Context, db querier, linkID int64, batchID string, r models.PriceReading, at time.Time) (int64, error) {
	var price sql.NullFloat64
	if r.Price != nil {
		price = sql.NullFloat64{Float64: *r.Price, Valid: true}
	}
	var errMsg sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	res, err := db.ExecContext(ctx, `
		insert into prices (link_id, batch_id, price, currency, is_available, error_message, scraped_at)
		values (?, ?, ?, ?, ?, ?, ?)`,
		linkID, batchID, price, r.Currency, r.Available, errMsg, at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("record price for link %d: %w", linkID, err)
	}
	return res.LastInsertId()
}

// RecordBatch stores every reading of a report in one transaction. The
// readings must be in the same order as product.Links.
func (s *Store) RecordBatch(ctx context.Context, product models.Product, report models.BatchReport) error {
	if len(report.Readings) != len(product.Links) {
		return fmt.Errorf("batch %s has %d readings for %d links", report.ID, len(report.Readings), len(product.Links))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	at := s.now()
	for i, target := range product.Links {
		linkID := target.LinkID
		if linkID == 0 {
			if linkID, err = ensureLink(ctx, tx, product.Name, target); err != nil {
				return err
			}
		}
		if _, err := record(ctx, tx, linkID, report.ID, report.Readings[i], at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const entryColumns = `p.id, p.link_id, p.batch_id, p.price, p.currency, p.is_available,
	p.error_message, p.scraped_at, l.url, l.shop_name`

// History returns up to limit readings of a link, most recent first
func (s *Store) History(ctx context.Context, linkID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+entryColumns+`
		from prices p join links l on l.id = p.link_id
		where p.link_id = ?
		order by p.scraped_at desc, p.id desc
		limit ?`, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("history of link %d: %w", linkID, err)
	}
	return scanEntries(rows)
}

// Latest returns the newest reading of every link of a product
func (s *Store) Latest(ctx context.Context, product string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+entryColumns+`
		from links l join prices p on p.id = (
			select id from prices
			where link_id = l.id
			order by scraped_at desc, id desc
			limit 1
		)
		where l.product = ?
		order by l.id`, product)
	if err != nil {
		return nil, fmt.Errorf("latest prices of %s: %w", product, err)
	}
	return scanEntries(rows)
}

// Links lists the links stored for a product
func (s *Store) Links(ctx context.Context, product string) ([]models.ScrapeTarget, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, url, css_selector, shop_name from links
		where product = ? order by id`, product)
	if err != nil {
		return nil, fmt.Errorf("links of %s: %w", product, err)
	}
	defer rows.Close()

	var links []models.ScrapeTarget
	for rows.Next() {
		var t models.ScrapeTarget
		if err := rows.Scan(&t.LinkID, &t.URL, &t.CSSSelector, &t.ShopLabel); err != nil {
			return nil, err
		}
		links = append(links, t)
	}
	return links, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			price     sql.NullFloat64
			errMsg    sql.NullString
			scrapedAt int64
		)
		err := rows.Scan(&e.ID, &e.LinkID, &e.BatchID, &price, &e.Reading.Currency,
			&e.Reading.Available, &errMsg, &scrapedAt, &e.Reading.URL, &e.Reading.ShopLabel)
		if err != nil {
			return nil, err
		}
		if price.Valid {
			p := price.Float64
			e.Reading.Price = &p
		}
		e.Reading.ErrorMessage = errMsg.String
		e.Reading.ObservedAt = time.UnixMilli(scrapedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
