package io

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/pkg/models"
	"gopkg.in/yaml.v3"
)

// DefaultProduct names the single product built from a plain URL list
const DefaultProduct = "default"

// ErrNoInput is returned when no targets file is configured
var ErrNoInput = errors.New("no input file configured")

// TargetReader reads products and their shop links
type TargetReader struct {
	Config *config.IOConfig
}

// NewTargetReader creates a new target reader
func NewTargetReader(cfg *config.IOConfig) *TargetReader {
	return &TargetReader{
		Config: cfg,
	}
}

type targetsFile struct {
	Products []models.Product `yaml:"products"`
}

// ReadFromFile reads a targets file. YAML files hold a products list; any
// other file is read one target per line as "url [| selector [| shop]]".
func (r *TargetReader) ReadFromFile(filename string) ([]models.Product, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return readYAML(filename)
	default:
		return readLines(filename)
	}
}

// GetProducts reads the configured input file
func (r *TargetReader) GetProducts() ([]models.Product, error) {
	if r.Config == nil || r.Config.InputFile == "" {
		return nil, ErrNoInput
	}
	return r.ReadFromFile(r.Config.InputFile)
}

func readYAML(filename string) ([]models.Product, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	for i := range f.Products {
		p := &f.Products[i]
		if p.Name == "" {
			p.Name = fmt.Sprintf("product-%d", i+1)
		}
		for j := range p.Links {
			if p.Links[j].ShopLabel == "" {
				p.Links[j].ShopLabel = ShopFromURL(p.Links[j].URL)
			}
		}
	}
	return f.Products, nil
}

func readLines(filename string) ([]models.Product, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var links []models.ScrapeTarget
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, ParseTargetLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(links) == 0 {
		return nil, nil
	}
	return []models.Product{{Name: DefaultProduct, Links: links}}, nil
}

// ParseTargetLine parses "url [| selector [| shop]]"
func ParseTargetLine(line string) models.ScrapeTarget {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	t := models.ScrapeTarget{URL: fields[0]}
	if len(fields) > 1 {
		t.CSSSelector = fields[1]
	}
	if len(fields) > 2 {
		t.ShopLabel = fields[2]
	}
	if t.ShopLabel == "" {
		t.ShopLabel = ShopFromURL(t.URL)
	}
	return t
}

// ShopFromURL labels a shop by its host name without a leading "www."
func ShopFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
