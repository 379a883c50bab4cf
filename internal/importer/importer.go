// Package importer loads marketplace listings from a CSV export.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rcmarket/marketplace/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads listing rows and inserts or updates products. Rows with an id
// overwrite the existing listing; rows without one create a new listing each run.
type CSVImporter struct {
	reader        *csv.Reader
	productRepo   ProductWriter
	defaultSeller string
}

// NewCSVImporter builds an importer. defaultSeller is applied to rows with an empty
// sellerId column; an empty value leaves such listings unowned.
func NewCSVImporter(r io.Reader, repo ProductWriter, defaultSeller string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:        csvr,
		productRepo:   repo,
		defaultSeller: strings.TrimSpace(defaultSeller),
	}
}

var requiredHeaders = []string{"title", "priceCents"}

// Run parses CSV rows and upserts one product per row. It stops at the first bad row
// and reports how many rows were saved before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing required column %q", h)
		}
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}

		p, err := i.parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := i.productRepo.Upsert(ctx, p); err != nil {
			return imported, fmt.Errorf("line %d: upsert product %q: %w", line, p.Title, err)
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		ID:          pick(record, index, "id"),
		Title:       pick(record, index, "title"),
		Description: pick(record, index, "description"),
		ImageURL:    pick(record, index, "imageUrl"),
		Category:    pick(record, index, "category"),
		Condition:   pick(record, index, "condition"),
	}
	if p.Title == "" {
		return p, errors.New("title is required")
	}
	if p.ID != "" {
		if _, err := uuid.Parse(p.ID); err != nil {
			return p, fmt.Errorf("invalid id %q: %w", p.ID, err)
		}
	}

	cents, err := strconv.ParseInt(pick(record, index, "priceCents"), 10, 64)
	if err != nil || cents < 0 {
		return p, fmt.Errorf("invalid priceCents for %q", p.Title)
	}
	p.PriceCents = cents

	seller := pick(record, index, "sellerId")
	if seller == "" {
		seller = i.defaultSeller
	}
	if seller != "" {
		p.SellerID = &seller
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
