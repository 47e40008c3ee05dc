package grounding

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultLimit is how many examples are supplied to the request-role judgment.
const DefaultLimit = 12

//go:embed seed.csv
var seedCorpus []byte

// Example is one human-rated (role, request, score) triple.
type Example struct {
	Domain        string  `json:"domain"`
	Role          string  `json:"role"`
	RequestPhrase string  `json:"request_phrase"`
	Rating        float64 `json:"rating"`
}

// Source returns calibration examples for a domain. Implementations return at
// most limit rows in corpus order.
type Source interface {
	Examples(ctx context.Context, domain string, limit int) ([]Example, error)
}

// Table is an in-memory, read-only corpus keyed by lowercase domain.
type Table struct {
	byDomain map[string][]Example
	total    int
}

// NewTable indexes examples by domain, preserving their order.
func NewTable(examples []Example) *Table {
	t := &Table{byDomain: make(map[string][]Example)}
	for _, ex := range examples {
		key := domainKey(ex.Domain)
		if key == "" {
			continue
		}
		t.byDomain[key] = append(t.byDomain[key], ex)
		t.total++
	}
	return t
}

// Seed returns the embedded starter corpus.
func Seed() (*Table, error) {
	examples, err := SeedExamples()
	if err != nil {
		return nil, err
	}
	return NewTable(examples), nil
}

// SeedExamples returns every row of the embedded starter corpus in file order.
func SeedExamples() ([]Example, error) {
	examples, err := ParseCSV(strings.NewReader(string(seedCorpus)))
	if err != nil {
		return nil, fmt.Errorf("parse seed corpus: %w", err)
	}
	return examples, nil
}

// Examples implements Source.
func (t *Table) Examples(_ context.Context, domain string, limit int) ([]Example, error) {
	if t == nil {
		return nil, nil
	}
	rows := t.byDomain[domainKey(domain)]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]Example, len(rows))
	copy(out, rows)
	return out, nil
}

// Len returns the number of indexed examples.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.total
}

// LoadCSV reads a corpus file from disk.
func LoadCSV(path string) ([]Example, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("grounding corpus path is empty")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grounding corpus: %w", err)
	}
	defer file.Close()
	return ParseCSV(bufio.NewReader(file))
}

// ParseCSV decodes a corpus with the columns Domain, role, Request Phrase and
// "Contextual Integrity Rating (0–10)". Header names are matched loosely and
// rows with an unparseable rating are skipped.
func ParseCSV(r io.Reader) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read grounding header: %w", err)
	}
	cols, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	var out []Example
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read grounding row: %w", err)
		}
		if len(row) <= cols.max() {
			continue
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(row[cols.rating]), 64)
		if err != nil {
			continue
		}
		ex := Example{
			Domain:        strings.TrimSpace(row[cols.domain]),
			Role:          strings.TrimSpace(row[cols.role]),
			RequestPhrase: strings.TrimSpace(row[cols.request]),
			Rating:        rating,
		}
		if ex.Domain == "" || ex.Role == "" {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

type columns struct {
	domain, role, request, rating int
}

func (c columns) max() int {
	m := c.domain
	for _, v := range []int{c.role, c.request, c.rating} {
		if v > m {
			m = v
		}
	}
	return m
}

func detectColumns(header []string) (columns, error) {
	cols := columns{domain: -1, role: -1, request: -1, rating: -1}
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		switch {
		case name == "domain":
			cols.domain = i
		case name == "role":
			cols.role = i
		case strings.HasPrefix(name, "request"):
			cols.request = i
		case strings.Contains(name, "rating") || strings.Contains(name, "score"):
			cols.rating = i
		}
	}
	if cols.domain < 0 || cols.role < 0 || cols.request < 0 || cols.rating < 0 {
		return cols, fmt.Errorf("grounding header %v: expected domain, role, request phrase and rating columns", header)
	}
	return cols, nil
}

func domainKey(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
