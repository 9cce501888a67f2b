// Package csv parses arbitrary bank-export CSV files into header-keyed rows.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/parsers"
)

// Parser implements generic CSV parsing with a stateless design.
// The struct has no fields because CSV parsing requires no configuration
// state, making the parser safe for concurrent use without locking.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared CSV parser instance.
// Safe for concurrent use due to stateless design.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "csv"
}

// CanParse checks if this parser can handle the file based on extension and
// a parseable first record. No fixed column schema is required; the header
// row is mapped to roles later.
func (p *Parser) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".txt" {
		return false
	}

	r := csv.NewReader(strings.NewReader(string(header)))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return false
	}
	return len(record) >= 2
}

// Parse extracts header-keyed rows from a CSV file. The first record is
// taken as headers; short records leave trailing cells empty and extra
// cells beyond the header width are dropped.
func (p *Parser) Parse(ctx context.Context, r io.Reader, meta parsers.Metadata) (*parsers.Rows, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content%s: %w", meta.FileInfo(), err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty%s", meta.FileInfo())
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := &parsers.Rows{
		Headers: headers,
		Records: make([]domain.RawRow, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(domain.RawRow, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows.Records = append(rows.Records, row)
	}

	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
