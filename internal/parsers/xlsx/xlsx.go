// Package xlsx parses spreadsheet workbooks into header-keyed rows.
// Only the first sheet is read.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/parsers"
)

// Parser implements workbook parsing with a stateless design, safe for
// concurrent use without locking.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared workbook parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "xlsx"
}

// zipMagic is the PK zip signature every xlsx file starts with.
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// CanParse checks if this parser can handle the file based on extension and
// the zip container signature.
func (p *Parser) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return false
	}
	return bytes.HasPrefix(header, zipMagic)
}

// Parse extracts header-keyed rows from the first sheet of a workbook.
// Cell values arrive as excelize's formatted strings; typing is deferred to
// the coerce package like every other source.
func (p *Parser) Parse(ctx context.Context, r io.Reader, meta parsers.Metadata) (*parsers.Rows, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook%s: %w", meta.FileInfo(), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets%s", meta.FileInfo())
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q%s: %w", sheets[0], meta.FileInfo(), err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("workbook sheet %q is empty%s", sheets[0], meta.FileInfo())
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
