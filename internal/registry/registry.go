// Package registry selects the right file parser for an uploaded statement.
package registry

import (
	"fmt"
	"io"
	"os"

	"github.com/kenralotamd/spending-tracker/internal/parsers"
	"github.com/kenralotamd/spending-tracker/internal/parsers/csv"
	"github.com/kenralotamd/spending-tracker/internal/parsers/ofx"
	"github.com/kenralotamd/spending-tracker/internal/parsers/xlsx"
)

// Registry holds all registered parsers
type Registry struct {
	parsers []parsers.Parser
}

// New creates a registry with all built-in parsers
func New() *Registry {
	return &Registry{
		parsers: []parsers.Parser{
			csv.NewParser(),
			xlsx.NewParser(),
			ofx.NewParser(),
		},
	}
}

// Register adds a custom parser (for extensibility)
func (r *Registry) Register(p parsers.Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the parser for this file, sniffing the first 512 bytes
// for format detection. That is enough to spot the zip signature of a
// workbook, OFX header markers, and a parseable CSV header row.
func (r *Registry) FindParser(path string) (parsers.Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	// EOF is fine - small statement files may be under 512 bytes; parsers
	// receive whatever was read.
	header = header[:n]

	return r.FindParserFor(path, header)
}

// FindParserFor matches a parser against an already-read header, for
// callers (like the upload handler) that hold the bytes in memory.
func (r *Registry) FindParserFor(path string, header []byte) (parsers.Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(path, header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no parser found for file: %s", path)
}

// ListParsers returns the names of all registered parsers
func (r *Registry) ListParsers() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
