// Package parsers defines the strategy interface shared by all statement
// file parsers and the row shape they produce.
package parsers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

// Parser is the strategy interface for all file format parsers
type Parser interface {
	// Name returns parser identifier (e.g., "csv", "xlsx", "ofx")
	Name() string

	// CanParse checks if parser can handle this file
	// Returns true if this parser should be used for the file
	CanParse(path string, header []byte) bool

	// Parse extracts loosely-typed rows from the file
	Parse(ctx context.Context, r io.Reader, meta Metadata) (*Rows, error)
}

// Rows is the parsed content of one uploaded file: the raw headers in
// original column order plus one RawRow per data record. No schema is
// assumed; the columns package maps headers onto roles afterwards.
type Rows struct {
	Headers []string
	Records []domain.RawRow
}

// Len returns the number of data rows
func (r *Rows) Len() int {
	return len(r.Records)
}

// Metadata describes the source file, used for error messages and logs.
type Metadata struct {
	path    string
	modTime time.Time
}

// NewMetadata creates metadata for a source file
func NewMetadata(path string, modTime time.Time) (Metadata, error) {
	if path == "" {
		return Metadata{}, fmt.Errorf("file path cannot be empty")
	}
	return Metadata{path: path, modTime: modTime}, nil
}

// FilePath returns the source file path
func (m Metadata) FilePath() string { return m.path }

// ModTime returns the source file modification time
func (m Metadata) ModTime() time.Time { return m.modTime }

// FileInfo returns a formatted file path fragment for error messages.
func (m Metadata) FileInfo() string {
	if m.path == "" {
		return ""
	}
	return fmt.Sprintf(" from %s", m.path)
}
