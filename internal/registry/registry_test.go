package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListParsers(t *testing.T) {
	reg := New()
	names := reg.ListParsers()
	if len(names) != 3 {
		t.Fatalf("expected 3 built-in parsers, got %d: %v", len(names), names)
	}

	want := map[string]bool{"csv": true, "xlsx": true, "ofx": true}
	for _, name := range names {
		if !want[name] {
			t.Errorf("unexpected parser %q", name)
		}
	}
}

func TestFindParserFor(t *testing.T) {
	reg := New()

	tests := []struct {
		name    string
		path    string
		header  string
		parser  string
		wantErr bool
	}{
		{"csv statement", "bank.csv", "Date,Description,Amount\n", "csv", false},
		{"ofx statement", "bank.ofx", "OFXHEADER:100\nDATA:OFXSGML\n", "ofx", false},
		{"qfx statement", "bank.qfx", "OFXHEADER:100\n", "ofx", false},
		{"workbook", "bank.xlsx", "PK\x03\x04rest-of-zip", "xlsx", false},
		{"unknown format", "bank.pdf", "%PDF-1.4", "", true},
		{"csv extension with garbage", "bank.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.FindParserFor(tt.path, []byte(tt.header))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %s", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindParserFor(%q) failed: %v", tt.path, err)
			}
			if p.Name() != tt.parser {
				t.Errorf("expected %s parser, got %s", tt.parser, p.Name())
			}
		})
	}
}

func TestFindParserReadsFileHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.csv")
	if err := os.WriteFile(path, []byte("Date,Description,Amount\n2024-03-15,coffee,-5.00\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reg := New()
	p, err := reg.FindParser(path)
	if err != nil {
		t.Fatalf("FindParser failed: %v", err)
	}
	if p.Name() != "csv" {
		t.Errorf("expected csv parser, got %s", p.Name())
	}
}

func TestFindParserSmallFile(t *testing.T) {
	// Files under 512 bytes must still be sniffable.
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reg := New()
	if _, err := reg.FindParser(path); err != nil {
		t.Errorf("expected tiny file to be matched, got %v", err)
	}
}
