// Package ofx parses OFX/QFX statement downloads into the same
// header-keyed rows the spreadsheet parsers produce.
package ofx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/parsers"
)

// Canonical headers emitted for OFX files. They sit inside the column
// guesser's synonym sets so OFX rows flow through the same mapping path as
// CSV and workbook rows.
const (
	headerDate        = "Date"
	headerDescription = "Description"
	headerAmount      = "Amount"
)

// Parser implements OFX/QFX parsing with a stateless design, safe for
// concurrent use without locking.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared OFX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "ofx"
}

// CanParse checks if this parser can handle the file based on extension and
// OFX header markers (both v1 SGML and v2 XML formats).
func (p *Parser) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// Parse flattens the bank or credit-card transaction list of an OFX file
// into rows. Amounts keep the OFX sign convention (negative = outflow); the
// household sign convention is applied later by amount resolution.
func (p *Parser) Parse(ctx context.Context, r io.Reader, meta parsers.Metadata) (*parsers.Rows, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content%s: %w", meta.FileInfo(), err)
	}

	// ofxgo.ParseResponse does not support context cancellation; this check
	// only catches cancellation between file read and parsing.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file%s (%d bytes): %w", meta.FileInfo(), len(content), err)
	}

	tranList, err := transactionList(response)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, meta.FileInfo())
	}

	rows := &parsers.Rows{
		Headers: []string{headerDate, headerDescription, headerAmount},
		Records: make([]domain.RawRow, 0, len(tranList.Transactions)),
	}
	for i, txn := range tranList.Transactions {
		amount, exact := txn.TrnAmt.Float64()
		if !exact {
			log.Printf("WARN: precision loss converting OFX amount %v at index %d%s", &txn.TrnAmt, i, meta.FileInfo())
		}

		description := strings.TrimSpace(txn.Name.String())
		if memo := strings.TrimSpace(txn.Memo.String()); memo != "" && memo != description {
			if description == "" {
				description = memo
			} else {
				description = description + " " + memo
			}
		}

		rows.Records = append(rows.Records, domain.RawRow{
			headerDate:        txn.DtPosted.Time,
			headerDescription: description,
			headerAmount:      amount,
		})
	}

	return rows, nil
}

// transactionList finds the first bank or credit-card statement in the
// response. Investment statements are not a household spending source.
func transactionList(resp *ofxgo.Response) (*ofxgo.TransactionList, error) {
	if len(resp.Bank) > 0 {
		stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected bank statement type %T", resp.Bank[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in bank statement")
		}
		return stmt.BankTranList, nil
	}

	if len(resp.CreditCard) > 0 {
		stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected credit card statement type %T", resp.CreditCard[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in credit card statement")
		}
		return stmt.BankTranList, nil
	}

	return nil, fmt.Errorf("no bank or credit card statement found in OFX file (bank: %d, creditcard: %d)",
		len(resp.Bank), len(resp.CreditCard))
}
