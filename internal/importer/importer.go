// Package importer reconciles parsed statement rows against the record
// store: coerce, fingerprint, insert, and count what happened.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kenralotamd/spending-tracker/internal/coerce"
	"github.com/kenralotamd/spending-tracker/internal/columns"
	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/fingerprint"
	"github.com/kenralotamd/spending-tracker/internal/parsers"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

// merchantTokenLimit caps how many leading description tokens form the
// merchant guess. Bank descriptions front-load the merchant name and
// trail off into reference numbers and city codes.
const merchantTokenLimit = 6

// Report summarizes one reconciliation run.
type Report struct {
	Total      int `json:"total"`      // rows seen
	Added      int `json:"added"`      // inserted
	Duplicates int `json:"duplicates"` // fingerprint already present
	Skipped    int `json:"skipped"`    // unusable rows (bad date or amount)
	Failed     int `json:"failed"`     // store errors, logged and passed over
}

// Progress is called after each row with rows processed so far and total.
type Progress func(processed, total int)

// Suggest proposes a category for a merchant/description pair. Wired to
// the rule learner; nil means everything lands in Uncategorized.
type Suggest func(merchant, description string) (string, bool)

// Options configures a reconciliation run.
type Options struct {
	HouseholdID string
	Person      string               // empty means the shared "both" tag
	Mapping     domain.ColumnMapping // zero value means guess from headers
	Settings    *domain.Settings     // nil means household defaults
	Progress    Progress
	Suggest     Suggest
	Now         func() time.Time // test seam; nil means time.Now
}

// Reconciler runs imports against a record store.
type Reconciler struct {
	store store.Store
}

// New creates a reconciler backed by the given store.
func New(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// Reconcile imports the rows of one parsed statement. The column mapping
// is validated up front; an unusable mapping rejects the whole batch with
// no partial insert. Individual bad rows are skipped, duplicates are
// counted but never inserted twice, and re-running the same file yields
// zero additions.
func (r *Reconciler) Reconcile(ctx context.Context, rows *parsers.Rows, opts Options) (*Report, error) {
	if opts.HouseholdID == "" {
		return nil, fmt.Errorf("household ID is required")
	}

	mapping := opts.Mapping
	if mapping == (domain.ColumnMapping{}) {
		mapping = columns.Guess(rows.Headers)
	}
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("cannot import (headers: %s): %w",
			strings.Join(rows.Headers, ", "), err)
	}

	settings := opts.Settings
	if settings == nil {
		var err error
		settings, err = r.store.GetSettings(ctx, opts.HouseholdID)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
	}

	person := opts.Person
	if person == "" {
		person = domain.PersonBoth
	}
	if !settings.ValidPerson(person) {
		return nil, fmt.Errorf("unknown household member: %s", person)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	report := &Report{Total: len(rows.Records)}
	var inserted []*domain.Transaction
	for i, row := range rows.Records {
		// Cancellation is honored between rows; an in-flight insert is
		// never abandoned halfway.
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		if txn := r.reconcileRow(ctx, row, mapping, opts.HouseholdID, settings.NegativesAreSpend, person, now, i+1, report); txn != nil {
			inserted = append(inserted, txn)
		}

		if opts.Progress != nil {
			opts.Progress(i+1, report.Total)
		}
	}

	if opts.Suggest != nil {
		// Suggestions run after insertion so a categorization failure
		// never loses the transaction itself.
		r.applySuggestions(ctx, opts, inserted)
	}

	return report, nil
}

// reconcileRow imports one row, returning the transaction when it was
// inserted. Only unparseable dates and non-positive amounts skip a row;
// an empty description is imported as-is with no merchant guess.
func (r *Reconciler) reconcileRow(ctx context.Context, row domain.RawRow, mapping domain.ColumnMapping,
	householdID string, negativesAreSpend bool, person string, now func() time.Time,
	rowNum int, report *Report) *domain.Transaction {

	date, ok := coerce.Date(row[mapping.Date])
	if !ok {
		log.Printf("INFO: skipping row %d: unparseable date %q", rowNum, cellText(row[mapping.Date]))
		report.Skipped++
		return nil
	}

	description := cellText(row[mapping.Description])

	amount, ok := coerce.Resolve(row, mapping, negativesAreSpend)
	if !ok {
		log.Printf("INFO: skipping row %d: no positive spend amount", rowNum)
		report.Skipped++
		return nil
	}

	merchant := GuessMerchant(description)
	fp := fingerprint.Compute(date, amount, merchant, description)

	txn := &domain.Transaction{
		ID:          householdID + "-" + fp,
		HouseholdID: householdID,
		Date:        date,
		Person:      person,
		Merchant:    merchant,
		Description: description,
		Amount:      amount.InexactFloat64(),
		Category:    domain.CategoryUncategorized,
		Source:      domain.SourceImport,
		ExternalID:  fp,
		CreatedAt:   now(),
	}

	err := r.store.InsertTransaction(ctx, txn)
	switch {
	case err == nil:
		report.Added++
		return txn
	case errors.Is(err, store.ErrConflict):
		log.Printf("INFO: row %d already imported (fingerprint %s)", rowNum, fp)
		report.Duplicates++
	default:
		log.Printf("ERROR: failed to insert transaction %s: %v", txn.ID, err)
		report.Failed++
	}
	return nil
}

// applySuggestions categorizes this run's inserted transactions when the
// learner has an answer. Transactions that predate the run are never
// touched; re-categorizing them is the household's call, not an import
// side effect.
func (r *Reconciler) applySuggestions(ctx context.Context, opts Options, inserted []*domain.Transaction) {
	for _, txn := range inserted {
		category, ok := opts.Suggest(txn.Merchant, txn.Description)
		if !ok {
			continue
		}
		if err := r.store.UpdateTransactionCategory(ctx, opts.HouseholdID, txn.ID, category); err != nil {
			log.Printf("WARN: failed to categorize transaction %s: %v", txn.ID, err)
		}
	}
}

// GuessMerchant derives the merchant name from a raw bank description:
// normalized text truncated to its leading tokens.
func GuessMerchant(description string) string {
	tokens := strings.Fields(fingerprint.NormalizeText(description))
	if len(tokens) > merchantTokenLimit {
		tokens = tokens[:merchantTokenLimit]
	}
	return strings.Join(tokens, " ")
}

// cellText renders a raw cell as trimmed text.
func cellText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
