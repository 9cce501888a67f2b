// Package sqlite is the local file-backed record-store backend, used for
// offline imports and as the default store for the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT NOT NULL,
	household_id  TEXT NOT NULL,
	date          TEXT NOT NULL,
	person        TEXT NOT NULL,
	merchant      TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	amount        REAL NOT NULL,
	category      TEXT NOT NULL,
	tags          TEXT NOT NULL DEFAULT '[]',
	notes         TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL,
	external_id   TEXT,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (household_id, id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
	ON transactions (household_id, external_id)
	WHERE external_id IS NOT NULL AND external_id != '';

CREATE INDEX IF NOT EXISTS idx_transactions_category
	ON transactions (household_id, category);

CREATE TABLE IF NOT EXISTS categories (
	household_id  TEXT NOT NULL,
	name          TEXT NOT NULL,
	color         TEXT NOT NULL DEFAULT '',
	sort_order    INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (household_id, name)
);

CREATE TABLE IF NOT EXISTS budgets (
	household_id  TEXT NOT NULL,
	category      TEXT NOT NULL,
	amount        REAL NOT NULL,
	PRIMARY KEY (household_id, category)
);

CREATE TABLE IF NOT EXISTS rules (
	household_id  TEXT NOT NULL,
	key           TEXT NOT NULL,
	category      TEXT NOT NULL,
	PRIMARY KEY (household_id, key)
);

CREATE TABLE IF NOT EXISTS settings (
	household_id        TEXT NOT NULL PRIMARY KEY,
	negatives_are_spend INTEGER NOT NULL,
	members             TEXT NOT NULL DEFAULT '[]'
);
`

// Store is the sqlite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// The driver serializes access per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)

// isConstraintErr reports whether err is a SQLITE_CONSTRAINT failure
// (primary key or unique index violation).
func isConstraintErr(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == 19
	}
	return false
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// InsertTransaction inserts a transaction, translating constraint
// violations into store.ErrConflict.
func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, household_id, date, person, merchant, description, amount,
			 category, tags, notes, source, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.HouseholdID, t.Date, t.Person, t.Merchant, t.Description,
		t.Amount, t.Category, marshalTags(t.Tags), t.Notes, string(t.Source),
		t.ExternalID, t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if isConstraintErr(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTransactionCategory sets the category of one transaction.
func (s *Store) UpdateTransactionCategory(ctx context.Context, householdID, id, category string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE household_id = ? AND id = ?`,
		category, householdID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

const txnColumns = `id, household_id, date, person, merchant, description,
	amount, category, tags, notes, source, external_id, created_at`

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var t domain.Transaction
	var tags, source, createdAt string
	var externalID sql.NullString

	err := rows.Scan(&t.ID, &t.HouseholdID, &t.Date, &t.Person, &t.Merchant,
		&t.Description, &t.Amount, &t.Category, &tags, &t.Notes, &source,
		&externalID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Tags = unmarshalTags(tags)
	t.Source = domain.Source(source)
	t.ExternalID = externalID.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return &t, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactions returns all transactions for a household, newest first.
func (s *Store) ListTransactions(ctx context.Context, householdID string) ([]*domain.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+txnColumns+` FROM transactions
		 WHERE household_id = ? ORDER BY date DESC, id ASC`, householdID)
}

// QueryTransactionsByCategory returns the household's transactions in the
// named category.
func (s *Store) QueryTransactionsByCategory(ctx context.Context, householdID, category string) ([]*domain.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+txnColumns+` FROM transactions
		 WHERE household_id = ? AND category = ? ORDER BY date DESC, id ASC`,
		householdID, category)
}

// ReassignTransactionCategory moves every transaction in oldName to newName.
func (s *Store) ReassignTransactionCategory(ctx context.Context, householdID, oldName, newName string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE household_id = ? AND category = ?`,
		newName, householdID, oldName)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign category %s: %w", oldName, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, householdID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE household_id = ? AND id = ?`,
		householdID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTransactionsByDateRange removes transactions dated within
// [from, to] inclusive. Dates are ISO strings, so string comparison is
// date comparison.
func (s *Store) DeleteTransactionsByDateRange(ctx context.Context, householdID, from, to string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE household_id = ? AND date >= ? AND date <= ?`,
		householdID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions in range: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CreateCategory inserts a category, translating the primary-key violation
// into store.ErrConflict.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (household_id, name, color, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.HouseholdID, c.Name, c.Color, c.SortOrder,
		createdAt.UTC().Format(time.RFC3339Nano))
	if isConstraintErr(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create category %s: %w", c.Name, err)
	}
	return nil
}

// ListCategories returns the household's categories in sort order.
func (s *Store) ListCategories(ctx context.Context, householdID string) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT household_id, name, color, sort_order, created_at
		 FROM categories WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		var c domain.Category
		var createdAt string
		if err := rows.Scan(&c.HouseholdID, &c.Name, &c.Color, &c.SortOrder, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			c.CreatedAt = ts
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// UpdateCategoryName renames a category record.
func (s *Store) UpdateCategoryName(ctx context.Context, householdID, oldName, newName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE household_id = ? AND name = ?`,
		newName, householdID, oldName)
	if isConstraintErr(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to rename category %s: %w", oldName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category record.
func (s *Store) DeleteCategory(ctx context.Context, householdID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE household_id = ? AND name = ?`,
		householdID, name)
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetBudgetRow returns the budget row for a category, or store.ErrNotFound.
func (s *Store) GetBudgetRow(ctx context.Context, householdID, category string) (*domain.BudgetRow, error) {
	var row domain.BudgetRow
	err := s.db.QueryRowContext(ctx,
		`SELECT household_id, category, amount FROM budgets
		 WHERE household_id = ? AND category = ?`,
		householdID, category).Scan(&row.HouseholdID, &row.Category, &row.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget row for %s: %w", category, err)
	}
	return &row, nil
}

// UpsertBudgetRow creates or replaces the budget row for its category.
func (s *Store) UpsertBudgetRow(ctx context.Context, b *domain.BudgetRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (household_id, category, amount) VALUES (?, ?, ?)
		 ON CONFLICT (household_id, category) DO UPDATE SET amount = excluded.amount`,
		b.HouseholdID, b.Category, b.Amount)
	if err != nil {
		return fmt.Errorf("failed to upsert budget row for %s: %w", b.Category, err)
	}
	return nil
}

// DeleteBudgetRow removes the budget row for a category.
func (s *Store) DeleteBudgetRow(ctx context.Context, householdID, category string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE household_id = ? AND category = ?`,
		householdID, category)
	return err
}

// LoadRules returns the household's learned key -> category map.
func (s *Store) LoadRules(ctx context.Context, householdID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, category FROM rules WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, category string
		if err := rows.Scan(&key, &category); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out[key] = category
	}
	return out, rows.Err()
}

// PutRule stores or overwrites one learned association.
func (s *Store) PutRule(ctx context.Context, householdID, key, category string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (household_id, key, category) VALUES (?, ?, ?)
		 ON CONFLICT (household_id, key) DO UPDATE SET category = excluded.category`,
		householdID, key, category)
	if err != nil {
		return fmt.Errorf("failed to store rule %q: %w", key, err)
	}
	return nil
}

// GetSettings returns the household settings, falling back to defaults.
func (s *Store) GetSettings(ctx context.Context, householdID string) (*domain.Settings, error) {
	var set domain.Settings
	var negatives int
	var members string
	err := s.db.QueryRowContext(ctx,
		`SELECT household_id, negatives_are_spend, members FROM settings
		 WHERE household_id = ?`, householdID).
		Scan(&set.HouseholdID, &negatives, &members)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(householdID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for household %s: %w", householdID, err)
	}

	set.NegativesAreSpend = negatives != 0
	set.Members = unmarshalTags(members)
	return &set, nil
}

// SetSettings saves the household settings.
func (s *Store) SetSettings(ctx context.Context, set *domain.Settings) error {
	negatives := 0
	if set.NegativesAreSpend {
		negatives = 1
	}
	members, err := json.Marshal(set.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (household_id, negatives_are_spend, members)
		 VALUES (?, ?, ?)
		 ON CONFLICT (household_id) DO UPDATE SET
			negatives_are_spend = excluded.negatives_are_spend,
			members = excluded.members`,
		set.HouseholdID, negatives, string(members))
	if err != nil {
		return fmt.Errorf("failed to save settings for household %s: %w", set.HouseholdID, err)
	}
	return nil
}
