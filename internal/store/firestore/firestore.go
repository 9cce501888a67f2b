// Package firestore is the remote record-store backend. One Firebase
// project serves every household; all documents carry a householdId field
// and queries always filter on it.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

const (
	collTransactions = "spend-transactions"
	collCategories   = "spend-categories"
	collBudgets      = "spend-budgets"
	collRules        = "spend-rules"
	collSettings     = "spend-settings"
)

// Client wraps the Firestore client with household spending operations.
type Client struct {
	Firestore *firestore.Client
	Auth      *auth.Client
	projectID string
}

// NewClient creates a new Firestore client using Application Default
// Credentials, or an explicit credentials file when credsPath is set.
func NewClient(ctx context.Context, projectID, credsPath string) (*Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}

	return &Client{
		Firestore: firestoreClient,
		Auth:      authClient,
		projectID: projectID,
	}, nil
}

// Close closes the Firestore client
func (c *Client) Close() error {
	return c.Firestore.Close()
}

var _ store.Store = (*Client)(nil)

func scopedDocID(householdID, name string) string {
	return householdID + "-" + name
}

// InsertTransaction creates the transaction document, translating the
// already-exists failure into store.ErrConflict. Imported transactions
// carry household-fingerprint document IDs, so Create doubles as the
// external-ID uniqueness check without a separate index.
func (c *Client) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	_, err := c.Firestore.Collection(collTransactions).Doc(t.ID).Create(ctx, t)
	if status.Code(err) == codes.AlreadyExists {
		return store.ErrConflict
	}
	return err
}

// UpdateTransactionCategory sets the category of one transaction.
func (c *Client) UpdateTransactionCategory(ctx context.Context, householdID, id, category string) error {
	doc := c.Firestore.Collection(collTransactions).Doc(id)

	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	if snap.Data()["householdId"] != householdID {
		return store.ErrNotFound
	}

	_, err = doc.Update(ctx, []firestore.Update{{Path: "category", Value: category}})
	return err
}

// ListTransactions retrieves all transactions for a household, newest first.
func (c *Client) ListTransactions(ctx context.Context, householdID string) ([]*domain.Transaction, error) {
	iter := c.Firestore.Collection(collTransactions).
		Where("householdId", "==", householdID).
		OrderBy("date", firestore.Desc).
		Documents(ctx)

	return collectTransactions(iter, householdID)
}

// QueryTransactionsByCategory retrieves the household's transactions in
// the named category.
func (c *Client) QueryTransactionsByCategory(ctx context.Context, householdID, category string) ([]*domain.Transaction, error) {
	iter := c.Firestore.Collection(collTransactions).
		Where("householdId", "==", householdID).
		Where("category", "==", category).
		Documents(ctx)

	return collectTransactions(iter, householdID)
}

func collectTransactions(iter *firestore.DocumentIterator, householdID string) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions for household %s: %w", householdID, err)
		}

		var txn domain.Transaction
		if err := doc.DataTo(&txn); err != nil {
			return nil, fmt.Errorf("failed to parse transaction: %w", err)
		}
		transactions = append(transactions, &txn)
	}
	return transactions, nil
}

// ReassignTransactionCategory moves every transaction in oldName to newName.
func (c *Client) ReassignTransactionCategory(ctx context.Context, householdID, oldName, newName string) (int, error) {
	iter := c.Firestore.Collection(collTransactions).
		Where("householdId", "==", householdID).
		Where("category", "==", oldName).
		Documents(ctx)

	moved := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("failed to iterate transactions for household %s: %w", householdID, err)
		}

		_, err = doc.Ref.Update(ctx, []firestore.Update{{Path: "category", Value: newName}})
		if err != nil {
			return moved, fmt.Errorf("failed to reassign transaction %s: %w", doc.Ref.ID, err)
		}
		moved++
	}
	return moved, nil
}

// DeleteTransaction removes one transaction.
func (c *Client) DeleteTransaction(ctx context.Context, householdID, id string) error {
	doc := c.Firestore.Collection(collTransactions).Doc(id)

	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	if snap.Data()["householdId"] != householdID {
		return store.ErrNotFound
	}

	_, err = doc.Delete(ctx)
	return err
}

// DeleteTransactionsByDateRange removes transactions dated within
// [from, to] inclusive.
func (c *Client) DeleteTransactionsByDateRange(ctx context.Context, householdID, from, to string) (int, error) {
	iter := c.Firestore.Collection(collTransactions).
		Where("householdId", "==", householdID).
		Where("date", ">=", from).
		Where("date", "<=", to).
		Documents(ctx)

	removed := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("failed to iterate transactions for household %s: %w", householdID, err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return removed, fmt.Errorf("failed to delete transaction %s: %w", doc.Ref.ID, err)
		}
		removed++
	}
	return removed, nil
}

// CreateCategory creates a new category. The document ID embeds the name,
// so Create enforces per-household name uniqueness.
func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) error {
	_, err := c.Firestore.Collection(collCategories).Doc(scopedDocID(cat.HouseholdID, cat.Name)).Create(ctx, cat)
	if status.Code(err) == codes.AlreadyExists {
		return store.ErrConflict
	}
	return err
}

// ListCategories retrieves all categories for a household in sort order.
func (c *Client) ListCategories(ctx context.Context, householdID string) ([]*domain.Category, error) {
	iter := c.Firestore.Collection(collCategories).
		Where("householdId", "==", householdID).
		OrderBy("sortOrder", firestore.Asc).
		Documents(ctx)

	var categories []*domain.Category
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate categories for household %s: %w", householdID, err)
		}

		var cat domain.Category
		if err := doc.DataTo(&cat); err != nil {
			return nil, fmt.Errorf("failed to parse category: %w", err)
		}
		categories = append(categories, &cat)
	}
	return categories, nil
}

// UpdateCategoryName renames a category record. Because the document ID
// embeds the name, a rename creates the new document and deletes the old
// one inside a Firestore transaction.
func (c *Client) UpdateCategoryName(ctx context.Context, householdID, oldName, newName string) error {
	oldRef := c.Firestore.Collection(collCategories).Doc(scopedDocID(householdID, oldName))
	newRef := c.Firestore.Collection(collCategories).Doc(scopedDocID(householdID, newName))

	err := c.Firestore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		oldSnap, err := tx.Get(oldRef)
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Get(newRef); err == nil {
			return store.ErrConflict
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		var cat domain.Category
		if err := oldSnap.DataTo(&cat); err != nil {
			return fmt.Errorf("failed to parse category: %w", err)
		}
		cat.Name = newName

		if err := tx.Create(newRef, &cat); err != nil {
			return err
		}
		return tx.Delete(oldRef)
	})
	return err
}

// DeleteCategory removes a category record.
func (c *Client) DeleteCategory(ctx context.Context, householdID, name string) error {
	ref := c.Firestore.Collection(collCategories).Doc(scopedDocID(householdID, name))

	_, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load category %s: %w", name, err)
	}

	_, err = ref.Delete(ctx)
	return err
}

// GetBudgetRow retrieves the budget row for a category.
func (c *Client) GetBudgetRow(ctx context.Context, householdID, category string) (*domain.BudgetRow, error) {
	doc, err := c.Firestore.Collection(collBudgets).Doc(scopedDocID(householdID, category)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget row for %s: %w", category, err)
	}

	var row domain.BudgetRow
	if err := doc.DataTo(&row); err != nil {
		return nil, fmt.Errorf("failed to parse budget row: %w", err)
	}
	return &row, nil
}

// UpsertBudgetRow creates or replaces the budget row for its category.
func (c *Client) UpsertBudgetRow(ctx context.Context, b *domain.BudgetRow) error {
	_, err := c.Firestore.Collection(collBudgets).Doc(scopedDocID(b.HouseholdID, b.Category)).Set(ctx, b)
	return err
}

// DeleteBudgetRow removes the budget row for a category.
func (c *Client) DeleteBudgetRow(ctx context.Context, householdID, category string) error {
	_, err := c.Firestore.Collection(collBudgets).Doc(scopedDocID(householdID, category)).Delete(ctx)
	return err
}

// ruleDoc is the single per-household document carrying every learned
// association under one map field.
type ruleDoc struct {
	HouseholdID string            `firestore:"householdId"`
	Rules       map[string]string `firestore:"rules"`
}

// LoadRules retrieves the household's learned key -> category map.
func (c *Client) LoadRules(ctx context.Context, householdID string) (map[string]string, error) {
	doc, err := c.Firestore.Collection(collRules).Doc(householdID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for household %s: %w", householdID, err)
	}

	var rd ruleDoc
	if err := doc.DataTo(&rd); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if rd.Rules == nil {
		rd.Rules = map[string]string{}
	}
	return rd.Rules, nil
}

// PutRule stores one learned association. MergeAll leaves the other keys
// of the rules map untouched, so concurrent learners never clobber each
// other's writes.
func (c *Client) PutRule(ctx context.Context, householdID, key, category string) error {
	_, err := c.Firestore.Collection(collRules).Doc(householdID).Set(ctx, map[string]any{
		"householdId": householdID,
		"rules":       map[string]any{key: category},
	}, firestore.MergeAll)
	return err
}

// GetSettings retrieves the household settings, falling back to defaults
// when none have been saved.
func (c *Client) GetSettings(ctx context.Context, householdID string) (*domain.Settings, error) {
	doc, err := c.Firestore.Collection(collSettings).Doc(householdID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.DefaultSettings(householdID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for household %s: %w", householdID, err)
	}

	var s domain.Settings
	if err := doc.DataTo(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

// SetSettings saves the household settings.
func (c *Client) SetSettings(ctx context.Context, s *domain.Settings) error {
	_, err := c.Firestore.Collection(collSettings).Doc(s.HouseholdID).Set(ctx, s)
	return err
}
