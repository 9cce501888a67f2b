// Package categories manages the household category list and the
// migrations that keep transactions and budget rows consistent with it.
package categories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

// ErrCategoryInUse means a category still has transactions or a budget
// row referencing it and cannot be deleted.
var ErrCategoryInUse = errors.New("category is still in use")

// Migrator performs category renames and deletions with their cascades.
type Migrator struct {
	store store.Store
}

// New creates a migrator backed by the given store.
func New(st store.Store) *Migrator {
	return &Migrator{store: st}
}

// Create adds a new category for the household.
func (m *Migrator) Create(ctx context.Context, householdID, name string) (*domain.Category, error) {
	cat, err := domain.NewCategory(householdID, name)
	if err != nil {
		return nil, err
	}
	cat.CreatedAt = time.Now()

	if err := m.store.CreateCategory(ctx, cat); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("category %q already exists: %w", name, err)
		}
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return cat, nil
}

// RenameResult reports what a rename touched.
type RenameResult struct {
	TransactionsMoved int  `json:"transactionsMoved"`
	BudgetMoved       bool `json:"budgetMoved"`
}

// Rename renames a category and cascades the new name to every
// transaction and the budget row. The category record moves first, then
// transactions, then the budget row; a failure mid-cascade is returned
// with the partial result so the caller can retry, and retrying is safe
// because each step is idempotent under the new name.
func (m *Migrator) Rename(ctx context.Context, householdID, oldName, newName string) (*RenameResult, error) {
	if oldName == newName {
		return nil, fmt.Errorf("new name matches the old name")
	}
	if newName == "" {
		return nil, fmt.Errorf("new category name cannot be empty")
	}
	if oldName == domain.CategoryUncategorized {
		return nil, fmt.Errorf("%s cannot be renamed", domain.CategoryUncategorized)
	}

	result := &RenameResult{}

	if err := m.store.UpdateCategoryName(ctx, householdID, oldName, newName); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("category %q not found: %w", oldName, err)
		case errors.Is(err, store.ErrConflict):
			return nil, fmt.Errorf("category %q already exists: %w", newName, err)
		}
		return nil, fmt.Errorf("failed to rename category record: %w", err)
	}

	moved, err := m.store.ReassignTransactionCategory(ctx, householdID, oldName, newName)
	result.TransactionsMoved = moved
	if err != nil {
		return result, fmt.Errorf("renamed category record but moved only %d transactions: %w", moved, err)
	}

	if err := m.migrateBudgetRow(ctx, householdID, oldName, newName, result); err != nil {
		return result, err
	}

	log.Printf("INFO: renamed category %q to %q (%d transactions moved) for household %s",
		oldName, newName, moved, householdID)
	return result, nil
}

func (m *Migrator) migrateBudgetRow(ctx context.Context, householdID, oldName, newName string, result *RenameResult) error {
	row, err := m.store.GetBudgetRow(ctx, householdID, oldName)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load budget row for %q: %w", oldName, err)
	}

	row.Category = newName
	if err := m.store.UpsertBudgetRow(ctx, row); err != nil {
		return fmt.Errorf("failed to move budget row to %q: %w", newName, err)
	}
	if err := m.store.DeleteBudgetRow(ctx, householdID, oldName); err != nil {
		return fmt.Errorf("moved budget row but failed to remove the old one: %w", err)
	}
	result.BudgetMoved = true
	return nil
}

// Delete removes a category that nothing references. Transactions or a
// budget row still pointing at it make the delete fail with
// ErrCategoryInUse; reassign them first.
func (m *Migrator) Delete(ctx context.Context, householdID, name string) error {
	if name == domain.CategoryUncategorized {
		return fmt.Errorf("%s cannot be deleted", domain.CategoryUncategorized)
	}

	txns, err := m.store.QueryTransactionsByCategory(ctx, householdID, name)
	if err != nil {
		return fmt.Errorf("failed to check transactions for %q: %w", name, err)
	}
	if len(txns) > 0 {
		return fmt.Errorf("%d transactions still reference %q: %w", len(txns), name, ErrCategoryInUse)
	}

	if _, err := m.store.GetBudgetRow(ctx, householdID, name); err == nil {
		return fmt.Errorf("budget row still references %q: %w", name, ErrCategoryInUse)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check budget row for %q: %w", name, err)
	}

	if err := m.store.DeleteCategory(ctx, householdID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("category %q not found: %w", name, err)
		}
		return fmt.Errorf("failed to delete category %q: %w", name, err)
	}
	return nil
}
