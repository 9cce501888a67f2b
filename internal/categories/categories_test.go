package categories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

func seedTransactions(t *testing.T, mem *store.Memory, householdID, category string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		txn := &domain.Transaction{
			ID:          category + "-txn-" + string(rune('a'+i)),
			HouseholdID: householdID,
			Date:        "2024-03-15",
			Description: "seed",
			Amount:      10,
			Category:    category,
			Source:      domain.SourceManual,
			CreatedAt:   time.Now(),
		}
		if err := mem.InsertTransaction(context.Background(), txn); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}
}

func TestRenameCascades(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mig := New(mem)

	if _, err := mig.Create(ctx, "house1", "Shell"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	seedTransactions(t, mem, "house1", "Shell", 12)
	if err := mem.UpsertBudgetRow(ctx, &domain.BudgetRow{
		HouseholdID: "house1", Category: "Shell", Amount: 250,
	}); err != nil {
		t.Fatalf("budget seed failed: %v", err)
	}

	result, err := mig.Rename(ctx, "house1", "Shell", "Fuel")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if result.TransactionsMoved != 12 {
		t.Errorf("expected 12 transactions moved, got %d", result.TransactionsMoved)
	}
	if !result.BudgetMoved {
		t.Error("expected budget row to move")
	}

	left, _ := mem.QueryTransactionsByCategory(ctx, "house1", "Shell")
	if len(left) != 0 {
		t.Errorf("expected no transactions left in Shell, got %d", len(left))
	}

	row, err := mem.GetBudgetRow(ctx, "house1", "Fuel")
	if err != nil {
		t.Fatalf("budget row did not move: %v", err)
	}
	if row.Amount != 250 {
		t.Errorf("expected amount 250 to carry over, got %v", row.Amount)
	}
	if _, err := mem.GetBudgetRow(ctx, "house1", "Shell"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected old budget row removed, got %v", err)
	}

	cats, _ := mem.ListCategories(ctx, "house1")
	if len(cats) != 1 || cats[0].Name != "Fuel" {
		t.Errorf("expected single category Fuel, got %+v", cats)
	}
}

func TestRenameWithoutBudgetRow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mig := New(mem)

	if _, err := mig.Create(ctx, "house1", "Shell"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	result, err := mig.Rename(ctx, "house1", "Shell", "Fuel")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if result.BudgetMoved {
		t.Error("no budget row existed, nothing should have moved")
	}
}

func TestRenameValidation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mig := New(mem)

	if _, err := mig.Rename(ctx, "house1", "Fuel", "Fuel"); err == nil {
		t.Error("expected error renaming to the same name")
	}
	if _, err := mig.Rename(ctx, "house1", "Fuel", ""); err == nil {
		t.Error("expected error renaming to empty name")
	}
	if _, err := mig.Rename(ctx, "house1", domain.CategoryUncategorized, "Other"); err == nil {
		t.Error("expected the uncategorized sentinel to be protected")
	}
	if _, err := mig.Rename(ctx, "house1", "Missing", "Other"); err == nil {
		t.Error("expected error renaming missing category")
	}

	mig.Create(ctx, "house1", "Fuel")
	mig.Create(ctx, "house1", "Transport")
	if _, err := mig.Rename(ctx, "house1", "Fuel", "Transport"); err == nil {
		t.Error("expected conflict renaming onto existing category")
	}
}

func TestDeleteInUse(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mig := New(mem)

	if _, err := mig.Create(ctx, "house1", "Fuel"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	seedTransactions(t, mem, "house1", "Fuel", 1)

	err := mig.Delete(ctx, "house1", "Fuel")
	if !errors.Is(err, ErrCategoryInUse) {
		t.Errorf("expected ErrCategoryInUse for referenced category, got %v", err)
	}

	// Reassign the transaction away, leave a budget row: still in use.
	if _, err := mem.ReassignTransactionCategory(ctx, "house1", "Fuel", "Transport"); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
	mem.UpsertBudgetRow(ctx, &domain.BudgetRow{HouseholdID: "house1", Category: "Fuel", Amount: 100})
	if err := mig.Delete(ctx, "house1", "Fuel"); !errors.Is(err, ErrCategoryInUse) {
		t.Errorf("expected ErrCategoryInUse for budgeted category, got %v", err)
	}

	// Remove the budget row: delete finally succeeds.
	mem.DeleteBudgetRow(ctx, "house1", "Fuel")
	if err := mig.Delete(ctx, "house1", "Fuel"); err != nil {
		t.Errorf("expected delete to succeed, got %v", err)
	}
}

func TestDeleteProtectsSentinel(t *testing.T) {
	mig := New(store.NewMemory())
	if err := mig.Delete(context.Background(), "house1", domain.CategoryUncategorized); err == nil {
		t.Error("expected the uncategorized sentinel to be protected")
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	mig := New(store.NewMemory())

	if _, err := mig.Create(ctx, "house1", "Fuel"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := mig.Create(ctx, "house1", "Fuel"); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}
