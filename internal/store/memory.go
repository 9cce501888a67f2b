package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

// Memory is an in-memory Store used by tests and dry-run imports. It
// enforces the same uniqueness constraints the durable backends do.
type Memory struct {
	mu           sync.RWMutex
	transactions map[string]map[string]*domain.Transaction // household -> id -> txn
	categories   map[string]map[string]*domain.Category    // household -> name -> category
	budgets      map[string]map[string]*domain.BudgetRow   // household -> category -> row
	rules        map[string]map[string]string              // household -> key -> category
	settings     map[string]*domain.Settings
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]map[string]*domain.Transaction),
		categories:   make(map[string]map[string]*domain.Category),
		budgets:      make(map[string]map[string]*domain.BudgetRow),
		rules:        make(map[string]map[string]string),
		settings:     make(map[string]*domain.Settings),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) InsertTransaction(_ context.Context, t *domain.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	household := m.transactions[t.HouseholdID]
	if household == nil {
		household = make(map[string]*domain.Transaction)
		m.transactions[t.HouseholdID] = household
	}
	if _, exists := household[t.ID]; exists {
		return ErrConflict
	}
	if t.ExternalID != "" {
		for _, existing := range household {
			if existing.ExternalID == t.ExternalID {
				return ErrConflict
			}
		}
	}

	clone := *t
	household[t.ID] = &clone
	return nil
}

func (m *Memory) UpdateTransactionCategory(_ context.Context, householdID, id, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, ok := m.transactions[householdID][id]
	if !ok {
		return ErrNotFound
	}
	txn.Category = category
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, householdID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Transaction, 0, len(m.transactions[householdID]))
	for _, txn := range m.transactions[householdID] {
		clone := *txn
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) QueryTransactionsByCategory(_ context.Context, householdID, category string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Transaction
	for _, txn := range m.transactions[householdID] {
		if txn.Category == category {
			clone := *txn
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ReassignTransactionCategory(_ context.Context, householdID, oldName, newName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	moved := 0
	for _, txn := range m.transactions[householdID] {
		if txn.Category == oldName {
			txn.Category = newName
			moved++
		}
	}
	return moved, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, householdID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[householdID][id]; !ok {
		return ErrNotFound
	}
	delete(m.transactions[householdID], id)
	return nil
}

func (m *Memory) DeleteTransactionsByDateRange(_ context.Context, householdID, from, to string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, txn := range m.transactions[householdID] {
		if txn.Date >= from && txn.Date <= to {
			delete(m.transactions[householdID], id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) CreateCategory(_ context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	household := m.categories[c.HouseholdID]
	if household == nil {
		household = make(map[string]*domain.Category)
		m.categories[c.HouseholdID] = household
	}
	if _, exists := household[c.Name]; exists {
		return ErrConflict
	}
	clone := *c
	household[c.Name] = &clone
	return nil
}

func (m *Memory) ListCategories(_ context.Context, householdID string) ([]*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Category, 0, len(m.categories[householdID]))
	for _, c := range m.categories[householdID] {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) UpdateCategoryName(_ context.Context, householdID, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	household := m.categories[householdID]
	c, ok := household[oldName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := household[newName]; exists {
		return ErrConflict
	}
	delete(household, oldName)
	c.Name = newName
	household[newName] = c
	return nil
}

func (m *Memory) DeleteCategory(_ context.Context, householdID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[householdID][name]; !ok {
		return ErrNotFound
	}
	delete(m.categories[householdID], name)
	return nil
}

func (m *Memory) GetBudgetRow(_ context.Context, householdID, category string) (*domain.BudgetRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[householdID][category]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *Memory) UpsertBudgetRow(_ context.Context, b *domain.BudgetRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	household := m.budgets[b.HouseholdID]
	if household == nil {
		household = make(map[string]*domain.BudgetRow)
		m.budgets[b.HouseholdID] = household
	}
	clone := *b
	household[b.Category] = &clone
	return nil
}

func (m *Memory) DeleteBudgetRow(_ context.Context, householdID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.budgets[householdID], category)
	return nil
}

func (m *Memory) LoadRules(_ context.Context, householdID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.rules[householdID]))
	for k, v := range m.rules[householdID] {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) PutRule(_ context.Context, householdID, key, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	household := m.rules[householdID]
	if household == nil {
		household = make(map[string]string)
		m.rules[householdID] = household
	}
	household[key] = category
	return nil
}

func (m *Memory) GetSettings(_ context.Context, householdID string) (*domain.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[householdID]
	if !ok {
		return domain.DefaultSettings(householdID), nil
	}
	clone := *s
	return &clone, nil
}

func (m *Memory) SetSettings(_ context.Context, s *domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *s
	m.settings[s.HouseholdID] = &clone
	return nil
}
