// Package learn remembers which category a household files each merchant
// under, and replays that choice for future imports.
package learn

import (
	"context"
	"fmt"
	"sync"

	"github.com/kenralotamd/spending-tracker/internal/fingerprint"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

// Learner is the per-household rule engine. Associations live in the
// record store keyed by normalized merchant or description text; an
// in-memory copy serves lookups without a round trip per row.
type Learner struct {
	store       store.Store
	householdID string

	mu    sync.RWMutex
	rules map[string]string
}

// New creates a learner and loads the household's existing rules.
func New(ctx context.Context, st store.Store, householdID string) (*Learner, error) {
	l := &Learner{
		store:       st,
		householdID: householdID,
		rules:       map[string]string{},
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload replaces the in-memory rules with the stored ones.
func (l *Learner) Reload(ctx context.Context) error {
	rules, err := l.store.LoadRules(ctx, l.householdID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	l.mu.Lock()
	l.rules = rules
	l.mu.Unlock()
	return nil
}

// Learn records that this transaction's merchant belongs to category,
// falling back to the description as the key only when there is no
// merchant. Relearning overwrites: the household's latest categorization
// always wins.
func (l *Learner) Learn(ctx context.Context, merchant, description, category string) error {
	key := ruleKey(merchant, description)
	if key == "" {
		return fmt.Errorf("nothing to learn from empty merchant and description")
	}

	if err := l.store.PutRule(ctx, l.householdID, key, category); err != nil {
		return fmt.Errorf("failed to store rule %q: %w", key, err)
	}

	l.mu.Lock()
	l.rules[key] = category
	l.mu.Unlock()
	return nil
}

// Suggest returns the learned category for a merchant/description pair.
// The merchant key is authoritative; the full description only matches
// when no merchant rule exists.
func (l *Learner) Suggest(merchant, description string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if key := fingerprint.NormalizeText(merchant); key != "" {
		if category, ok := l.rules[key]; ok {
			return category, true
		}
	}
	if key := fingerprint.NormalizeText(description); key != "" {
		if category, ok := l.rules[key]; ok {
			return category, true
		}
	}
	return "", false
}

// Len reports how many rules are loaded.
func (l *Learner) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// ruleKey picks the single key a rule is stored under: the normalized
// merchant when there is one, else the normalized description. Storing
// the description alongside a merchant would let unrelated transactions
// that happen to share a description inherit the category.
func ruleKey(merchant, description string) string {
	if key := fingerprint.NormalizeText(merchant); key != "" {
		return key
	}
	return fingerprint.NormalizeText(description)
}
