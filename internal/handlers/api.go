package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kenralotamd/spending-tracker/internal/categories"
	"github.com/kenralotamd/spending-tracker/internal/domain"
	"github.com/kenralotamd/spending-tracker/internal/learn"
	"github.com/kenralotamd/spending-tracker/internal/middleware"
	"github.com/kenralotamd/spending-tracker/internal/store"
)

// APIHandler handles the JSON API backed by the record store.
type APIHandler struct {
	store    store.Store
	migrator *categories.Migrator
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(st store.Store) *APIHandler {
	return &APIHandler{
		store:    st,
		migrator: categories.New(st),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

func household(w http.ResponseWriter, r *http.Request) (string, bool) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return householdID, ok
}

// GetTransactions handles GET /api/transactions
func (h *APIHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	category := r.URL.Query().Get("category")

	var transactions []*domain.Transaction
	var err error
	if category != "" {
		transactions, err = h.store.QueryTransactionsByCategory(r.Context(), householdID, category)
	} else {
		transactions, err = h.store.ListTransactions(r.Context(), householdID)
	}
	if err != nil {
		log.Printf("ERROR: failed to fetch transactions for household %s: %v", householdID, err)
		http.Error(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	writeJSON(w, http.StatusOK, transactions)
}

// createTransactionRequest is the body of POST /api/transactions.
type createTransactionRequest struct {
	Date        string   `json:"date"`
	Person      string   `json:"person"`
	Merchant    string   `json:"merchant"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes"`
}

// CreateTransaction handles POST /api/transactions (manual entry).
// Without an explicit category the learned rules pre-fill one; with an
// explicit category the merchant association is learned for future
// imports. A learned suggestion never overrides what the client sent.
func (h *APIHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings, err := h.store.GetSettings(r.Context(), householdID)
	if err != nil {
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	if req.Person != "" && !settings.ValidPerson(req.Person) {
		http.Error(w, "Unknown household member", http.StatusBadRequest)
		return
	}

	explicit := req.Category != ""
	category := req.Category
	if !explicit {
		if suggested, ok := h.suggestCategory(r.Context(), householdID, req.Merchant, req.Description); ok {
			category = suggested
		}
	}

	txn := &domain.Transaction{
		ID:          uuid.New().String(),
		HouseholdID: householdID,
		Date:        req.Date,
		Person:      req.Person,
		Merchant:    req.Merchant,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    category,
		Tags:        req.Tags,
		Notes:       req.Notes,
		Source:      domain.SourceManual,
		CreatedAt:   time.Now(),
	}
	if err := txn.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.InsertTransaction(r.Context(), txn); err != nil {
		log.Printf("ERROR: failed to insert transaction for household %s: %v", householdID, err)
		http.Error(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	if explicit {
		h.learnAssociation(r.Context(), householdID, txn.Merchant, txn.Description, txn.Category)
	}

	writeJSON(w, http.StatusCreated, txn)
}

// categorizeRequest is the body of PUT /api/transactions/{id}/category.
type categorizeRequest struct {
	Category string `json:"category"`
}

// CategorizeTransaction handles PUT /api/transactions/{id}/category.
// Every explicit assignment also teaches the rule engine, so future
// imports of the same merchant land in this category.
func (h *APIHandler) CategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		http.Error(w, "Category is required", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateTransactionCategory(r.Context(), householdID, id, req.Category); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: failed to categorize transaction %s: %v", id, err)
		http.Error(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	h.learnFromTransaction(r, householdID, id, req.Category)

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// learnFromTransaction records the merchant -> category association of a
// just-categorized transaction. Learning failures are logged, not
// surfaced; the categorization itself already succeeded.
func (h *APIHandler) learnFromTransaction(r *http.Request, householdID, id, category string) {
	// The transaction already carries its new category, so a category
	// query is enough to find it.
	transactions, err := h.store.QueryTransactionsByCategory(r.Context(), householdID, category)
	if err != nil {
		log.Printf("WARN: failed to load transaction %s for learning: %v", id, err)
		return
	}
	for _, txn := range transactions {
		if txn.ID != id {
			continue
		}
		h.learnAssociation(r.Context(), householdID, txn.Merchant, txn.Description, category)
		return
	}
}

// learnAssociation teaches the rule engine one explicit categorization.
// Failures are logged, not surfaced.
func (h *APIHandler) learnAssociation(ctx context.Context, householdID, merchant, description, category string) {
	learner, err := learn.New(ctx, h.store, householdID)
	if err != nil {
		log.Printf("WARN: failed to init learner: %v", err)
		return
	}
	if err := learner.Learn(ctx, merchant, description, category); err != nil {
		log.Printf("WARN: failed to learn category rule: %v", err)
	}
}

// suggestCategory consults the learned rules for a manual entry that
// arrived without a category.
func (h *APIHandler) suggestCategory(ctx context.Context, householdID, merchant, description string) (string, bool) {
	learner, err := learn.New(ctx, h.store, householdID)
	if err != nil {
		log.Printf("WARN: rules unavailable for suggestion: %v", err)
		return "", false
	}
	return learner.Suggest(merchant, description)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *APIHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := h.store.DeleteTransaction(r.Context(), householdID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: failed to delete transaction %s: %v", id, err)
		http.Error(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetCategories handles GET /api/categories
func (h *APIHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	cats, err := h.store.ListCategories(r.Context(), householdID)
	if err != nil {
		log.Printf("ERROR: failed to fetch categories for household %s: %v", householdID, err)
		http.Error(w, "Failed to fetch categories", http.StatusInternalServerError)
		return
	}
	if cats == nil {
		cats = []*domain.Category{}
	}

	writeJSON(w, http.StatusOK, cats)
}

// CreateCategory handles POST /api/categories
func (h *APIHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cat, err := h.migrator.Create(r.Context(), householdID, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			http.Error(w, "Category already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, cat)
}

// RenameCategory handles PUT /api/categories/{name}
func (h *APIHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	oldName := r.PathValue("name")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.migrator.Rename(r.Context(), householdID, oldName, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "Category not found", http.StatusNotFound)
		case errors.Is(err, store.ErrConflict):
			http.Error(w, "Category already exists", http.StatusConflict)
		default:
			log.Printf("ERROR: failed to rename category %s: %v", oldName, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteCategory handles DELETE /api/categories/{name}
func (h *APIHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")

	if err := h.migrator.Delete(r.Context(), householdID, name); err != nil {
		switch {
		case errors.Is(err, categories.ErrCategoryInUse):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "Category not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetBudget handles GET /api/budgets/{category}
func (h *APIHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	category := r.PathValue("category")

	row, err := h.store.GetBudgetRow(r.Context(), householdID, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Budget row not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: failed to fetch budget for %s: %v", category, err)
		http.Error(w, "Failed to fetch budget", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, row)
}

// PutBudget handles PUT /api/budgets/{category}
func (h *APIHandler) PutBudget(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}
	category := r.PathValue("category")

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	row := &domain.BudgetRow{HouseholdID: householdID, Category: category, Amount: req.Amount}
	if err := h.store.UpsertBudgetRow(r.Context(), row); err != nil {
		log.Printf("ERROR: failed to save budget for %s: %v", category, err)
		http.Error(w, "Failed to save budget", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, row)
}

// GetSettings handles GET /api/settings
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	settings, err := h.store.GetSettings(r.Context(), householdID)
	if err != nil {
		log.Printf("ERROR: failed to fetch settings for household %s: %v", householdID, err)
		http.Error(w, "Failed to fetch settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings
func (h *APIHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	householdID, ok := household(w, r)
	if !ok {
		return
	}

	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings.HouseholdID = householdID

	if err := h.store.SetSettings(r.Context(), &settings); err != nil {
		log.Printf("ERROR: failed to save settings for household %s: %v", householdID, err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &settings)
}
