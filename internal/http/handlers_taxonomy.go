package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"parsimonious/internal/core"
)

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type addCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		categories, err := s.store.Categories(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "List categories failed", "error", err)
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, categoriesResponse{Categories: categories})

	case http.MethodPost:
		var req addCategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.store.AddCategory(ctx, sanitizeInput(req.Name)); err != nil {
			slog.ErrorContext(ctx, "Add category failed", "error", err)
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, nil)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCategoryByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/categories/"))
	if err != nil || strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "invalid category name")
		return
	}

	if err := s.store.RemoveCategory(ctx, name); err != nil {
		slog.ErrorContext(ctx, "Remove category failed", "error", err, "name", name)
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type budgetResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type setBudgetRequest struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		budgets, err := s.store.Budgets(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "List budgets failed", "error", err)
			respondDomainError(w, err)
			return
		}
		out := make([]budgetResponse, 0, len(budgets))
		for _, b := range budgets {
			out = append(out, budgetResponse{Category: b.Category, Amount: b.Amount.Decimal()})
		}
		respondJSON(w, http.StatusOK, out)

	case http.MethodPut, http.MethodPost:
		var req setBudgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		budget := core.Budget{Category: sanitizeInput(req.Category), Amount: core.Money{Cents: cents}}
		if err := s.store.SetBudget(ctx, budget); err != nil {
			slog.ErrorContext(ctx, "Set budget failed", "error", err, "category", budget.Category)
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, budgetResponse{Category: budget.Category, Amount: budget.Amount.Decimal()})

	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
