package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/store"
)

// maxScanImageSize bounds uploaded receipt photos.
const maxScanImageSize = 10 << 20

type receiptResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Note        string `json:"note,omitempty"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
}

func toReceiptResponse(r core.Receipt) receiptResponse {
	return receiptResponse{
		ID:          r.ID.String(),
		Date:        r.Date.ISO(),
		Description: r.Description,
		Note:        r.Note,
		Category:    r.Category,
		Amount:      r.Amount.Decimal(),
	}
}

func toReceiptResponses(receipts []core.Receipt) []receiptResponse {
	out := make([]receiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, toReceiptResponse(r))
	}
	return out
}

type createReceiptRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Note        string `json:"note"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReceipts(w, r)
	case http.MethodPost:
		s.createReceipt(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("all") == "true" {
		receipts, err := s.store.ListAll(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "List receipts failed", "error", err)
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, toReceiptResponses(receipts))
		return
	}

	year, month := parseYearMonth(r)
	key := monthKey(year, month)
	if receipts, ok := s.monthCache.Get(key); ok {
		respondJSON(w, http.StatusOK, toReceiptResponses(receipts))
		return
	}

	receipts, err := s.store.ListMonth(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "List month receipts failed", "error", err, "year", year, "month", month)
		respondDomainError(w, err)
		return
	}
	s.monthCache.Set(key, receipts)
	respondJSON(w, http.StatusOK, toReceiptResponses(receipts))
}

func (s *Server) createReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := core.ParseCalendarDate(strings.TrimSpace(req.Date))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	receipt, err := s.receipts.CreateReceipt(ctx, date,
		sanitizeInput(req.Description),
		sanitizeInput(req.Note),
		sanitizeInput(req.Category),
		core.Money{Cents: cents})
	if err != nil {
		slog.ErrorContext(ctx, "Create receipt failed", "error", err)
		respondDomainError(w, err)
		return
	}

	s.invalidateMonth(receipt.Date)
	respondJSON(w, http.StatusCreated, toReceiptResponse(receipt))
}

func (s *Server) handleReceiptByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/receipts/"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	// Find the receipt first so its month's caches can be dropped.
	receipts, err := s.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List receipts failed", "error", err)
		respondDomainError(w, err)
		return
	}
	var target *core.Receipt
	for i := range receipts {
		if receipts[i].ID == id {
			target = &receipts[i]
			break
		}
	}
	if target == nil {
		respondDomainError(w, store.ErrNotFound)
		return
	}

	if err := s.receipts.DeleteReceipt(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Delete receipt failed", "error", err, "id", id)
		respondDomainError(w, err)
		return
	}

	s.invalidateMonth(target.Date)
	w.WriteHeader(http.StatusNoContent)
}

type scanResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.enrichment == nil {
		respondError(w, http.StatusServiceUnavailable, "receipt scanning is not configured")
		return
	}
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxScanImageSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxScanImageSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	jobID, err := s.enrichment.Submit(ctx, image)
	if err != nil {
		slog.ErrorContext(ctx, "Submit scan failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to queue scan")
		return
	}

	respondJSON(w, http.StatusAccepted, scanResponse{JobID: jobID.String()})
}

type suggestResponse struct {
	Category string `json:"category,omitempty"`
	Found    bool   `json:"found"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	description := strings.TrimSpace(r.URL.Query().Get("description"))
	if description == "" {
		respondError(w, http.StatusBadRequest, "description is required")
		return
	}

	category, found, err := s.receipts.SuggestCategory(ctx, description)
	if err != nil {
		slog.ErrorContext(ctx, "Suggest category failed", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestResponse{Category: category, Found: found})
}
