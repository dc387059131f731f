package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"parsimonious/internal/core"
	"parsimonious/internal/export"
)

type categorySummary struct {
	Category string `json:"category"`
	Spent    string `json:"spent"`
	Budget   string `json:"budget"`
}

type summaryResponse struct {
	Year          int               `json:"year"`
	Month         int               `json:"month"`
	Total         string            `json:"total"`
	PreviousTotal string            `json:"previous_total"`
	Categories    []categorySummary `json:"categories"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	year, month := parseYearMonth(r)

	key := monthKey(year, month)
	overview, ok := s.overviewCache.Get(key)
	if !ok {
		var err error
		overview, err = s.store.MonthOverview(ctx, year, month)
		if err != nil {
			slog.ErrorContext(ctx, "Month overview failed", "error", err, "year", year, "month", month)
			respondDomainError(w, err)
			return
		}
		s.overviewCache.Set(key, overview)
	}

	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List budgets failed", "error", err)
		respondDomainError(w, err)
		return
	}
	budgetFor := make(map[string]core.Money, len(budgets))
	for _, b := range budgets {
		budgetFor[b.Category] = b.Amount
	}

	// Spent categories first, in overview order; then idle budget
	// categories alphabetically.
	resp := summaryResponse{
		Year:          overview.Year,
		Month:         overview.Month,
		Total:         overview.Total.Decimal(),
		PreviousTotal: overview.PreviousTotal.Decimal(),
		Categories:    make([]categorySummary, 0, len(budgets)),
	}
	seen := map[string]bool{}
	for _, ca := range overview.ByCategory {
		budget, ok := budgetFor[ca.Name]
		if !ok {
			budget = core.DefaultBudget
		}
		resp.Categories = append(resp.Categories, categorySummary{
			Category: ca.Name,
			Spent:    ca.Amount.Decimal(),
			Budget:   budget.Decimal(),
		})
		seen[ca.Name] = true
	}
	idle := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if !seen[b.Category] {
			idle = append(idle, b)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].Category < idle[j].Category })
	for _, b := range idle {
		resp.Categories = append(resp.Categories, categorySummary{
			Category: b.Category,
			Spent:    core.Money{}.Decimal(),
			Budget:   b.Amount.Decimal(),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

type dailyTotalResponse struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

type dailySummaryResponse struct {
	Year    int                  `json:"year"`
	Month   int                  `json:"month"`
	Days    []dailyTotalResponse `json:"days"`
	Average string               `json:"average,omitempty"`
}

// lastDayOfMonth returns the final calendar day of a month.
func lastDayOfMonth(year, month int) core.CalendarDate {
	next := core.NewCalendarDate(year, month+1, 1)
	if month == 12 {
		next = core.NewCalendarDate(year+1, 1, 1)
	}
	return next.DayBefore()
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	year, month := parseYearMonth(r)

	receipts, err := s.store.ListMonth(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "List month receipts failed", "error", err, "year", year, "month", month)
		respondDomainError(w, err)
		return
	}

	// The series runs through today for the current month, otherwise
	// through the end of the month.
	now := time.Now()
	to := lastDayOfMonth(year, month)
	if year == now.Year() && month == int(now.Month()) {
		to = core.Today()
	}

	resp := dailySummaryResponse{Year: year, Month: month}
	for _, dt := range core.DailyTotals(receipts, to) {
		resp.Days = append(resp.Days, dailyTotalResponse{
			Date:   dt.Date.ISO(),
			Amount: dt.Amount.Decimal(),
		})
	}
	if avg, ok := core.DailyAverage(receipts); ok {
		resp.Average = avg.Decimal()
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	var (
		receipts []core.Receipt
		filename string
		err      error
	)
	if r.URL.Query().Get("all") == "true" {
		receipts, err = s.store.ListAll(ctx)
		filename = "receipts.csv"
	} else {
		var year, month int
		year, month = parseYearMonth(r)
		receipts, err = s.store.ListMonth(ctx, year, month)
		filename = export.AttachmentName(year, month)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Export receipts failed", "error", err)
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteCSV(w, receipts); err != nil {
		slog.ErrorContext(ctx, "Write export csv failed", "error", err)
	}
}
