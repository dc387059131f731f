// Package memory is an in-memory Store backed by JSON files, mirroring the
// original client's key-value cache. Good for development and tests; data
// survives restarts only when a base directory is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/store"
)

var _ store.Store = (*Store)(nil)

const (
	receiptsFile   = "receipts.json"
	categoriesFile = "categories.json"
	budgetsFile    = "budgets.json"
)

type Store struct {
	mu       sync.Mutex
	base     string // empty disables persistence
	receipts []core.Receipt
	cats     map[string]struct{}
	budgets  map[string]core.Money
	// lowercased description -> last category used for it
	descCategories map[string]string
}

// New creates an empty store seeded with the default taxonomy.
func New() *Store {
	s := &Store{
		cats:           map[string]struct{}{},
		budgets:        map[string]core.Money{},
		descCategories: map[string]string{},
	}
	for _, c := range core.DefaultCategories {
		s.cats[c] = struct{}{}
	}
	return s
}

// NewFromFiles loads state from JSON files under base, creating the
// directory when missing. Mutations are written back on every change.
func NewFromFiles(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := New()
	s.base = base

	if err := readJSON(filepath.Join(base, receiptsFile), &s.receipts); err != nil {
		return nil, err
	}
	var cats []string
	if err := readJSON(filepath.Join(base, categoriesFile), &cats); err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		s.cats = map[string]struct{}{}
		for _, c := range cats {
			s.cats[c] = struct{}{}
		}
	}
	budgets := map[string]int64{}
	if err := readJSON(filepath.Join(base, budgetsFile), &budgets); err != nil {
		return nil, err
	}
	for cat, cents := range budgets {
		s.budgets[cat] = core.Money{Cents: cents}
	}

	for _, r := range s.receipts {
		s.descCategories[strings.ToLower(r.Description)] = r.Category
	}
	return s, nil
}

func (s *Store) AddReceipt(_ context.Context, r core.Receipt) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	s.descCategories[strings.ToLower(r.Description)] = r.Category
	return s.persistLocked()
}

func (s *Store) ListMonth(_ context.Context, year, month int) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Receipt
	for _, r := range s.receipts {
		if r.Date.Year == year && r.Date.Month == month {
			out = append(out, r)
		}
	}
	sortReceipts(out)
	return out, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Receipt(nil), s.receipts...)
	sortReceipts(out)
	return out, nil
}

func (s *Store) DeleteReceipt(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receipts {
		if r.ID == id {
			s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
			return s.persistLocked()
		}
	}
	return store.ErrNotFound
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.cats))
	for c := range s.cats {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats[name] = struct{}{}
	return s.persistLocked()
}

func (s *Store) RemoveCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[name]; !ok {
		return store.ErrNotFound
	}
	delete(s.cats, name)
	delete(s.budgets, name)
	return s.persistLocked()
}

func (s *Store) Budgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.cats))
	for c := range s.cats {
		amount, ok := s.budgets[c]
		if !ok {
			amount = core.DefaultBudget
		}
		out = append(out, core.Budget{Category: c, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[b.Category]; !ok {
		return store.ErrNotFound
	}
	s.budgets[b.Category] = b.Amount
	return s.persistLocked()
}

func (s *Store) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	current, err := s.ListMonth(ctx, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	prevDate := core.NewCalendarDate(year, month, 1).DayBefore()
	previous, err := s.ListMonth(ctx, prevDate.Year, prevDate.Month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.MonthOverview{
		Year:          year,
		Month:         month,
		Total:         core.Total(current),
		ByCategory:    core.TotalsByCategory(current),
		PreviousTotal: core.Total(previous),
	}, nil
}

func (s *Store) SuggestCategory(_ context.Context, description string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.descCategories[strings.ToLower(description)]
	return cat, ok, nil
}

func (s *Store) Close() error { return nil }

func sortReceipts(receipts []core.Receipt) {
	sort.Slice(receipts, func(i, j int) bool {
		if c := receipts[i].Date.Compare(receipts[j].Date); c != 0 {
			return c < 0
		}
		return receipts[i].Description < receipts[j].Description
	})
}

func (s *Store) persistLocked() error {
	if s.base == "" {
		return nil
	}
	cats := make([]string, 0, len(s.cats))
	for c := range s.cats {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	budgets := map[string]int64{}
	for cat, amount := range s.budgets {
		budgets[cat] = amount.Cents
	}

	if err := writeJSON(filepath.Join(s.base, receiptsFile), s.receipts); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.base, categoriesFile), cats); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.base, budgetsFile), budgets)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
