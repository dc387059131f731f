package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) AddReceipt(ctx context.Context, rec core.Receipt) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (id, year, month, day, description, note, category, amount_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Date.Year, rec.Date.Month, rec.Date.Day,
		rec.Description, rec.Note, rec.Category, rec.Amount.Cents)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved to SQLite",
		"id", rec.ID,
		"description", rec.Description,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"date", rec.Date.ISO())

	return nil
}

func (r *SQLiteRepository) ListMonth(ctx context.Context, year, month int) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, year, month, day, description, note, category, amount_cents
		FROM receipts
		WHERE year = ? AND month = ?
		ORDER BY year, month, day, description`,
		year, month)
	if err != nil {
		return nil, fmt.Errorf("list month receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, year, month, day, description, note, category, amount_cents
		FROM receipts
		ORDER BY year, month, day, description`)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

func scanReceipts(rows *sql.Rows) ([]core.Receipt, error) {
	var out []core.Receipt
	for rows.Next() {
		var (
			rec core.Receipt
			id  string
		)
		if err := rows.Scan(&id, &rec.Date.Year, &rec.Date.Month, &rec.Date.Day,
			&rec.Description, &rec.Note, &rec.Category, &rec.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse receipt id %q: %w", id, err)
		}
		rec.ID = parsed
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete receipt rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Receipt deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveCategory(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Explicit budget delete: the connection may run without foreign keys.
	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE category = ?`, name); err != nil {
		return fmt.Errorf("delete category budget: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Budgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(b.amount_cents, ?)
		FROM categories c
		LEFT JOIN budgets b ON b.category = c.name
		ORDER BY c.name`,
		core.DefaultBudget.Cents)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Category, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE name = ?`, b.Category).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if exists == 0 {
		return store.ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount_cents) VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.Category, b.Amount.Cents); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM receipts WHERE year = ? AND month = ?`,
		year, month).Scan(&overview.Total.Cents)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("sum month total: %w", err)
	}

	prev := core.NewCalendarDate(year, month, 1).DayBefore()
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM receipts WHERE year = ? AND month = ?`,
		prev.Year, prev.Month).Scan(&overview.PreviousTotal.Cents)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("sum previous month total: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total
		FROM receipts
		WHERE year = ? AND month = ?
		GROUP BY category
		ORDER BY total DESC, category`,
		year, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return core.MonthOverview{}, fmt.Errorf("scan category total: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	if err := rows.Err(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("iterate category totals: %w", err)
	}
	return overview, nil
}

func (r *SQLiteRepository) SuggestCategory(ctx context.Context, description string) (string, bool, error) {
	var category string
	err := r.db.QueryRowContext(ctx, `
		SELECT category FROM receipts
		WHERE lower(description) = lower(?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		description).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("suggest category: %w", err)
	}
	return category, true, nil
}
