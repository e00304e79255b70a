// Package stats computes spending aggregates over a user's ingested
// receipts. Aggregation happens in memory over the repository's row
// stream rather than in warehouse SQL, so the grouping rules are unit
// testable without a live dataset.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/logger"
)

// ErrQuery marks a failure to read receipts from the warehouse.
var ErrQuery = errors.New("stats query failed")

// ReceiptSource is the read side of the receipts store.
type ReceiptSource interface {
	ListReceiptsByUser(ctx context.Context, userID string) ([]*infra.ReceiptRow, error)
}

// MonthlyBucket is one month+category cell of the monthly breakdown.
// Amount is truncated to whole currency units.
type MonthlyBucket struct {
	Month    string `json:"month"`
	Category string `json:"category"`
	Amount   int    `json:"amount"`
}

// CategoryBucket is one category total for the current month.
type CategoryBucket struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
}

// Service answers aggregate spending queries for a single user.
type Service struct {
	source ReceiptSource
}

// NewService creates a stats service over the given receipt source.
func NewService(source ReceiptSource) *Service {
	return &Service{source: source}
}

// MonthlyByCategory returns per-month, per-category spending totals.
// Receipts are grouped by month of year regardless of year, so a
// January 2024 receipt and a January 2025 receipt land in the same
// bucket. Buckets are ordered by calendar month, then category name.
// A user with no receipts gets an empty slice, not an error.
func (s *Service) MonthlyByCategory(ctx context.Context, userID string) ([]MonthlyBucket, error) {
	rows, err := s.source.ListReceiptsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("MonthlyByCategory %s: %w: %v", userID, ErrQuery, err)
	}

	type cell struct {
		month    time.Month
		category string
	}
	totals := make(map[cell]float64)
	for _, row := range rows {
		totals[cell{month: row.ReceiptDate.Month, category: row.Category}] += row.TotalAmount
	}

	cells := make([]cell, 0, len(totals))
	for c := range totals {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].month != cells[j].month {
			return cells[i].month < cells[j].month
		}
		return cells[i].category < cells[j].category
	})

	buckets := make([]MonthlyBucket, 0, len(cells))
	for _, c := range cells {
		buckets = append(buckets, MonthlyBucket{
			Month:    c.month.String(),
			Category: c.category,
			Amount:   int(totals[c]),
		})
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("user_id", userID).
		Int("receipts", len(rows)).
		Int("buckets", len(buckets)).
		Msg("Computed monthly spending breakdown")
	return buckets, nil
}

// CategoryForCurrentMonth returns per-category totals for the month of
// year the query runs in, ordered by category name.
func (s *Service) CategoryForCurrentMonth(ctx context.Context, userID string) ([]CategoryBucket, error) {
	return s.categoryForMonth(ctx, userID, time.Now().Month())
}

func (s *Service) categoryForMonth(ctx context.Context, userID string, month time.Month) ([]CategoryBucket, error) {
	rows, err := s.source.ListReceiptsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("categoryForMonth %s: %w: %v", userID, ErrQuery, err)
	}

	totals := make(map[string]float64)
	for _, row := range rows {
		if row.ReceiptDate.Month != month {
			continue
		}
		totals[row.Category] += row.TotalAmount
	}

	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	buckets := make([]CategoryBucket, 0, len(categories))
	for _, c := range categories {
		buckets = append(buckets, CategoryBucket{
			Category: c,
			Amount:   int(totals[c]),
		})
	}
	return buckets, nil
}
