package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

// AppendSales writes resolved sales rows in one transaction. A row for an
// existing (date, item) pair replaces the stored quantity, so re-ingesting
// the same export is a no-op and re-uploading a corrected export heals
// the history.
func (s *Store) AppendSales(ctx context.Context, records []*domain.SaleRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales (date, item_id, quantity, source_ref)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date, item_id) DO UPDATE SET
			quantity = excluded.quantity,
			source_ref = excluded.source_ref`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			formatDate(r.Date), r.ItemID, r.Quantity, r.SourceRef,
		); err != nil {
			return fmt.Errorf("insert sale %s/%s: %w", formatDate(r.Date), r.ItemID, err)
		}
	}

	return tx.Commit()
}

// scanSale scans a sales row.
func scanSale(scanner interface{ Scan(dest ...any) error }) (*domain.SaleRecord, error) {
	var r domain.SaleRecord
	var date string

	if err := scanner.Scan(&date, &r.ItemID, &r.Quantity, &r.SourceRef); err != nil {
		return nil, err
	}

	var err error
	r.Date, err = parseDate(date)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListSales returns one item's sales in [from, to], oldest first.
func (s *Store) ListSales(ctx context.Context, itemID string, from, to time.Time) ([]*domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, item_id, quantity, source_ref FROM sales
		WHERE item_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		itemID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSales(rows)
}

// ListAllSales returns every item's sales in [from, to], ordered by date
// then item.
func (s *Store) ListAllSales(ctx context.Context, from, to time.Time) ([]*domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, item_id, quantity, source_ref FROM sales
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, item_id ASC`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSales(rows)
}

func collectSales(rows *sql.Rows) ([]*domain.SaleRecord, error) {
	var records []*domain.SaleRecord
	for rows.Next() {
		r, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if records == nil {
		records = []*domain.SaleRecord{}
	}
	return records, nil
}

// LatestSaleDate returns the most recent sales date across all items.
// Returns store.ErrNotFound when no sales exist yet.
func (s *Store) LatestSaleDate(ctx context.Context) (time.Time, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM sales`).Scan(&date)
	if err != nil {
		return time.Time{}, err
	}
	if !date.Valid {
		return time.Time{}, store.ErrNotFound
	}
	return parseDate(date.String)
}

// CountSales returns how many daily observations exist for an item.
func (s *Store) CountSales(ctx context.Context, itemID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales WHERE item_id = ?`, itemID).Scan(&n)
	return n, err
}
