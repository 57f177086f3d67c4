package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

const importColumns = `id, filename, rows_read, rows_kept, rows_dropped, refunds, items_created, first_date, last_date, created_at`

func scanImportBatch(scanner interface{ Scan(dest ...any) error }) (*domain.ImportBatch, error) {
	var b domain.ImportBatch
	var firstDate, lastDate, createdAt string

	err := scanner.Scan(
		&b.ID,
		&b.Filename,
		&b.RowsRead,
		&b.RowsKept,
		&b.RowsDropped,
		&b.Refunds,
		&b.ItemsCreated,
		&firstDate,
		&lastDate,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if b.FirstDate, err = parseDate(firstDate); err != nil {
		return nil, err
	}
	if b.LastDate, err = parseDate(lastDate); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateImportBatch records a processed export file.
func (s *Store) CreateImportBatch(ctx context.Context, batch *domain.ImportBatch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_batches (`+importColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Filename,
		batch.RowsRead,
		batch.RowsKept,
		batch.RowsDropped,
		batch.Refunds,
		batch.ItemsCreated,
		formatDate(batch.FirstDate),
		formatDate(batch.LastDate),
		formatTime(batch.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetImportBatch retrieves an import batch by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetImportBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+importColumns+` FROM import_batches WHERE id = ?`, id)

	b, err := scanImportBatch(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListImportBatches returns all import batches, newest first.
func (s *Store) ListImportBatches(ctx context.Context) ([]*domain.ImportBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+importColumns+` FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*domain.ImportBatch
	for rows.Next() {
		b, err := scanImportBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if batches == nil {
		batches = []*domain.ImportBatch{}
	}
	return batches, nil
}
