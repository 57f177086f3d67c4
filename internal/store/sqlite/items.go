package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `id, canonical_name, category, active, min_batch, created_at, updated_at`

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a domain.Item.
func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	var it domain.Item

	var (
		active    int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&it.ID,
		&it.CanonicalName,
		&it.Category,
		&active,
		&it.MinBatch,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.Active = active != 0
	it.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	it.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &it, nil
}

// CreateItem inserts a new catalog item.
// Returns store.ErrAlreadyExists on duplicate canonical name.
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, canonical_name, category, active, min_batch, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CanonicalName,
		item.Category,
		boolInt(item.Active),
		item.MinBatch,
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if err := s.searchIndexer.IndexItem(item, nil); err != nil {
		s.logger.Warn("index item", "item_id", item.ID, "error", err)
	}
	return nil
}

// GetItem retrieves an item by its ID.
// Returns store.ErrNotFound if the item does not exist.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// GetItemByName retrieves an item by canonical name, case-insensitively.
// Returns store.ErrNotFound if the item does not exist.
func (s *Store) GetItemByName(ctx context.Context, name string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE canonical_name = ? COLLATE NOCASE`, name)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateItem updates an existing item.
func (s *Store) UpdateItem(ctx context.Context, item *domain.Item) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET canonical_name = ?, category = ?, active = ?, min_batch = ?, updated_at = ?
		WHERE id = ?`,
		item.CanonicalName,
		item.Category,
		boolInt(item.Active),
		item.MinBatch,
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	aliases, err := s.ListItemAliases(ctx, item.ID)
	if err == nil {
		if err := s.searchIndexer.IndexItem(item, aliases); err != nil {
			s.logger.Warn("index item", "item_id", item.ID, "error", err)
		}
	}
	return nil
}

// ListItems returns all items ordered by canonical name.
func (s *Store) ListItems(ctx context.Context) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY canonical_name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*domain.Item{}
	}

	return items, nil
}

// AddAlias maps a normalized raw name to an item.
// Returns store.ErrAlreadyExists if the alias is already mapped.
func (s *Store) AddAlias(ctx context.Context, alias *domain.ItemAlias) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_aliases (alias, item_id, created_at)
		VALUES (?, ?, ?)`,
		alias.Alias,
		alias.ItemID,
		formatTime(alias.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	item, err := s.GetItem(ctx, alias.ItemID)
	if err == nil {
		aliases, aerr := s.ListItemAliases(ctx, item.ID)
		if aerr == nil {
			if ierr := s.searchIndexer.IndexItem(item, aliases); ierr != nil {
				s.logger.Warn("index item", "item_id", item.ID, "error", ierr)
			}
		}
	}
	return nil
}

// ListAliases returns every alias mapping, ordered by alias.
func (s *Store) ListAliases(ctx context.Context) ([]*domain.ItemAlias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alias, item_id, created_at FROM item_aliases ORDER BY alias ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []*domain.ItemAlias
	for rows.Next() {
		var a domain.ItemAlias
		var createdAt string
		if err := rows.Scan(&a.Alias, &a.ItemID, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if aliases == nil {
		aliases = []*domain.ItemAlias{}
	}

	return aliases, nil
}

// ListItemAliases returns the aliases mapped to one item.
func (s *Store) ListItemAliases(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alias FROM item_aliases WHERE item_id = ? ORDER BY alias ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}

// MergeItems folds the source item into the target in one transaction:
// sales move to the target (overlapping days are summed), aliases are
// re-pointed, the source's canonical name becomes an alias of the
// target, and both items' models are dropped since their training data
// changed. The source item is deleted.
func (s *Store) MergeItems(ctx context.Context, sourceID, targetID string) error {
	if sourceID == targetID {
		return store.ErrInvalidInput.WithMessage("cannot merge an item into itself")
	}

	source, err := s.GetItem(ctx, sourceID)
	if err != nil {
		return err
	}
	target, err := s.GetItem(ctx, targetID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Sum quantities on days both items sold, then drop the source rows
	// for those days and re-point the rest.
	if _, err := tx.ExecContext(ctx, `
		UPDATE sales SET quantity = quantity + (
			SELECT src.quantity FROM sales src
			WHERE src.item_id = ? AND src.date = sales.date
		)
		WHERE item_id = ? AND date IN (SELECT date FROM sales WHERE item_id = ?)`,
		sourceID, targetID, sourceID,
	); err != nil {
		return fmt.Errorf("merge overlapping sales: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM sales WHERE item_id = ? AND date IN (SELECT date FROM sales WHERE item_id = ?)`,
		sourceID, targetID,
	); err != nil {
		return fmt.Errorf("drop merged sales: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sales SET item_id = ? WHERE item_id = ?`, targetID, sourceID,
	); err != nil {
		return fmt.Errorf("repoint sales: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE item_aliases SET item_id = ? WHERE item_id = ?`, targetID, sourceID,
	); err != nil {
		return fmt.Errorf("repoint aliases: %w", err)
	}

	now := formatTime(time.Now().UTC())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO item_aliases (alias, item_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (alias) DO UPDATE SET item_id = excluded.item_id`,
		domain.NormalizeItemName(source.CanonicalName), targetID, now,
	); err != nil {
		return fmt.Errorf("alias source name: %w", err)
	}

	// Both models trained on pre-merge histories.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM models WHERE item_id IN (?, ?)`, sourceID, targetID,
	); err != nil {
		return fmt.Errorf("drop models: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete source item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET updated_at = ? WHERE id = ?`, now, targetID,
	); err != nil {
		return fmt.Errorf("touch target item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}

	if err := s.searchIndexer.DeleteItem(sourceID); err != nil {
		s.logger.Warn("deindex merged item", "item_id", sourceID, "error", err)
	}
	aliases, err := s.ListItemAliases(ctx, targetID)
	if err == nil {
		if err := s.searchIndexer.IndexItem(target, aliases); err != nil {
			s.logger.Warn("index item", "item_id", targetID, "error", err)
		}
	}
	return nil
}

// boolInt converts a bool to its SQLite integer form.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
