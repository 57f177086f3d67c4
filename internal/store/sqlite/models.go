package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

const modelColumns = `item_id, algorithm, parameters, features, samples, cv_error, low_confidence, trained_at`

func scanModel(scanner interface{ Scan(dest ...any) error }) (*domain.ItemModel, error) {
	var m domain.ItemModel
	var (
		features      string
		cvError       sql.NullFloat64
		lowConfidence int
		trainedAt     string
	)

	err := scanner.Scan(
		&m.ItemID,
		&m.Algorithm,
		&m.Parameters,
		&features,
		&m.Samples,
		&cvError,
		&lowConfidence,
		&trainedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(features), &m.Features); err != nil {
		return nil, fmt.Errorf("unmarshal feature schema: %w", err)
	}
	m.CVError = floatPtr(cvError)
	m.LowConfidence = lowConfidence != 0
	if m.TrainedAt, err = parseTime(trainedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveModel stores a trained model for an item, superseding any previous
// one in place.
func (s *Store) SaveModel(ctx context.Context, model *domain.ItemModel) error {
	features, err := json.Marshal(model.Features)
	if err != nil {
		return fmt.Errorf("marshal feature schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (`+modelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			algorithm = excluded.algorithm,
			parameters = excluded.parameters,
			features = excluded.features,
			samples = excluded.samples,
			cv_error = excluded.cv_error,
			low_confidence = excluded.low_confidence,
			trained_at = excluded.trained_at`,
		model.ItemID,
		model.Algorithm,
		model.Parameters,
		string(features),
		model.Samples,
		nullFloat(model.CVError),
		boolInt(model.LowConfidence),
		formatTime(model.TrainedAt),
	)
	return err
}

// GetModel retrieves the current model for an item.
// Returns store.ErrNotFound if no model has been trained.
func (s *Store) GetModel(ctx context.Context, itemID string) (*domain.ItemModel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE item_id = ?`, itemID)

	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListModels returns every trained model.
func (s *Store) ListModels(ctx context.Context) ([]*domain.ItemModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models ORDER BY item_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*domain.ItemModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if models == nil {
		models = []*domain.ItemModel{}
	}
	return models, nil
}

// DeleteModel drops an item's model. Deleting a missing model is not an
// error.
func (s *Store) DeleteModel(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE item_id = ?`, itemID)
	return err
}
