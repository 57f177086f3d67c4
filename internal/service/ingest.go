// Package service implements the application's use cases on top of the
// store, keeping transport concerns out and domain rules in.
package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/id"
	"github.com/bakesight/bakesight-server/internal/ingest"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/resolver"
	"github.com/bakesight/bakesight-server/internal/store"
)

// IngestService turns raw sales exports into canonical sales history:
// read, normalize, resolve item names, aggregate, append.
type IngestService struct {
	store      store.Store
	logger     *logger.Logger
	cfg        config.ForecastConfig
	normalizer *ingest.Normalizer
	canonRules []resolver.Rule
}

// NewIngestService creates a new ingest service.
func NewIngestService(st store.Store, cfg config.ForecastConfig, log *logger.Logger) *IngestService {
	return &IngestService{
		store:      st,
		logger:     log,
		cfg:        cfg,
		normalizer: ingest.NewNormalizer(log),
	}
}

// SetCanonRules installs canonicalization rules applied during name
// resolution, ahead of fuzzy matching.
func (s *IngestService) SetCanonRules(rules []resolver.Rule) {
	s.canonRules = rules
}

// IngestResult reports one processed export: the recorded batch, the
// normalization report, and any rows held out because their item name
// matched two catalog items too closely to assign.
type IngestResult struct {
	Batch   *domain.ImportBatch `json:"batch"`
	Report  *ingest.Report      `json:"report"`
	HeldOut []string            `json:"heldOut,omitempty"`
}

// Ingest processes one export file. Schema problems reject the whole
// file with nothing written; ambiguous item names hold out just their
// rows. Re-ingesting the same export is a no-op by construction.
func (s *IngestService) Ingest(ctx context.Context, filename string, r io.Reader) (*IngestResult, error) {
	table, err := ingest.ReadTable(r)
	if err != nil {
		return nil, err
	}

	rows, report, err := s.normalizer.Normalize(table, filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Validationf("%s contains no usable sales rows", filename)
	}

	res, err := resolver.New(ctx, s.store, s.logger, s.cfg.FuzzyThreshold, s.cfg.FuzzyMargin)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	res.UseRules(s.canonRules)

	type key struct {
		date   int64
		itemID string
	}
	totals := make(map[key]*domain.SaleRecord)
	var heldOut []string

	for _, row := range rows {
		resolved, rerr := res.Resolve(ctx, row.ItemName)
		if rerr != nil {
			if errors.Is(rerr, errors.ErrAmbiguous) {
				heldOut = append(heldOut, rerr.Error())
				continue
			}
			return nil, rerr
		}

		k := key{date: row.Date.Unix(), itemID: resolved.ItemID}
		if rec, ok := totals[k]; ok {
			// Two raw names can land on the same item via aliases.
			rec.Quantity += row.Quantity
			continue
		}
		totals[k] = &domain.SaleRecord{
			Date:      row.Date,
			ItemID:    resolved.ItemID,
			Quantity:  row.Quantity,
			SourceRef: row.SourceRef,
		}
	}

	records := make([]*domain.SaleRecord, 0, len(totals))
	for _, rec := range totals {
		if rec.Quantity < 0 {
			rec.Quantity = 0
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ItemID < records[j].ItemID
	})

	if len(records) == 0 {
		return nil, errors.Validationf("%s: every row was held out for ambiguous item names", filename)
	}

	if err := s.store.AppendSales(ctx, records); err != nil {
		return nil, fmt.Errorf("append sales: %w", err)
	}

	batchID, err := id.Generate(id.PrefixImport)
	if err != nil {
		return nil, fmt.Errorf("generate batch ID: %w", err)
	}
	batch := &domain.ImportBatch{
		ID:           batchID,
		Filename:     filename,
		RowsRead:     report.RowsRead,
		RowsKept:     report.RowsKept - len(heldOut),
		RowsDropped:  report.RowsDropped + len(heldOut),
		Refunds:      report.Refunds,
		ItemsCreated: res.Created(),
		FirstDate:    records[0].Date,
		LastDate:     records[len(records)-1].Date,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateImportBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("record import batch: %w", err)
	}

	s.logger.Info("ingested sales export",
		"batch_id", batch.ID,
		"file", filename,
		"rows_read", batch.RowsRead,
		"rows_kept", batch.RowsKept,
		"rows_dropped", batch.RowsDropped,
		"items_created", batch.ItemsCreated,
		"held_out", len(heldOut),
	)

	return &IngestResult{Batch: batch, Report: report, HeldOut: heldOut}, nil
}

// GetImportBatch returns one recorded import batch.
func (s *IngestService) GetImportBatch(ctx context.Context, batchID string) (*domain.ImportBatch, error) {
	return s.store.GetImportBatch(ctx, batchID)
}

// ListImportBatches returns recorded batches, newest first.
func (s *IngestService) ListImportBatches(ctx context.Context) ([]*domain.ImportBatch, error) {
	return s.store.ListImportBatches(ctx)
}
