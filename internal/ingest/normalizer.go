package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/logger"
)

// Report summarizes what happened to an export during normalization.
type Report struct {
	RowsRead    int      `json:"rowsRead"`
	RowsKept    int      `json:"rowsKept"`
	RowsDropped int      `json:"rowsDropped"`
	Refunds     int      `json:"refunds"`
	Dropped     []string `json:"dropped,omitempty"` // sample of drop reasons
}

const maxDropSamples = 20

func (r *Report) drop(reason string) {
	r.RowsDropped++
	if len(r.Dropped) < maxDropSamples {
		r.Dropped = append(r.Dropped, reason)
	}
}

// Normalizer converts raw export tables into tidy rows.
type Normalizer struct {
	logger *logger.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// Normalize maps an export to tidy (date, item, quantity) rows.
//
// Schema resolution is all-or-nothing: if the required columns cannot be
// identified the whole export is rejected with a SCHEMA error and nothing
// is ingested. Individual malformed rows are dropped and counted instead.
// Duplicate (date, item) lines are summed, refunds subtract, Sundays are
// discarded, and a day netting below zero clamps to zero.
func (n *Normalizer) Normalize(table *RawTable, sourceName string) ([]domain.TidyRow, *Report, error) {
	report := &Report{RowsRead: len(table.Rows)}

	var raw []domain.TidyRow
	var err error
	if countDateHeaders(table.Headers) >= wideThreshold {
		raw, err = n.normalizeWide(table, sourceName, report)
	} else {
		raw, err = n.normalizeLong(table, sourceName, report)
	}
	if err != nil {
		return nil, nil, err
	}

	rows := aggregate(raw)
	report.RowsKept = len(rows)

	n.logger.Info("normalized export",
		"source", sourceName,
		"rows_read", report.RowsRead,
		"rows_kept", report.RowsKept,
		"rows_dropped", report.RowsDropped,
		"refunds", report.Refunds,
	)
	return rows, report, nil
}

// normalizeLong handles the usual one-row-per-sale layout.
func (n *Normalizer) normalizeLong(table *RawTable, sourceName string, report *Report) ([]domain.TidyRow, error) {
	dateCol := findHeader(table.Headers, dateHeaders)
	itemCol := findHeader(table.Headers, itemHeaders)
	qtyCol := findHeader(table.Headers, quantityHeaders)
	variationCol := findHeader(table.Headers, variationHeaders)
	typeCol := findHeader(table.Headers, typeHeaders)

	if dateCol < 0 || itemCol < 0 || qtyCol < 0 {
		return nil, errors.SchemaWithDetails(
			"could not identify date, item and quantity columns",
			map[string]any{"headers": table.Headers},
		)
	}

	var rows []domain.TidyRow
	for i, rec := range table.Rows {
		ref := fmt.Sprintf("%s:%d", sourceName, i+2)

		date, err := parseDay(cell(rec, dateCol))
		if err != nil {
			report.drop(fmt.Sprintf("%s: bad date %q", ref, cell(rec, dateCol)))
			continue
		}
		name := itemName(cell(rec, itemCol), cell(rec, variationCol))
		if name == "" {
			report.drop(fmt.Sprintf("%s: empty item name", ref))
			continue
		}
		qty, err := parseQuantity(cell(rec, qtyCol))
		if err != nil {
			report.drop(fmt.Sprintf("%s: bad quantity %q", ref, cell(rec, qtyCol)))
			continue
		}

		// Refund rows subtract. Exports disagree on whether refunds
		// already carry a negative quantity, so only flip positive ones.
		if refundMarkers[strings.ToLower(cell(rec, typeCol))] {
			report.Refunds++
			if qty > 0 {
				qty = -qty
			}
		}

		if _, ok := domain.WeekdayOf(date); !ok {
			report.drop(fmt.Sprintf("%s: sunday", ref))
			continue
		}

		rows = append(rows, domain.TidyRow{
			Date:      date,
			ItemName:  name,
			Quantity:  qty,
			SourceRef: ref,
		})
	}
	return rows, nil
}

// normalizeWide handles the one-column-per-date layout some export tools
// produce, unpivoting each date column into its own row.
func (n *Normalizer) normalizeWide(table *RawTable, sourceName string, report *Report) ([]domain.TidyRow, error) {
	itemCol := findHeader(table.Headers, itemHeaders)
	variationCol := findHeader(table.Headers, variationHeaders)
	if itemCol < 0 {
		// Fall back to the first non-date column.
		for i, h := range table.Headers {
			if !dateLikeHeader.MatchString(h) {
				itemCol = i
				break
			}
		}
	}
	if itemCol < 0 {
		return nil, errors.SchemaWithDetails(
			"wide export has no item column",
			map[string]any{"headers": table.Headers},
		)
	}

	type dateCol struct {
		idx  int
		date time.Time
	}
	var dateCols []dateCol
	for i, h := range table.Headers {
		if !dateLikeHeader.MatchString(h) {
			continue
		}
		d, err := parseDay(h)
		if err != nil {
			return nil, errors.Schemaf("unparseable date header %q", h)
		}
		dateCols = append(dateCols, dateCol{idx: i, date: d})
	}

	// Each sheet row fans out into one tidy row per date column, so count
	// reads in unpivoted units.
	report.RowsRead = len(table.Rows) * len(dateCols)

	var rows []domain.TidyRow
	for i, rec := range table.Rows {
		name := itemName(cell(rec, itemCol), cell(rec, variationCol))
		if name == "" {
			report.RowsDropped += len(dateCols)
			continue
		}
		for _, dc := range dateCols {
			ref := fmt.Sprintf("%s:%d:%s", sourceName, i+2, table.Headers[dc.idx])

			raw := cell(rec, dc.idx)
			if raw == "" {
				// Blank cell means no sales were recorded, not zero.
				report.RowsDropped++
				continue
			}
			qty, err := parseQuantity(raw)
			if err != nil {
				report.drop(fmt.Sprintf("%s: bad quantity %q", ref, raw))
				continue
			}
			if qty <= 0 {
				// Wide exports pad non-selling days with zeros; those
				// are not observations.
				report.RowsDropped++
				continue
			}
			if _, ok := domain.WeekdayOf(dc.date); !ok {
				report.drop(fmt.Sprintf("%s: sunday", ref))
				continue
			}
			rows = append(rows, domain.TidyRow{
				Date:      dc.date,
				ItemName:  name,
				Quantity:  qty,
				SourceRef: ref,
			})
		}
	}
	return rows, nil
}

// aggregate sums duplicate (date, item) lines into one observation and
// clamps days netting below zero. Output is ordered by date then name.
func aggregate(rows []domain.TidyRow) []domain.TidyRow {
	type key struct {
		date string
		name string
	}

	sums := make(map[key]*domain.TidyRow)
	var order []key
	for _, r := range rows {
		k := key{date: domain.FormatDate(r.Date), name: domain.NormalizeItemName(r.ItemName)}
		if existing, ok := sums[k]; ok {
			existing.Quantity += r.Quantity
			continue
		}
		row := r
		sums[k] = &row
		order = append(order, k)
	}

	out := make([]domain.TidyRow, 0, len(order))
	for _, k := range order {
		row := *sums[k]
		if row.Quantity < 0 {
			row.Quantity = 0
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out
}

// findHeader returns the index of the first header matching any synonym,
// or -1.
func findHeader(headers []string, synonyms []string) int {
	for i, h := range headers {
		norm := strings.Join(strings.Fields(strings.ToLower(h)), " ")
		for _, syn := range synonyms {
			if norm == syn {
				return i
			}
		}
	}
	return -1
}

// cell returns the trimmed value at idx, tolerating ragged rows and
// idx < 0 (column absent).
func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// itemName joins the item and optional variation columns the way the
// catalog expects ("Sourdough Loaf - Sliced").
func itemName(name, variation string) string {
	name = strings.TrimSpace(name)
	variation = strings.TrimSpace(variation)
	if name == "" {
		return ""
	}
	if variation == "" || strings.EqualFold(variation, "regular") {
		return name
	}
	return name + " - " + variation
}

// dayFormats are tried in order. Slash and dash forms are day-first, the
// way the local export tools write them.
var dayFormats = []string{
	time.DateOnly,
	"2/1/2006",
	"02/01/2006",
	"2/1/06",
	"2-1-2006",
	"02-01-2006",
	"2-1-06",
}

// parseDay parses a date cell or header.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dayFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return domain.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseQuantity parses a quantity cell. Exports write integers, floats
// ("12.0") and thousand separators ("1,024").
func parseQuantity(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("fractional quantity %q", s)
	}
	return int(f), nil
}

func countDateHeaders(headers []string) int {
	n := 0
	for _, h := range headers {
		if dateLikeHeader.MatchString(h) {
			n++
		}
	}
	return n
}
