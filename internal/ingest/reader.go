package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// RawTable is a parsed export before any schema interpretation.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable parses a CSV export. It strips a UTF-8 BOM, falls back to
// Windows-1252 when the bytes are not valid UTF-8 (older export tools
// write it), and tolerates ragged rows.
func ReadTable(r io.Reader) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252: %w", err)
		}
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	table := &RawTable{}
	for _, rec := range records {
		if isBlankRow(rec) {
			continue
		}
		if table.Headers == nil {
			table.Headers = trimAll(rec)
			continue
		}
		table.Rows = append(table.Rows, trimAll(rec))
	}

	if table.Headers == nil {
		return nil, fmt.Errorf("export has no header row")
	}
	return table, nil
}

func isBlankRow(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, cell := range rec {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
