package domain

import "time"

// TidyRow is one normalized sales observation before item resolution.
// ItemName is the raw export name; resolution maps it to an item ID.
type TidyRow struct {
	Date     time.Time `json:"date"`
	ItemName string    `json:"itemName"`
	Quantity int       `json:"quantity"`
	// SourceRef identifies the originating export row for audits,
	// e.g. "sales-w34.csv:17".
	SourceRef string `json:"sourceRef"`
}

// SaleRecord is a resolved daily sales total for one item.
type SaleRecord struct {
	Date      time.Time `json:"date"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	SourceRef string    `json:"sourceRef,omitempty"`
}

// ImportBatch summarizes one processed export file.
type ImportBatch struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	RowsRead     int       `json:"rowsRead"`
	RowsKept     int       `json:"rowsKept"`
	RowsDropped  int       `json:"rowsDropped"`
	Refunds      int       `json:"refunds"`
	ItemsCreated int       `json:"itemsCreated"`
	FirstDate    time.Time `json:"firstDate"`
	LastDate     time.Time `json:"lastDate"`
	CreatedAt    time.Time `json:"createdAt"`
}
