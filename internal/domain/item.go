package domain

import (
	"strings"
	"time"
)

// Item is a canonical catalog entry. All sales rows reference an item by
// ID; raw export names map onto items through aliases.
type Item struct {
	ID            string `json:"id"`
	CanonicalName string `json:"canonicalName"`
	Category      string `json:"category,omitempty"`
	Active        bool   `json:"active"`
	// MinBatch overrides the configured batch floor for this item when
	// positive; zero means use the default.
	MinBatch  int       `json:"minBatch,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewItem creates an active item with the given canonical name.
func NewItem(id, name string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:            id,
		CanonicalName: name,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Touch updates the modification timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().UTC()
}

// ItemAlias maps a normalized raw export name to an item.
type ItemAlias struct {
	Alias     string    `json:"alias"`
	ItemID    string    `json:"itemId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeItemName canonicalizes a raw product name for alias matching:
// lowercase, trimmed, inner whitespace collapsed to single spaces.
func NormalizeItemName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
