package sqlite

import (
	"testing"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

func TestCreateItem_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	mustCreateItem(t, s, "Sourdough Loaf")

	dup := domain.NewItem("item-dup", "sourdough loaf") // case-insensitive clash
	err := s.CreateItem(t.Context(), dup)
	if err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetItem(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateItem(t, s, "Almond Croissant")

	got, err := s.GetItem(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.CanonicalName != "Almond Croissant" {
		t.Errorf("got name %q", got.CanonicalName)
	}
	if !got.Active {
		t.Error("expected item to be active")
	}

	if _, err := s.GetItem(t.Context(), "item-missing"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateItem_MinBatch(t *testing.T) {
	s := newTestStore(t)
	item := mustCreateItem(t, s, "Sourdough Loaf")
	if item.MinBatch != 0 {
		t.Errorf("new item min batch = %d, want 0", item.MinBatch)
	}

	item.MinBatch = 12
	item.Touch()
	if err := s.UpdateItem(t.Context(), item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	got, err := s.GetItem(t.Context(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.MinBatch != 12 {
		t.Errorf("min batch = %d, want 12", got.MinBatch)
	}
}

func TestGetItemByName_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateItem(t, s, "Sourdough Loaf")

	got, err := s.GetItemByName(t.Context(), "SOURDOUGH LOAF")
	if err != nil {
		t.Fatalf("get item by name: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got %s, want %s", got.ID, created.ID)
	}
}

func TestListItems_OrderedByName(t *testing.T) {
	s := newTestStore(t)
	mustCreateItem(t, s, "Rye Loaf")
	mustCreateItem(t, s, "Almond Croissant")
	mustCreateItem(t, s, "baguette")

	items, err := s.ListItems(t.Context())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	want := []string{"Almond Croissant", "baguette", "Rye Loaf"}
	for i, w := range want {
		if items[i].CanonicalName != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].CanonicalName, w)
		}
	}
}

func TestAddAlias(t *testing.T) {
	s := newTestStore(t)
	item := mustCreateItem(t, s, "Sourdough Loaf")

	alias := &domain.ItemAlias{Alias: "sourdough lf", ItemID: item.ID, CreatedAt: time.Now().UTC()}
	if err := s.AddAlias(t.Context(), alias); err != nil {
		t.Fatalf("add alias: %v", err)
	}

	// Duplicate alias is rejected.
	if err := s.AddAlias(t.Context(), alias); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	aliases, err := s.ListItemAliases(t.Context(), item.ID)
	if err != nil {
		t.Fatalf("list item aliases: %v", err)
	}
	if len(aliases) != 1 || aliases[0] != "sourdough lf" {
		t.Errorf("got aliases %v", aliases)
	}
}

func TestMergeItems(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	source := mustCreateItem(t, s, "Sourdough Lf")
	target := mustCreateItem(t, s, "Sourdough Loaf")

	// Overlapping day (both sold on the 3rd) plus one source-only day.
	records := []*domain.SaleRecord{
		{Date: date(t, "2026-08-03"), ItemID: source.ID, Quantity: 10},
		{Date: date(t, "2026-08-03"), ItemID: target.ID, Quantity: 30},
		{Date: date(t, "2026-08-04"), ItemID: source.ID, Quantity: 7},
	}
	if err := s.AppendSales(ctx, records); err != nil {
		t.Fatalf("append sales: %v", err)
	}

	if err := s.MergeItems(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("merge items: %v", err)
	}

	// Source item is gone.
	if _, err := s.GetItem(ctx, source.ID); err != store.ErrNotFound {
		t.Errorf("expected source deleted, got %v", err)
	}

	// Sales folded into the target: 40 on the overlapping day, 7 moved.
	sales, err := s.ListSales(ctx, target.ID, date(t, "2026-08-01"), date(t, "2026-08-31"))
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales rows, got %d", len(sales))
	}
	if sales[0].Quantity != 40 {
		t.Errorf("overlapping day quantity = %d, want 40", sales[0].Quantity)
	}
	if sales[1].Quantity != 7 {
		t.Errorf("moved day quantity = %d, want 7", sales[1].Quantity)
	}

	// Source's canonical name became an alias of the target.
	aliases, err := s.ListItemAliases(ctx, target.ID)
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	found := false
	for _, a := range aliases {
		if a == "sourdough lf" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected source name alias, got %v", aliases)
	}
}

func TestMergeItems_SelfMerge(t *testing.T) {
	s := newTestStore(t)
	item := mustCreateItem(t, s, "Baguette")

	err := s.MergeItems(t.Context(), item.ID, item.ID)
	if err == nil {
		t.Fatal("expected error merging item into itself")
	}
}
