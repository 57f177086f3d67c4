// Package main provides a tool to seed the database with demo sales history.
//
// It creates a small bakery catalog and generates weeks of weekday sales
// with realistic patterns (weekend lift, noise, weather), so baselines,
// training, and forecasts have something to chew on.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/bakesight
//	go run ./cmd/seed --data-path ~/bakesight --weeks 26
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/id"
	"github.com/bakesight/bakesight-server/internal/store/sqlite"
)

var (
	dataPath = flag.String("data-path", "", "Base path for data storage (or DATA_PATH env)")
	weeks    = flag.Int("weeks", 12, "Weeks of history to generate")
)

// seedItem describes one catalog entry to generate sales for.
type seedItem struct {
	name    string
	aliases []string
	base    float64 // typical Monday quantity
	weekend float64 // multiplier applied to Fri/Sat
}

var catalog = []seedItem{
	{"Sourdough Loaf", []string{"sour dough loaf", "sourdough lf"}, 40, 1.4},
	{"Almond Croissant", []string{"almond crois."}, 24, 1.5},
	{"Rye Bread", nil, 18, 1.2},
	{"Cinnamon Roll", []string{"cin roll"}, 30, 1.6},
	{"Baguette", nil, 35, 1.3},
	{"Carrot Cake Slice", []string{"carrot cake"}, 12, 1.5},
}

func main() {
	flag.Parse()

	base := *dataPath
	if base == "" {
		base = os.Getenv("DATA_PATH")
	}
	if base == "" {
		base = os.ExpandEnv("$HOME/bakesight")
	}

	dbPath := filepath.Join(base, "bakesight.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	st, err := sqlite.Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// History covers complete weeks ending last Saturday.
	lastMonday := domain.WeekStart(time.Now().UTC()).AddDate(0, 0, -7)
	firstMonday := lastMonday.AddDate(0, 0, -7*(*weeks-1))

	var records []*domain.SaleRecord
	for _, si := range catalog {
		if existing, _ := st.GetItemByName(ctx, si.name); existing != nil {
			fmt.Printf("  Item %q already exists, skipping\n", si.name)
			continue
		}
		item := domain.NewItem(id.MustGenerate(id.PrefixItem), si.name)
		if err := st.CreateItem(ctx, item); err != nil {
			log.Fatalf("Failed to create item %q: %v", si.name, err)
		}
		for _, a := range si.aliases {
			alias := &domain.ItemAlias{
				Alias:     domain.NormalizeItemName(a),
				ItemID:    item.ID,
				CreatedAt: time.Now().UTC(),
			}
			if err := st.AddAlias(ctx, alias); err != nil {
				log.Printf("  Failed to add alias %q: %v", a, err)
			}
		}

		count := 0
		for monday := firstMonday; !monday.After(lastMonday); monday = monday.AddDate(0, 0, 7) {
			for day := domain.Monday; day <= domain.Saturday; day++ {
				qty := si.base
				if day >= domain.Friday {
					qty *= si.weekend
				}
				// +/-15% noise
				qty *= 1 + (rng.Float64()-0.5)*0.3
				records = append(records, &domain.SaleRecord{
					Date:      monday.AddDate(0, 0, int(day)),
					ItemID:    item.ID,
					Quantity:  int(qty + 0.5),
					SourceRef: "seed",
				})
				count++
			}
		}
		fmt.Printf("  Created item: %s (%d sale days)\n", si.name, count)
	}

	if len(records) > 0 {
		if err := st.AppendSales(ctx, records); err != nil {
			log.Fatalf("Failed to append sales: %v", err)
		}
		fmt.Printf("Appended %d sale records\n", len(records))
	}

	seedWeather(ctx, st, rng, firstMonday, lastMonday)
	seedEvents(ctx, st, firstMonday, lastMonday)

	fmt.Println("\nSeeding complete!")
}

// seedWeather fills in daily max temperature and rainfall for the
// generated range. Mild central-European summer-ish numbers.
func seedWeather(ctx context.Context, st *sqlite.Store, rng *rand.Rand, from, to time.Time) {
	var days []*domain.WeatherDay
	for d := from; !d.After(to.AddDate(0, 0, 5)); d = d.AddDate(0, 0, 1) {
		temp := 16 + rng.Float64()*14
		rain := 0.0
		if rng.Float64() < 0.3 {
			rain = rng.Float64() * 12
		}
		days = append(days, &domain.WeatherDay{
			Date:    d,
			MaxTemp: &temp,
			RainMM:  &rain,
			Source:  "seed",
		})
	}
	if err := st.UpsertWeather(ctx, days); err != nil {
		log.Printf("Failed to upsert weather: %v", err)
		return
	}
	fmt.Printf("Upserted %d weather days\n", len(days))
}

// seedEvents drops a holiday and a market day into the range so the
// adjustment path has signals to pick up.
func seedEvents(ctx context.Context, st *sqlite.Store, from, to time.Time) {
	mid := from.AddDate(0, 0, (int(to.Sub(from).Hours()/24)/2/7)*7) // a Monday near the middle
	events := []*domain.CalendarEvent{
		{Date: mid, Kind: domain.EventHoliday, Name: "Bank Holiday", Multiplier: 1.3},
		{Date: to.AddDate(0, 0, 5), Kind: domain.EventLocal, Name: "Farmers Market", Multiplier: 1.2},
	}
	if err := st.UpsertEvents(ctx, events); err != nil {
		log.Printf("Failed to upsert events: %v", err)
		return
	}
	fmt.Printf("Upserted %d calendar events\n", len(events))
}
