package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/niagalab/niaga/internal/config"
	"github.com/niagalab/niaga/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCfg(workers int) *config.Config {
	return &config.Config{
		Forecast: config.Forecast{
			HorizonWeeks: 2,
			LookBack:     2,
			Estimators:   20,
			LearningRate: 0.1,
			MaxDepth:     3,
			MinLeaf:      1,
		},
		Basket: config.Basket{
			MinSupport:   0.1,
			MinLift:      1.5,
			MinItemCount: 1,
		},
		Recommend: config.Recommend{
			GrowthThreshold:  0.1,
			DeclineThreshold: 0.1,
			AnchorMinLift:    1.5,
			MinConfidence:    0.3,
			DeadStockPool:    5,
		},
		Pipeline: config.Pipeline{Workers: workers},
	}
}

// seedTransactions writes 12 weeks of data per region: every week one
// invoice with BREAD and BUTTER together and one invoice with MILK
// alone, so mining finds a clean BREAD/BUTTER association (lift 2).
func seedTransactions(t *testing.T, db *database.DB, regions []string) {
	t.Helper()
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	var txs []database.Transaction
	inv := 0
	for _, region := range regions {
		for week := 0; week < 12; week++ {
			date := start.AddDate(0, 0, 7*week)
			inv++
			pair := string(rune('A'+inv)) + region
			txs = append(txs,
				database.Transaction{Invoice: pair, Date: date, Region: region, Category: "BREAD", Quantity: float64(10 + week)},
				database.Transaction{Invoice: pair, Date: date, Region: region, Category: "BUTTER", Quantity: 5},
			)
			inv++
			solo := string(rune('A'+inv)) + region
			txs = append(txs,
				database.Transaction{Invoice: solo, Date: date, Region: region, Category: "MILK", Quantity: 8},
			)
		}
	}
	if err := db.ReplaceTransactions(txs); err != nil {
		t.Fatalf("failed to seed transactions: %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	db := openTestDB(t)
	seedTransactions(t, db, []string{"JAWA"})

	result := New(testCfg(1), db).Run()
	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Forecasts == 0 {
		t.Error("expected forecast rows stored")
	}
	if stats.FutureForecasts != 3*2 {
		t.Errorf("expected 6 future rows (3 categories x 2 weeks), got %d", stats.FutureForecasts)
	}
	if stats.Rules == 0 {
		t.Error("expected association rules stored")
	}
	if stats.Reports != 1 {
		t.Errorf("expected 1 report, got %d", stats.Reports)
	}

	rep, err := db.GetLatestReport()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep == nil || rep.RegionCount != 1 {
		t.Errorf("report = %+v, expected 1 region", rep)
	}
}

func TestRunParallelMatchesRegionOrder(t *testing.T) {
	db := openTestDB(t)
	regions := []string{"JAWA", "SUMATERA", "KALIMANTAN"}
	seedTransactions(t, db, regions)

	result := New(testCfg(3), db).Run()
	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}

	// Stored rows must follow ingestion region order even when regions
	// are processed concurrently.
	forecasts, err := db.GetForecasts(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := []string{}
	for _, f := range forecasts {
		if len(seen) == 0 || seen[len(seen)-1] != f.Region {
			seen = append(seen, f.Region)
		}
	}
	if len(seen) != len(regions) {
		t.Fatalf("region blocks = %v, expected one contiguous block per region", seen)
	}
	for i, r := range regions {
		if seen[i] != r {
			t.Errorf("block %d = %s, expected %s", i, seen[i], r)
		}
	}
}

func TestRunEmptyDatabaseFails(t *testing.T) {
	db := openTestDB(t)

	result := New(testCfg(1), db).Run()
	if !result.Failed() {
		t.Error("expected failure with no transactions loaded")
	}
}

func TestRunReplacesPreviousResults(t *testing.T) {
	db := openTestDB(t)
	seedTransactions(t, db, []string{"JAWA"})

	if result := New(testCfg(1), db).Run(); result.Failed() {
		t.Fatalf("first run failed: %+v", result.Steps)
	}
	firstStats, _ := db.GetStats()

	if result := New(testCfg(1), db).Run(); result.Failed() {
		t.Fatalf("second run failed: %+v", result.Steps)
	}
	secondStats, _ := db.GetStats()

	if secondStats.Forecasts != firstStats.Forecasts {
		t.Errorf("forecast count changed across identical runs: %d vs %d", firstStats.Forecasts, secondStats.Forecasts)
	}
	if secondStats.Reports != 2 {
		t.Errorf("expected 2 reports kept, got %d", secondStats.Reports)
	}
}
