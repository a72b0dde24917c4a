package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/niagalab/niaga/internal/database"
)

// weeklyTx emits one transaction per week for n weeks starting at start,
// so the weekly series is fully observed.
func weeklyTx(region, category string, start time.Time, quantities []float64) []database.Transaction {
	var txs []database.Transaction
	for i, q := range quantities {
		txs = append(txs, database.Transaction{
			Invoice:  "INV-1",
			Date:     start.AddDate(0, 0, 7*i),
			Region:   region,
			Category: category,
			Quantity: q,
		})
	}
	return txs
}

func testConfig() Config {
	return Config{Horizon: 2, LookBack: 2, Estimators: 20, LearningRate: 0.1, MaxDepth: 3, MinLeaf: 1}
}

func TestRegionEmitsHistoricalAndFutureRows(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC) // a Sunday
	quantities := []float64{10, 12, 11, 13, 12, 14, 13, 15}
	txs := weeklyTx("JAWA", "BREAD", start, quantities)

	engine := New(testConfig())
	forecasts, metrics, err := engine.Region(txs, "JAWA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var hist, future int
	for _, f := range forecasts {
		if f.IsForecast {
			future++
			if f.Actual != nil {
				t.Error("future row must not carry an actual value")
			}
			if f.Predicted < 0 {
				t.Errorf("negative prediction %f", f.Predicted)
			}
		} else {
			hist++
			if f.Actual == nil {
				t.Fatal("historical row must carry an actual value")
			}
			if *f.Actual != f.Predicted {
				t.Errorf("historical row actual %f != predicted %f", *f.Actual, f.Predicted)
			}
		}
	}
	if hist != len(quantities) {
		t.Errorf("expected %d historical rows, got %d", len(quantities), hist)
	}
	if future != 2 {
		t.Errorf("expected 2 future rows, got %d", future)
	}

	if len(metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(metrics))
	}
	m := metrics[0]
	if m.Category != "BREAD" || m.Region != "JAWA" {
		t.Errorf("unexpected metric identity: %+v", m)
	}
	// Windows: i ranges LookBack..len-Horizon inclusive start, so
	// 8 - 2 - 2 + 1 = 5 training windows.
	if m.SampleSize != 5 {
		t.Errorf("expected 5 training windows, got %d", m.SampleSize)
	}
	if m.MAE < 0 || m.MAPE < 0 {
		t.Errorf("negative error metrics: %+v", m)
	}
}

func TestRegionFutureWeeksContinueTheGrid(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	txs := weeklyTx("JAWA", "BREAD", start, []float64{5, 6, 7, 8, 9, 10})

	engine := New(testConfig())
	forecasts, _, err := engine.Region(txs, "JAWA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lastHist := start.AddDate(0, 0, 7*5)
	var futureWeeks []time.Time
	for _, f := range forecasts {
		if f.IsForecast {
			futureWeeks = append(futureWeeks, f.Week)
		}
	}
	if len(futureWeeks) != 2 {
		t.Fatalf("expected 2 future weeks, got %d", len(futureWeeks))
	}
	if !futureWeeks[0].Equal(lastHist.AddDate(0, 0, 7)) {
		t.Errorf("first future week = %v, expected one week after %v", futureWeeks[0], lastHist)
	}
	if !futureWeeks[1].Equal(lastHist.AddDate(0, 0, 14)) {
		t.Errorf("second future week = %v, expected two weeks after %v", futureWeeks[1], lastHist)
	}
}

func TestRegionNaiveFallbackOnShortHistory(t *testing.T) {
	// Three weeks of history cannot fill a single LookBack+Horizon window.
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	txs := weeklyTx("JAWA", "BREAD", start, []float64{4, 6, 8})

	engine := New(testConfig())
	forecasts, metrics, err := engine.Region(txs, "JAWA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics != nil {
		t.Errorf("fallback must not report metrics, got %d", len(metrics))
	}

	var future []database.Forecast
	for _, f := range forecasts {
		if f.IsForecast {
			future = append(future, f)
		}
	}
	if len(future) != 2 {
		t.Fatalf("expected 2 future rows, got %d", len(future))
	}
	// Mean of the last two observations.
	for _, f := range future {
		if math.Abs(f.Predicted-7) > 1e-10 {
			t.Errorf("fallback prediction = %f, expected 7", f.Predicted)
		}
	}
}

func TestRegionUnknownRegionYieldsNothing(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	txs := weeklyTx("JAWA", "BREAD", start, []float64{1, 2, 3})

	engine := New(testConfig())
	forecasts, metrics, err := engine.Region(txs, "PAPUA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forecasts != nil || metrics != nil {
		t.Errorf("expected nothing for unknown region, got %d rows, %d metrics", len(forecasts), len(metrics))
	}
}

func TestAllCoversEveryRegion(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	txs := append(
		weeklyTx("JAWA", "BREAD", start, []float64{10, 11, 12, 13, 14, 15}),
		weeklyTx("SUMATERA", "MILK", start, []float64{20, 21, 22, 23, 24, 25})...,
	)

	engine := New(testConfig())
	forecasts, _, err := engine.All(txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	regions := make(map[string]bool)
	for _, f := range forecasts {
		regions[f.Region] = true
	}
	if !regions["JAWA"] || !regions["SUMATERA"] {
		t.Errorf("expected both regions in output, got %v", regions)
	}
}

func TestPaydayFlag(t *testing.T) {
	cases := []struct {
		day      int
		expected float64
	}{
		{1, 1}, {5, 1}, {6, 0}, {15, 0}, {24, 0}, {25, 1}, {31, 1},
	}
	for _, c := range cases {
		d := time.Date(2024, 1, c.day, 0, 0, 0, 0, time.UTC)
		if got := paydayFlag(d); got != c.expected {
			t.Errorf("paydayFlag(day %d) = %f, expected %f", c.day, got, c.expected)
		}
	}
}
