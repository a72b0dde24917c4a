// Package forecast trains one multi-output gradient-boosted regression
// model per region, predicting the next Horizon weekly quantities for
// every category from the previous LookBack weeks.
package forecast

import (
	"fmt"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/series"
)

// Defaults for the forecasting window.
const (
	DefaultHorizon  = 10
	DefaultLookBack = 4
)

// Config holds the forecast engine settings.
type Config struct {
	Horizon      int     // future weeks predicted jointly
	LookBack     int     // past weeks used as regression input
	Estimators   int     // boosting rounds per output
	LearningRate float64 // shrinkage per boosting round
	MaxDepth     int     // tree depth limit
	MinLeaf      int     // minimum samples per leaf
}

func (c Config) withDefaults() Config {
	if c.Horizon <= 0 {
		c.Horizon = DefaultHorizon
	}
	if c.LookBack <= 0 {
		c.LookBack = DefaultLookBack
	}
	if c.Estimators <= 0 {
		c.Estimators = 300
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.05
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 2
	}
	return c
}

// Engine produces forecast rows and in-sample model metrics per region.
type Engine struct {
	cfg Config
}

// New creates a forecast engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// All runs the region model for every region in first-appearance order
// and concatenates the results. Any region failure aborts the whole run.
func (e *Engine) All(txs []database.Transaction) ([]database.Forecast, []database.ModelMetric, error) {
	regions := series.Regions(txs)
	log.Printf("Forecasting %d region(s)", len(regions))

	var forecasts []database.Forecast
	var metrics []database.ModelMetric
	for _, region := range regions {
		f, m, err := e.Region(txs, region)
		if err != nil {
			return nil, nil, fmt.Errorf("forecasting region %s: %w", region, err)
		}
		forecasts = append(forecasts, f...)
		metrics = append(metrics, m...)
		log.Printf("Region %s: %d forecast rows, %d metrics", region, len(f), len(m))
	}
	return forecasts, metrics, nil
}

// Region trains a single shared model across all of one region's
// categories and returns historical-fit rows, future predictions and
// per-category error metrics. A region with no rows yields nothing; a
// region with too little history for even one training window falls back
// to a naive mean forecast with no metrics.
func (e *Engine) Region(txs []database.Transaction, region string) ([]database.Forecast, []database.ModelMetric, error) {
	pts := series.Weekly(txs, region)
	if len(pts) == 0 {
		return nil, nil, nil
	}

	cats, byCat := groupByCategory(pts)
	vocab := NewVocabulary(cats)

	var forecasts []database.Forecast
	for _, cat := range cats {
		for _, p := range byCat[cat] {
			actual := p.Quantity
			forecasts = append(forecasts, database.Forecast{
				Region:    region,
				Category:  cat,
				Week:      p.Week,
				Actual:    &actual,
				Predicted: p.Quantity,
			})
		}
	}

	// Sliding-window training set over the union of all categories.
	var X, Y [][]float64
	var meta []string
	for _, cat := range cats {
		catPts := byCat[cat]
		logSeries := log1pAll(quantities(catPts))
		for i := e.cfg.LookBack; i+e.cfg.Horizon <= len(logSeries); i++ {
			feats := windowFeatures(logSeries[i-e.cfg.LookBack:i], catPts[i].Week)
			X = append(X, vocab.Encode(feats, cat))
			Y = append(Y, append([]float64(nil), logSeries[i:i+e.cfg.Horizon]...))
			meta = append(meta, cat)
		}
	}

	lastWeek := byCat[cats[0]][len(byCat[cats[0]])-1].Week
	futureWeeks := make([]time.Time, e.cfg.Horizon)
	for k := range futureWeeks {
		futureWeeks[k] = lastWeek.AddDate(0, 0, 7*(k+1))
	}

	if len(X) == 0 {
		return append(forecasts, e.naiveFallback(region, cats, byCat, futureWeeks)...), nil, nil
	}

	model := fitMultiOutput(X, Y, boostingConfig{
		Estimators:   e.cfg.Estimators,
		LearningRate: e.cfg.LearningRate,
		MaxDepth:     e.cfg.MaxDepth,
		MinLeaf:      e.cfg.MinLeaf,
	})

	metrics := inSampleMetrics(model, X, Y, meta, cats, region)

	// Future predictions anchored at the first future week.
	anchor := futureWeeks[0]
	for _, cat := range cats {
		values := quantities(byCat[cat])
		lastLog := log1pAll(values[len(values)-e.cfg.LookBack:])
		feats := windowFeatures(lastLog, anchor)
		preds := model.predict(vocab.Encode(feats, cat))
		for k, w := range futureWeeks {
			q := math.Expm1(preds[k])
			if q < 0 {
				q = 0
			}
			forecasts = append(forecasts, database.Forecast{
				Region:     region,
				Category:   cat,
				Week:       w,
				Predicted:  round2(q),
				IsForecast: true,
			})
		}
	}

	return forecasts, metrics, nil
}

// naiveFallback predicts the mean of the last LookBack (or fewer) raw
// quantities, floored at zero, repeated across all future weeks.
func (e *Engine) naiveFallback(region string, cats []string, byCat map[string][]series.Point, futureWeeks []time.Time) []database.Forecast {
	log.Printf("Region %s: not enough history to train, using naive fallback", region)

	var forecasts []database.Forecast
	for _, cat := range cats {
		values := quantities(byCat[cat])
		if len(values) == 0 {
			continue
		}
		tail := values
		if len(tail) > e.cfg.LookBack {
			tail = tail[len(tail)-e.cfg.LookBack:]
		}
		naive := stat.Mean(tail, nil)
		if naive < 0 {
			naive = 0
		}
		for _, w := range futureWeeks {
			forecasts = append(forecasts, database.Forecast{
				Region:     region,
				Category:   cat,
				Week:       w,
				Predicted:  round2(naive),
				IsForecast: true,
			})
		}
	}
	return forecasts
}

// inSampleMetrics re-predicts every training window, inverts the log
// transform, and computes per-category MAE and MAPE. MAPE only considers
// examples with nonzero actuals; with none it reports 0.
func inSampleMetrics(model *multiOutput, X, Y [][]float64, meta, cats []string, region string) []database.ModelMetric {
	preds := make([][]float64, len(X))
	for i := range X {
		preds[i] = model.predict(X[i])
	}

	var metrics []database.ModelMetric
	for _, cat := range cats {
		var actual, predicted []float64
		windows := 0
		for j, m := range meta {
			if m != cat {
				continue
			}
			windows++
			for k := range Y[j] {
				actual = append(actual, math.Expm1(Y[j][k]))
				predicted = append(predicted, math.Expm1(preds[j][k]))
			}
		}
		if windows == 0 {
			continue
		}

		var absErr, pctErr float64
		nonzero := 0
		for i := range actual {
			absErr += math.Abs(actual[i] - predicted[i])
			if actual[i] != 0 {
				pctErr += math.Abs((actual[i] - predicted[i]) / actual[i])
				nonzero++
			}
		}
		mae := absErr / float64(len(actual))
		mape := 0.0
		if nonzero > 0 {
			mape = pctErr / float64(nonzero) * 100
		}

		metrics = append(metrics, database.ModelMetric{
			Region:     region,
			Category:   cat,
			MAE:        round2(mae),
			MAPE:       round2(mape),
			SampleSize: windows,
		})
	}
	return metrics
}

// windowFeatures builds the regression features for one window: the
// log-space lags, their mean and population standard deviation, and a
// payday-week indicator for the anchor date.
func windowFeatures(pastLog []float64, anchor time.Time) []float64 {
	feats := make([]float64, 0, len(pastLog)+3)
	feats = append(feats, pastLog...)
	feats = append(feats, stat.Mean(pastLog, nil))
	feats = append(feats, stat.PopStdDev(pastLog, nil))
	feats = append(feats, paydayFlag(anchor))
	return feats
}

// paydayFlag is 1 for weeks anchored around payday (day of month >= 25
// or <= 5), 0 otherwise.
func paydayFlag(t time.Time) float64 {
	day := t.Day()
	if day >= 25 || day <= 5 {
		return 1
	}
	return 0
}

func groupByCategory(pts []series.Point) ([]string, map[string][]series.Point) {
	byCat := make(map[string][]series.Point)
	var cats []string
	for _, p := range pts {
		if _, ok := byCat[p.Category]; !ok {
			cats = append(cats, p.Category)
		}
		byCat[p.Category] = append(byCat[p.Category], p)
	}
	return cats, byCat
}

func quantities(pts []series.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Quantity
	}
	return out
}

func log1pAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log1p(v)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
