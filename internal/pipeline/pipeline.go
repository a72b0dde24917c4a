// Package pipeline orchestrates the analysis run: forecasting, basket
// mining, recommendation synthesis, persistence and report composition.
package pipeline

import (
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/niagalab/niaga/internal/basket"
	"github.com/niagalab/niaga/internal/config"
	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/forecast"
	"github.com/niagalab/niaga/internal/recommend"
	"github.com/niagalab/niaga/internal/report"
	"github.com/niagalab/niaga/internal/series"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the 5-step analysis over the stored transactions.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// Run executes the full pipeline. Earlier results are replaced only
// after every region has been processed.
func (p *Pipeline) Run() *Result {
	r := &Result{}

	txs, err := p.db.GetTransactions()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: err})
		return r
	}
	if len(txs) == 0 {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: fmt.Errorf("no transactions loaded; run 'niaga ingest' first")})
		return r
	}
	regions := series.Regions(txs)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("Loaded %d transactions across %d regions", len(txs), len(regions)),
	})

	// Step 1+2: forecast and mine every region.
	forecasts, metrics, rules, err := p.analyzeRegions(txs, regions)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Analyze", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Forecast",
		Summary: fmt.Sprintf("Produced %d forecast rows, %d model metrics", len(forecasts), len(metrics)),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Basket",
		Summary: fmt.Sprintf("Mined %d association rules", len(rules)),
	})

	// Step 3: synthesize recommendations.
	log.Println("Step 3/5: Generating recommendations...")
	recs := recommend.Generate(forecasts, rules, RecommendConfig(p.cfg))
	r.Steps = append(r.Steps, StepResult{
		Name:    "Recommend",
		Summary: fmt.Sprintf("Generated %d recommendations", len(recs)),
	})

	// Step 4: persist everything in one shot.
	log.Println("Step 4/5: Storing results...")
	if err := p.db.ReplaceResults(forecasts, metrics, rules, recs); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: "Results stored"})

	// Step 5: compose the planning report.
	log.Println("Step 5/5: Composing report...")
	rep, err := report.NewComposer(p.db).Compose()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Report", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report composed: %d regions, %d recommendations", rep.RegionCount, rep.RecommendationCount),
	})

	return r
}

// analyzeRegions runs forecasting and basket mining per region, either
// sequentially or on a bounded worker pool. Output order follows the
// region order regardless of worker scheduling.
func (p *Pipeline) analyzeRegions(txs []database.Transaction, regions []string) ([]database.Forecast, []database.ModelMetric, []database.Rule, error) {
	engine := forecast.New(ForecastConfig(p.cfg))
	miner := basket.NewMiner(BasketConfig(p.cfg))

	log.Printf("Step 1/5, 2/5: Forecasting and mining %d regions...", len(regions))

	type regionResult struct {
		forecasts []database.Forecast
		metrics   []database.ModelMetric
		rules     []database.Rule
	}
	results := make([]regionResult, len(regions))

	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, region := range regions {
		g.Go(func() error {
			forecasts, metrics, err := engine.Region(txs, region)
			if err != nil {
				return fmt.Errorf("forecasting region %s: %w", region, err)
			}
			results[i] = regionResult{
				forecasts: forecasts,
				metrics:   metrics,
				rules:     miner.Region(txs, region),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	var forecasts []database.Forecast
	var metrics []database.ModelMetric
	var rules []database.Rule
	for _, res := range results {
		forecasts = append(forecasts, res.forecasts...)
		metrics = append(metrics, res.metrics...)
		rules = append(rules, res.rules...)
	}
	return forecasts, metrics, rules, nil
}

// ForecastConfig maps the YAML config onto the forecast engine settings.
func ForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.Config{
		Horizon:      cfg.Forecast.HorizonWeeks,
		LookBack:     cfg.Forecast.LookBack,
		Estimators:   cfg.Forecast.Estimators,
		LearningRate: cfg.Forecast.LearningRate,
		MaxDepth:     cfg.Forecast.MaxDepth,
		MinLeaf:      cfg.Forecast.MinLeaf,
	}
}

// BasketConfig maps the YAML config onto the basket mining settings.
func BasketConfig(cfg *config.Config) basket.Config {
	return basket.Config{
		MinSupport:   cfg.Basket.MinSupport,
		MinLift:      cfg.Basket.MinLift,
		MinItemCount: cfg.Basket.MinItemCount,
		DropItems:    cfg.Basket.DropCategories,
	}
}

// RecommendConfig maps the YAML config onto the recommendation thresholds.
func RecommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		GrowthThreshold:  cfg.Recommend.GrowthThreshold,
		DeclineThreshold: cfg.Recommend.DeclineThreshold,
		AnchorMinLift:    cfg.Recommend.AnchorMinLift,
		MinConfidence:    cfg.Recommend.MinConfidence,
		DeadStockPool:    cfg.Recommend.DeadStockPool,
	}
}
