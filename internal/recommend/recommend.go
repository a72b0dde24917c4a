// Package recommend combines forecast trend direction with association
// rules into prioritized, de-duplicated stocking and bundling action
// items.
package recommend

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/niagalab/niaga/internal/database"
)

// Defaults for the decision thresholds.
const (
	DefaultGrowthThreshold  = 0.1
	DefaultDeclineThreshold = 0.1
	DefaultAnchorMinLift    = 1.5
	DefaultMinConfidence    = 0.3
	DefaultDeadStockPool    = 5
)

// Config holds the recommendation thresholds.
type Config struct {
	GrowthThreshold  float64 // minimum growth rate to treat a category as rising
	DeclineThreshold float64 // minimum decline rate to treat a category as falling
	AnchorMinLift    float64 // minimum rule lift for derived-demand matches
	MinConfidence    float64 // minimum rule confidence for dead-stock matches
	DeadStockPool    int     // how many lowest-forecast categories to inspect
}

func (c Config) withDefaults() Config {
	if c.GrowthThreshold <= 0 {
		c.GrowthThreshold = DefaultGrowthThreshold
	}
	if c.DeclineThreshold <= 0 {
		c.DeclineThreshold = DefaultDeclineThreshold
	}
	if c.AnchorMinLift <= 0 {
		c.AnchorMinLift = DefaultAnchorMinLift
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.DeadStockPool <= 0 {
		c.DeadStockPool = DefaultDeadStockPool
	}
	return c
}

// Generate synthesizes recommendations from the full forecast row set and
// the full rule set. Regions with no future forecasts, no rules or no
// categories simply contribute nothing.
func Generate(forecasts []database.Forecast, rules []database.Rule, cfg Config) []database.Recommendation {
	cfg = cfg.withDefaults()

	var future []database.Forecast
	for _, f := range forecasts {
		if f.IsForecast {
			future = append(future, f)
		}
	}
	if len(future) == 0 {
		return nil
	}

	var recs []database.Recommendation
	for _, region := range regionsOf(future) {
		recs = append(recs, regionRecommendations(region, forecasts, rules, cfg)...)
	}

	unique := dedupe(recs)
	log.Printf("Generated %d recommendations (%d before de-duplication)", len(unique), len(recs))
	return unique
}

func regionRecommendations(region string, forecasts []database.Forecast, rules []database.Rule, cfg Config) []database.Recommendation {
	futureMeans := categoryMeans(forecasts, region, true)
	if len(futureMeans) == 0 {
		return nil
	}

	historicalMeans := categoryMeans(forecasts, region, false)
	if len(historicalMeans) == 0 {
		// No historical rows at all: use a conservative stand-in
		// baseline of 0.9x the future mean.
		historicalMeans = make(map[string]float64, len(futureMeans))
		for cat, v := range futureMeans {
			historicalMeans[cat] = v * 0.9
		}
	}

	var regionRules []database.Rule
	for _, r := range rules {
		if r.Region == region {
			regionRules = append(regionRules, r)
		}
	}

	cats := sortedKeys(futureMeans)
	median := medianOf(futureMeans)

	var recs []database.Recommendation

	// Derived demand: a rising category pulls demand for categories it
	// is frequently bought with.
	for _, product := range cats {
		futureVal := futureMeans[product]
		histVal, ok := historicalMeans[product]
		if !ok {
			histVal = futureVal
		}

		growth := 0.0
		if histVal > 0 {
			growth = (futureVal - histVal) / histVal
		}
		if growth <= cfg.GrowthThreshold {
			continue
		}

		for _, rule := range regionRules {
			if rule.Antecedents != product || rule.Lift <= cfg.AnchorMinLift {
				continue
			}
			priority := database.PriorityMedium
			if rule.Lift > 2.0 {
				priority = database.PriorityHigh
			}
			related := rule.Consequents
			recs = append(recs, database.Recommendation{
				Region:   region,
				Type:     database.RecDerivedDemand,
				Product:  product,
				Related:  &related,
				Priority: priority,
				// Lift mapped onto 0-1: 1.0 -> 0.5, 3.0 -> 0.67, 5.0 -> 1.0.
				Confidence: liftConfidence(rule.Lift),
				Action: fmt.Sprintf("Increase stock of %s - frequently bought with %s (lift: %.2f)",
					titleCase(rule.Consequents), titleCase(product), rule.Lift),
			})
		}
	}

	// Dead stock: bundle the weakest categories with a strong anchor
	// they are frequently bought after.
	for _, product := range lowestCategories(futureMeans, cfg.DeadStockPool) {
		futureVal := futureMeans[product]
		histVal, ok := historicalMeans[product]
		if !ok {
			histVal = futureVal
		}

		decline := 0.0
		if histVal > 0 {
			decline = (histVal - futureVal) / histVal
		}
		if futureVal >= median && decline <= cfg.DeclineThreshold {
			continue
		}

		for _, rule := range regionRules {
			if rule.Consequents != product || rule.Confidence <= cfg.MinConfidence {
				continue
			}
			// Only bundle with an anchor whose own forecast is strong.
			anchor := rule.Antecedents
			if futureMeans[anchor] <= median {
				continue
			}
			priority := database.PriorityLow
			if decline > 0.2 {
				priority = database.PriorityMedium
			}
			related := anchor
			recs = append(recs, database.Recommendation{
				Region:     region,
				Type:       database.RecDeadStock,
				Product:    product,
				Related:    &related,
				Priority:   priority,
				Confidence: rule.Confidence,
				Action: fmt.Sprintf("Bundle %s with %s for clearance - confidence: %.0f%%",
					titleCase(product), titleCase(anchor), rule.Confidence*100),
			})
		}
	}

	return recs
}

// dedupe retains the first recommendation per (region, type, product,
// related) key, in generation order.
func dedupe(recs []database.Recommendation) []database.Recommendation {
	type key struct {
		region, typ, product, related string
	}
	seen := make(map[key]bool, len(recs))
	var unique []database.Recommendation
	for _, r := range recs {
		related := ""
		if r.Related != nil {
			related = *r.Related
		}
		k := key{r.Region, r.Type, r.Product, related}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, r)
	}
	return unique
}

// liftConfidence maps lift onto a 0-1 confidence, clamped.
func liftConfidence(lift float64) float64 {
	c := (lift-1.0)/3.0 + 0.5
	return math.Min(1.0, math.Max(0.0, c))
}

// categoryMeans averages predicted values over future rows, or actual
// values over historical rows, per category for one region.
func categoryMeans(forecasts []database.Forecast, region string, future bool) map[string]float64 {
	values := make(map[string][]float64)
	for _, f := range forecasts {
		if f.Region != region || f.IsForecast != future {
			continue
		}
		v := f.Predicted
		if !future {
			if f.Actual == nil {
				continue
			}
			v = *f.Actual
		}
		values[f.Category] = append(values[f.Category], v)
	}

	means := make(map[string]float64, len(values))
	for cat, vs := range values {
		means[cat] = stat.Mean(vs, nil)
	}
	return means
}

// lowestCategories returns the n categories with the lowest future mean,
// ties broken alphabetically.
func lowestCategories(means map[string]float64, n int) []string {
	cats := sortedKeys(means)
	sort.SliceStable(cats, func(a, b int) bool { return means[cats[a]] < means[cats[b]] })
	if len(cats) > n {
		cats = cats[:n]
	}
	return cats
}

// medianOf is the linear-interpolated median of the map values: the
// average of the two middle values for even counts.
func medianOf(means map[string]float64) float64 {
	values := make([]float64, 0, len(means))
	for _, v := range means {
		values = append(values, v)
	}
	sort.Float64s(values)
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

func regionsOf(forecasts []database.Forecast) []string {
	seen := make(map[string]bool)
	var regions []string
	for _, f := range forecasts {
		if !seen[f.Region] {
			seen[f.Region] = true
			regions = append(regions, f.Region)
		}
	}
	return regions
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCase renders a comma-joined item list in title case for action
// text ("BREAD, BUTTER" -> "Bread, Butter").
func titleCase(text string) string {
	parts := strings.Split(text, ",")
	for i, part := range parts {
		words := strings.Fields(strings.ToLower(strings.TrimSpace(part)))
		for j, w := range words {
			if w != "" {
				words[j] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
		parts[i] = strings.Join(words, " ")
	}
	return strings.Join(parts, ", ")
}
