package recommend

import (
	"math"
	"sort"

	"github.com/niagalab/niaga/internal/database"
)

// StockoutRisk flags a category whose mean forecast demand runs well
// above its historical baseline.
type StockoutRisk struct {
	Region   string  `json:"region"`
	Category string  `json:"product_category"`
	Historic float64 `json:"historical_mean"`
	Forecast float64 `json:"forecast_mean"`
	Ratio    float64 `json:"ratio"`
}

// BundlingOpportunity is an association rule strong enough to surface on
// the dashboard as a cross-sell candidate.
type BundlingOpportunity struct {
	Region      string  `json:"region"`
	Antecedents string  `json:"antecedents"`
	Consequents string  `json:"consequents"`
	Confidence  float64 `json:"confidence"`
	Lift        float64 `json:"lift"`
}

// StockoutRisks scans forecast rows for categories whose future mean
// exceeds the historical mean by more than threshold (0.8 means an 80%
// jump). Results are sorted by ratio, highest first.
func StockoutRisks(forecasts []database.Forecast, threshold float64) []StockoutRisk {
	var risks []StockoutRisk
	for _, region := range regionsOf(forecasts) {
		futureMeans := categoryMeans(forecasts, region, true)
		historicalMeans := categoryMeans(forecasts, region, false)
		for _, cat := range sortedKeys(futureMeans) {
			hist, ok := historicalMeans[cat]
			if !ok || hist <= 0 {
				continue
			}
			future := futureMeans[cat]
			if future <= hist*(1+threshold) {
				continue
			}
			risks = append(risks, StockoutRisk{
				Region:   region,
				Category: cat,
				Historic: round2(hist),
				Forecast: round2(future),
				Ratio:    round2(future / hist),
			})
		}
	}
	sort.SliceStable(risks, func(a, b int) bool { return risks[a].Ratio > risks[b].Ratio })
	return risks
}

// BundlingOpportunities filters rules down to those at or above minLift,
// sorted by lift, highest first.
func BundlingOpportunities(rules []database.Rule, minLift float64) []BundlingOpportunity {
	var opps []BundlingOpportunity
	for _, r := range rules {
		if r.Lift < minLift {
			continue
		}
		opps = append(opps, BundlingOpportunity{
			Region:      r.Region,
			Antecedents: r.Antecedents,
			Consequents: r.Consequents,
			Confidence:  r.Confidence,
			Lift:        r.Lift,
		})
	}
	sort.SliceStable(opps, func(a, b int) bool { return opps[a].Lift > opps[b].Lift })
	return opps
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
