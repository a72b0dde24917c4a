// Package report assembles the markdown planning report from stored
// pipeline results.
package report

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/recommend"
)

const (
	topRulesPerRegion = 5
	stockoutThreshold = 0.8
	bundlingMinLift   = 1.5
)

// Composer composes the planning report from forecasts, rules and
// recommendations.
type Composer struct {
	db *database.DB
}

// NewComposer creates a new report composer.
func NewComposer(db *database.DB) *Composer {
	return &Composer{db: db}
}

// Compose builds the report from the current database contents, stores
// it and returns the stored row.
func (c *Composer) Compose() (*database.Report, error) {
	forecasts, err := c.db.GetForecasts(nil)
	if err != nil {
		return nil, err
	}
	rules, err := c.db.GetRules(nil)
	if err != nil {
		return nil, err
	}
	recs, err := c.db.GetRecommendations(nil)
	if err != nil {
		return nil, err
	}
	metrics, err := c.db.GetMetrics(nil)
	if err != nil {
		return nil, err
	}

	regions := regionsOf(forecasts)
	body := assembleBody(regions, forecasts, metrics, rules, recs)

	if err := c.db.InsertReport(body, len(regions), len(rules), len(recs)); err != nil {
		return nil, err
	}
	report, err := c.db.GetLatestReport()
	if err != nil {
		return nil, err
	}
	log.Printf("Report composed: %d regions, %d rules, %d recommendations", len(regions), len(rules), len(recs))
	return report, nil
}

func assembleBody(regions []string, forecasts []database.Forecast, metrics []database.ModelMetric, rules []database.Rule, recs []database.Recommendation) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("# Weekly Planning Report\n\nGenerated %s.", time.Now().UTC().Format("2006-01-02")))
	sections = append(sections, summarySection(regions, forecasts, rules, recs))

	for _, region := range regions {
		sections = append(sections, regionSection(region, forecasts, metrics, rules))
	}

	if section := recommendationSection(recs); section != "" {
		sections = append(sections, section)
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func summarySection(regions []string, forecasts []database.Forecast, rules []database.Rule, recs []database.Recommendation) string {
	risks := recommend.StockoutRisks(forecasts, stockoutThreshold)
	opportunities := recommend.BundlingOpportunities(rules, bundlingMinLift)

	var b strings.Builder
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Regions analysed: %d\n", len(regions))
	fmt.Fprintf(&b, "- Association rules found: %d\n", len(rules))
	fmt.Fprintf(&b, "- Recommendations issued: %d\n", len(recs))
	fmt.Fprintf(&b, "- Stockout risks flagged: %d\n", len(risks))
	fmt.Fprintf(&b, "- Bundling opportunities: %d", len(opportunities))

	if len(risks) > 0 {
		b.WriteString("\n\n**Top stockout risks:**\n")
		for i, r := range risks {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- %s / %s: forecast %.2f vs historical %.2f (%.1fx)\n",
				r.Region, r.Category, r.Forecast, r.Historic, r.Ratio)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func regionSection(region string, forecasts []database.Forecast, metrics []database.ModelMetric, rules []database.Rule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Region: %s\n", region)

	if section := metricsTable(region, metrics); section != "" {
		b.WriteString("\n### Forecast accuracy\n\n")
		b.WriteString(section)
	}

	if section := forecastHighlights(region, forecasts); section != "" {
		b.WriteString("\n\n### Demand outlook\n\n")
		b.WriteString(section)
	}

	if section := topRules(region, rules); section != "" {
		b.WriteString("\n\n### Frequently bought together\n\n")
		b.WriteString(section)
	}

	return strings.TrimRight(b.String(), "\n")
}

func metricsTable(region string, metrics []database.ModelMetric) string {
	var rows []string
	for _, m := range metrics {
		if m.Region != region {
			continue
		}
		rows = append(rows, fmt.Sprintf("| %s | %.2f | %.2f%% | %d |", m.Category, m.MAE, m.MAPE, m.SampleSize))
	}
	if len(rows) == 0 {
		return ""
	}
	header := "| Category | MAE | MAPE | Samples |\n|---|---|---|---|"
	return header + "\n" + strings.Join(rows, "\n")
}

func forecastHighlights(region string, forecasts []database.Forecast) string {
	totals := make(map[string]float64)
	weeks := make(map[string]int)
	var order []string
	for _, f := range forecasts {
		if f.Region != region || !f.IsForecast {
			continue
		}
		if _, ok := totals[f.Category]; !ok {
			order = append(order, f.Category)
		}
		totals[f.Category] += f.Predicted
		weeks[f.Category]++
	}
	if len(order) == 0 {
		return ""
	}

	var lines []string
	for _, cat := range order {
		mean := totals[cat] / float64(weeks[cat])
		lines = append(lines, fmt.Sprintf("- %s: %.1f units/week over the next %d weeks", cat, mean, weeks[cat]))
	}
	return strings.Join(lines, "\n")
}

func topRules(region string, rules []database.Rule) string {
	var lines []string
	for _, r := range rules {
		if r.Region != region {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s => %s (confidence %.0f%%, lift %.2f)",
			r.Antecedents, r.Consequents, r.Confidence*100, r.Lift))
		if len(lines) == topRulesPerRegion {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func recommendationSection(recs []database.Recommendation) string {
	byPriority := make(map[string][]database.Recommendation)
	for _, r := range recs {
		byPriority[r.Priority] = append(byPriority[r.Priority], r)
	}

	var b strings.Builder
	b.WriteString("## Recommendations\n")
	any := false
	for _, priority := range []string{database.PriorityHigh, database.PriorityMedium, database.PriorityLow} {
		group := byPriority[priority]
		if len(group) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "\n### %s priority\n\n", strings.ToUpper(priority[:1])+priority[1:])
		for _, r := range group {
			fmt.Fprintf(&b, "- [%s] %s\n", r.Region, r.Action)
		}
	}
	if !any {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
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
