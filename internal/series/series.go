// Package series turns raw transactions into gap-free weekly quantity
// series per (region, category), the input shape the forecast engine
// trains on.
package series

import (
	"math"
	"time"

	"github.com/niagalab/niaga/internal/database"
)

// Point is one weekly observation in a prepared series.
type Point struct {
	Region   string
	Category string
	Week     time.Time
	Quantity float64
}

// WeekEnd returns the label of the calendar week containing t: the Sunday
// ending that week (the date itself when t falls on a Sunday).
func WeekEnd(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}

// Regions returns distinct region names in order of first appearance.
func Regions(txs []database.Transaction) []string {
	seen := make(map[string]bool)
	var regions []string
	for _, t := range txs {
		if !seen[t.Region] {
			seen[t.Region] = true
			regions = append(regions, t.Region)
		}
	}
	return regions
}

// Weekly builds the gap-free weekly series for one region: for every
// calendar week between the first and last observed week, one point per
// category, with summed quantities for observed weeks, linear
// interpolation for interior gaps, and zeros at the edges. Weekly sums
// are floored at zero so returns cannot push a series negative.
//
// Points are emitted category-major in first-appearance order, weeks
// ascending. A region with no rows yields nil.
func Weekly(txs []database.Transaction, region string) []Point {
	sums := make(map[string]map[time.Time]float64)
	var catOrder []string
	var minWeek, maxWeek time.Time

	for _, t := range txs {
		if t.Region != region {
			continue
		}
		week := WeekEnd(t.Date)
		byWeek, ok := sums[t.Category]
		if !ok {
			byWeek = make(map[time.Time]float64)
			sums[t.Category] = byWeek
			catOrder = append(catOrder, t.Category)
		}
		byWeek[week] += t.Quantity

		if minWeek.IsZero() || week.Before(minWeek) {
			minWeek = week
		}
		if maxWeek.IsZero() || week.After(maxWeek) {
			maxWeek = week
		}
	}

	if len(catOrder) == 0 {
		return nil
	}

	// Complete weekly grid spanning the region's observed range. All
	// categories share the grid so every series has the same length.
	var grid []time.Time
	for w := minWeek; !w.After(maxWeek); w = w.AddDate(0, 0, 7) {
		grid = append(grid, w)
	}

	var points []Point
	for _, cat := range catOrder {
		values := make([]float64, len(grid))
		for i, w := range grid {
			if q, ok := sums[cat][w]; ok {
				values[i] = q
			} else {
				values[i] = math.NaN()
			}
		}
		interpolate(values)

		for i, w := range grid {
			q := values[i]
			if math.IsNaN(q) || q < 0 {
				q = 0
			}
			points = append(points, Point{
				Region:   region,
				Category: cat,
				Week:     w,
				Quantity: q,
			})
		}
	}
	return points
}

// interpolate fills interior NaN runs linearly between their known
// neighbors. Leading and trailing NaNs are left for the caller to
// zero-fill: there is no neighbor to anchor them.
func interpolate(values []float64) {
	prev := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}
