package database

import "time"

// Transaction is one raw point-of-sale line item from the uploaded dataset.
type Transaction struct {
	ID       int64
	Invoice  string
	Date     time.Time
	Region   string
	Category string
	Quantity float64
}

// Forecast is one weekly forecast row for a (region, category) pair.
// Historical rows carry the (possibly interpolated) actual quantity and
// predicted == actual; future rows carry a nil actual.
type Forecast struct {
	ID         int64     `json:"-"`
	Region     string    `json:"region"`
	Category   string    `json:"product_category"`
	Week       time.Time `json:"week"`
	Actual     *float64  `json:"actual"`
	Predicted  float64   `json:"predicted"`
	IsForecast bool      `json:"is_forecast"`
}

// ModelMetric holds in-sample training error for one (region, category) pair.
type ModelMetric struct {
	ID         int64   `json:"-"`
	Region     string  `json:"region"`
	Category   string  `json:"product_category"`
	MAE        float64 `json:"mae"`
	MAPE       float64 `json:"mape"` // percent, 0-100 scale
	SampleSize int     `json:"sample_size"`
}

// Rule is one association rule mined from basket co-occurrence.
// Antecedents and Consequents are comma-joined category names.
type Rule struct {
	ID          int64   `json:"-"`
	Region      string  `json:"region"`
	Antecedents string  `json:"antecedents"`
	Consequents string  `json:"consequents"`
	Support     float64 `json:"support"`
	Confidence  float64 `json:"confidence"`
	Lift        float64 `json:"lift"`
}

// Recommendation types.
const (
	RecDerivedDemand = "derived_demand"
	RecDeadStock     = "dead_stock"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is one stocking or bundling action item.
type Recommendation struct {
	ID         int64   `json:"-"`
	Region     string  `json:"region"`
	Type       string  `json:"type"` // derived_demand or dead_stock
	Product    string  `json:"product"`
	Related    *string `json:"related_product"`
	Action     string  `json:"action"`
	Priority   string  `json:"priority"` // high, medium or low
	Confidence float64 `json:"confidence"`
}

// Report is a composed markdown planning report for one pipeline run.
type Report struct {
	ID                  int64
	BodyMarkdown        string
	RegionCount         int
	RuleCount           int
	RecommendationCount int
	GeneratedAt         *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Transactions    int
	Regions         int
	Categories      int
	Forecasts       int
	FutureForecasts int
	Metrics         int
	Rules           int
	Recommendations int
	Reports         int
}

// dateLayout is how transaction dates and week labels are stored in sqlite.
const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
