// Package basket mines frequent product-category co-occurrence sets per
// region and derives association rules (support, confidence, lift) used
// by the recommendation stage.
package basket

import (
	"log"
	"math"
	"sort"
	"strings"

	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/series"
)

// Defaults for the mining thresholds.
const (
	DefaultMinSupport   = 0.1
	DefaultMinLift      = 2.0
	DefaultMinItemCount = 5
)

// Config holds the association mining thresholds.
type Config struct {
	MinSupport   float64  // minimum itemset support fraction
	MinLift      float64  // minimum rule lift
	MinItemCount int      // categories seen in fewer transactions are pruned
	DropItems    []string // non-product columns removed from baskets
}

func (c Config) withDefaults() Config {
	if c.MinSupport <= 0 {
		c.MinSupport = DefaultMinSupport
	}
	if c.MinLift <= 0 {
		c.MinLift = DefaultMinLift
	}
	if c.MinItemCount <= 0 {
		c.MinItemCount = DefaultMinItemCount
	}
	if c.DropItems == nil {
		c.DropItems = []string{"POSTAGE"}
	}
	return c
}

// Miner runs market basket analysis over cleaned transactions.
type Miner struct {
	cfg Config
}

// NewMiner creates a miner.
func NewMiner(cfg Config) *Miner {
	return &Miner{cfg: cfg.withDefaults()}
}

// Clean prepares transactions for basket analysis: rows with a blank
// invoice are dropped, returns (non-positive quantities) are dropped,
// and category names are trimmed of surrounding whitespace.
func Clean(txs []database.Transaction) []database.Transaction {
	cleaned := make([]database.Transaction, 0, len(txs))
	for _, t := range txs {
		if strings.TrimSpace(t.Invoice) == "" {
			continue
		}
		if t.Quantity <= 0 {
			continue
		}
		t.Category = strings.TrimSpace(t.Category)
		cleaned = append(cleaned, t)
	}
	return cleaned
}

// All cleans the dataset once and mines every region in first-appearance
// order, concatenating the rules.
func (m *Miner) All(txs []database.Transaction) []database.Rule {
	cleaned := Clean(txs)
	log.Printf("Basket analysis: %d clean transactions", len(cleaned))

	var rules []database.Rule
	for _, region := range series.Regions(cleaned) {
		regionRules := m.mineRegion(cleaned, region)
		log.Printf("Region %s: %d rules", region, len(regionRules))
		rules = append(rules, regionRules...)
	}
	return rules
}

// Region cleans the dataset and mines a single region.
func (m *Miner) Region(txs []database.Transaction, region string) []database.Rule {
	return m.mineRegion(Clean(txs), region)
}

// mineRegion runs the per-region pipeline: rare-item pruning, boolean
// basket matrix, FP-Growth, rule derivation. Every insufficient-data
// outcome yields an empty rule list, never an error.
func (m *Miner) mineRegion(cleaned []database.Transaction, region string) []database.Rule {
	// Prune categories occurring in fewer than MinItemCount transactions
	// before building the matrix. Memory and noise control.
	occurrences := make(map[string]int)
	for _, t := range cleaned {
		if t.Region == region {
			occurrences[t.Category]++
		}
	}
	if len(occurrences) == 0 {
		return nil
	}

	drop := make(map[string]bool, len(m.cfg.DropItems))
	for _, item := range m.cfg.DropItems {
		drop[item] = true
	}

	// Boolean basket matrix: rows = invoices, columns = surviving
	// categories. Item and basket indices follow first appearance so
	// the output ordering is reproducible.
	itemIndex := make(map[string]int)
	var itemNames []string
	basketIndex := make(map[string]int)
	var baskets []map[int]bool

	for _, t := range cleaned {
		if t.Region != region {
			continue
		}
		if occurrences[t.Category] < m.cfg.MinItemCount || drop[t.Category] {
			continue
		}

		item, ok := itemIndex[t.Category]
		if !ok {
			item = len(itemNames)
			itemIndex[t.Category] = item
			itemNames = append(itemNames, t.Category)
		}

		b, ok := basketIndex[t.Invoice]
		if !ok {
			b = len(baskets)
			basketIndex[t.Invoice] = b
			baskets = append(baskets, make(map[int]bool))
		}
		baskets[b][item] = true
	}

	if len(baskets) == 0 || len(itemNames) == 0 {
		return nil
	}
	log.Printf("Region %s: basket matrix %d x %d", region, len(baskets), len(itemNames))

	basketItems := make([][]int, len(baskets))
	for i, b := range baskets {
		items := make([]int, 0, len(b))
		for item := range b {
			items = append(items, item)
		}
		sort.Ints(items)
		basketItems[i] = items
	}

	minCount := int(math.Ceil(m.cfg.MinSupport*float64(len(baskets)) - 1e-9))
	if minCount < 1 {
		minCount = 1
	}

	itemsets := mineFrequent(basketItems, minCount)
	if len(itemsets) == 0 {
		return nil
	}

	raw := deriveRules(itemsets, len(baskets), m.cfg.MinLift)

	rules := make([]database.Rule, 0, len(raw))
	for _, r := range raw {
		rules = append(rules, database.Rule{
			Region:      region,
			Antecedents: renderItems(r.antecedent, itemNames),
			Consequents: renderItems(r.consequent, itemNames),
			Support:     round4(r.support),
			Confidence:  round4(r.confidence),
			Lift:        round4(r.lift),
		})
	}
	return rules
}

// renderItems joins category names in discovery order (item indices are
// assigned by first appearance).
func renderItems(items []int, names []string) string {
	sorted := append([]int(nil), items...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, item := range sorted {
		parts[i] = names[item]
	}
	return strings.Join(parts, ", ")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
