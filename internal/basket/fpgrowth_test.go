package basket

import (
	"sort"
	"strings"
	"testing"
)

// itemsetSet renders mined itemsets as sorted "a,b" strings for easy
// comparison.
func itemsetSet(itemsets []itemset) map[string]int {
	out := make(map[string]int, len(itemsets))
	for _, s := range itemsets {
		items := append([]int(nil), s.items...)
		sort.Ints(items)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = string(rune('a' + item))
		}
		out[strings.Join(parts, ",")] = s.count
	}
	return out
}

func TestMineFrequentSingleItems(t *testing.T) {
	baskets := [][]int{{0}, {0}, {0}, {1}}
	got := itemsetSet(mineFrequent(baskets, 2))

	if got["a"] != 3 {
		t.Errorf("count(a) = %d, expected 3", got["a"])
	}
	if _, ok := got["b"]; ok {
		t.Error("item b is below minCount and must not be mined")
	}
}

func TestMineFrequentPairCounts(t *testing.T) {
	// a and b co-occur twice, a alone once.
	baskets := [][]int{{0, 1}, {0, 1}, {0}}
	got := itemsetSet(mineFrequent(baskets, 2))

	if got["a"] != 3 {
		t.Errorf("count(a) = %d, expected 3", got["a"])
	}
	if got["b"] != 2 {
		t.Errorf("count(b) = %d, expected 2", got["b"])
	}
	if got["a,b"] != 2 {
		t.Errorf("count(a,b) = %d, expected 2", got["a,b"])
	}
}

func TestMineFrequentTriple(t *testing.T) {
	baskets := [][]int{
		{0, 1, 2},
		{0, 1, 2},
		{0, 1},
		{2},
	}
	got := itemsetSet(mineFrequent(baskets, 2))

	expected := map[string]int{
		"a":     3,
		"b":     3,
		"c":     3,
		"a,b":   3,
		"a,c":   2,
		"b,c":   2,
		"a,b,c": 2,
	}
	for key, count := range expected {
		if got[key] != count {
			t.Errorf("count(%s) = %d, expected %d", key, got[key], count)
		}
	}
	if len(got) != len(expected) {
		t.Errorf("expected %d itemsets, got %d: %v", len(expected), len(got), got)
	}
}

func TestMineFrequentEmpty(t *testing.T) {
	if got := mineFrequent(nil, 1); len(got) != 0 {
		t.Errorf("expected no itemsets, got %d", len(got))
	}
}

func TestDeriveRulesConfidenceAndLift(t *testing.T) {
	// 10 baskets: support(a)=0.6, support(b)=0.4, support(a,b)=0.3.
	// a->b: confidence 0.5, lift 1.25. b->a: confidence 0.75, lift 1.25.
	itemsets := []itemset{
		{items: []int{0}, count: 6},
		{items: []int{1}, count: 4},
		{items: []int{0, 1}, count: 3},
	}
	rules := deriveRules(itemsets, 10, 1.0)
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}

	for _, r := range rules {
		if absDiff(r.lift, 1.25) > 1e-10 {
			t.Errorf("lift = %f, expected 1.25", r.lift)
		}
		if absDiff(r.support, 0.3) > 1e-10 {
			t.Errorf("support = %f, expected 0.3", r.support)
		}
	}

	// Sorted lift desc, then confidence desc: b->a (0.75) comes first.
	if absDiff(rules[0].confidence, 0.75) > 1e-10 {
		t.Errorf("first rule confidence = %f, expected 0.75", rules[0].confidence)
	}
	if absDiff(rules[1].confidence, 0.5) > 1e-10 {
		t.Errorf("second rule confidence = %f, expected 0.5", rules[1].confidence)
	}
}

func TestDeriveRulesMinLiftFilter(t *testing.T) {
	// Independent items: lift exactly 1 everywhere, filtered at 1.5.
	itemsets := []itemset{
		{items: []int{0}, count: 5},
		{items: []int{1}, count: 4},
		{items: []int{0, 1}, count: 2},
	}
	if rules := deriveRules(itemsets, 10, 1.5); len(rules) != 0 {
		t.Errorf("expected no rules at lift >= 1.5, got %d", len(rules))
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
