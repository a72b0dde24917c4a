package basket

import (
	"sort"
	"strconv"
	"strings"
)

// rawRule is an association rule over item indices, before rendering to
// category names.
type rawRule struct {
	antecedent []int
	consequent []int
	support    float64
	confidence float64
	lift       float64
}

// deriveRules turns frequent itemsets into association rules filtered on
// minimum lift. For every itemset of size >= 2, each non-empty proper
// subset is tried as an antecedent with the remainder as consequent.
func deriveRules(itemsets []itemset, nBaskets int, minLift float64) []rawRule {
	if nBaskets == 0 {
		return nil
	}

	support := make(map[string]int, len(itemsets))
	for _, s := range itemsets {
		support[itemsetKey(s.items)] = s.count
	}

	var rules []rawRule
	for _, s := range itemsets {
		k := len(s.items)
		if k < 2 {
			continue
		}
		setSupport := float64(s.count) / float64(nBaskets)

		for mask := 1; mask < (1<<k)-1; mask++ {
			var antecedent, consequent []int
			for i := 0; i < k; i++ {
				if mask&(1<<i) != 0 {
					antecedent = append(antecedent, s.items[i])
				} else {
					consequent = append(consequent, s.items[i])
				}
			}

			antCount, ok := support[itemsetKey(antecedent)]
			if !ok || antCount == 0 {
				continue // subsets of a frequent set are frequent; missing means pruned
			}
			conCount, ok := support[itemsetKey(consequent)]
			if !ok || conCount == 0 {
				continue
			}

			confidence := float64(s.count) / float64(antCount)
			lift := confidence * float64(nBaskets) / float64(conCount)
			if lift < minLift {
				continue
			}

			rules = append(rules, rawRule{
				antecedent: antecedent,
				consequent: consequent,
				support:    setSupport,
				confidence: confidence,
				lift:       lift,
			})
		}
	}

	// Strongest rules first: lift descending, confidence descending.
	sort.SliceStable(rules, func(a, b int) bool {
		if rules[a].lift != rules[b].lift {
			return rules[a].lift > rules[b].lift
		}
		return rules[a].confidence > rules[b].confidence
	})
	return rules
}

// itemsetKey builds an order-independent map key for an itemset.
func itemsetKey(items []int) string {
	sorted := append([]int(nil), items...)
	sort.Ints(sorted)
	var b strings.Builder
	for i, item := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(item))
	}
	return b.String()
}
