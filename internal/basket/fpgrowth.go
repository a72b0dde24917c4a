package basket

import "sort"

// itemset is a frequent set of item indices with its basket count.
type itemset struct {
	items []int
	count int
}

// fpNode is a node in an FP-tree. Nodes for the same item are chained
// through next so conditional pattern bases can be collected without
// scanning the whole tree.
type fpNode struct {
	item     int
	count    int
	parent   *fpNode
	children map[int]*fpNode
	next     *fpNode
}

// fpTree is a compressed prefix tree over frequency-ordered baskets.
type fpTree struct {
	root   *fpNode
	heads  map[int]*fpNode
	tails  map[int]*fpNode
	counts map[int]int
}

func newFPTree() *fpTree {
	return &fpTree{
		root:   &fpNode{item: -1, children: make(map[int]*fpNode)},
		heads:  make(map[int]*fpNode),
		tails:  make(map[int]*fpNode),
		counts: make(map[int]int),
	}
}

// insert adds one frequency-ordered basket with the given weight.
func (t *fpTree) insert(items []int, count int) {
	node := t.root
	for _, item := range items {
		child, ok := node.children[item]
		if !ok {
			child = &fpNode{item: item, parent: node, children: make(map[int]*fpNode)}
			node.children[item] = child
			if t.heads[item] == nil {
				t.heads[item] = child
			} else {
				t.tails[item].next = child
			}
			t.tails[item] = child
		}
		child.count += count
		t.counts[item] += count
		node = child
	}
}

// mineFrequent mines all itemsets appearing in at least minCount baskets
// using FP-Growth. Baskets hold item indices; one occurrence per basket
// (boolean semantics). Chosen over candidate generation for memory
// efficiency on wide matrices.
func mineFrequent(baskets [][]int, minCount int) []itemset {
	counts := make(map[int]int)
	for _, basket := range baskets {
		for _, item := range basket {
			counts[item]++
		}
	}

	// Global frequency order: count descending, item index ascending for
	// deterministic ties.
	rank := buildRank(counts, minCount)
	if len(rank) == 0 {
		return nil
	}

	tree := newFPTree()
	ordered := make([]int, 0, len(rank))
	for _, basket := range baskets {
		ordered = ordered[:0]
		for _, item := range basket {
			if _, ok := rank[item]; ok {
				ordered = append(ordered, item)
			}
		}
		sort.Slice(ordered, func(a, b int) bool { return rank[ordered[a]] < rank[ordered[b]] })
		tree.insert(ordered, 1)
	}

	var out []itemset
	mineTree(tree, nil, minCount, &out)
	return out
}

// buildRank assigns dense ranks to items meeting minCount, most frequent
// first.
func buildRank(counts map[int]int, minCount int) map[int]int {
	items := make([]int, 0, len(counts))
	for item, c := range counts {
		if c >= minCount {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(a, b int) bool {
		if counts[items[a]] != counts[items[b]] {
			return counts[items[a]] > counts[items[b]]
		}
		return items[a] < items[b]
	})
	rank := make(map[int]int, len(items))
	for i, item := range items {
		rank[item] = i
	}
	return rank
}

// weightedPath is one prefix path in a conditional pattern base.
type weightedPath struct {
	items []int
	count int
}

// mineTree emits every frequent itemset ending in suffix by walking the
// header chains from the least frequent item upward and recursing into
// conditional trees.
func mineTree(tree *fpTree, suffix []int, minCount int, out *[]itemset) {
	items := make([]int, 0, len(tree.counts))
	for item, c := range tree.counts {
		if c >= minCount {
			items = append(items, item)
		}
	}
	// Least frequent first; ties by item index for determinism.
	sort.Slice(items, func(a, b int) bool {
		if tree.counts[items[a]] != tree.counts[items[b]] {
			return tree.counts[items[a]] < tree.counts[items[b]]
		}
		return items[a] > items[b]
	})

	for _, item := range items {
		found := make([]int, 0, len(suffix)+1)
		found = append(found, item)
		found = append(found, suffix...)
		*out = append(*out, itemset{items: found, count: tree.counts[item]})

		// Conditional pattern base: prefix paths of every node carrying
		// this item, weighted by the node count.
		var paths []weightedPath
		condCounts := make(map[int]int)
		for node := tree.heads[item]; node != nil; node = node.next {
			var path []int
			for p := node.parent; p != nil && p.item >= 0; p = p.parent {
				path = append(path, p.item)
			}
			if len(path) == 0 {
				continue
			}
			// Collected leaf-to-root; restore root-to-leaf order.
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			paths = append(paths, weightedPath{items: path, count: node.count})
			for _, it := range path {
				condCounts[it] += node.count
			}
		}

		// Build the conditional tree over items still frequent in the
		// base. Paths keep their relative order, which already follows
		// the parent tree's frequency ranking.
		conditional := newFPTree()
		for _, p := range paths {
			kept := p.items[:0:0]
			for _, it := range p.items {
				if condCounts[it] >= minCount {
					kept = append(kept, it)
				}
			}
			if len(kept) > 0 {
				conditional.insert(kept, p.count)
			}
		}

		if len(conditional.counts) > 0 {
			mineTree(conditional, found, minCount, out)
		}
	}
}
