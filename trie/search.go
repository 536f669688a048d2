package trie

import "sort"

// PrefixesOf returns the stored keys that are prefixes of query, shortest
// first. The walk stops at the first symbol without a transition. Returned
// keys are shared with the index and must not be modified.
func (ix *Index) PrefixesOf(query []string) [][]string {
	var out [][]string
	n := 0
	for _, sym := range query {
		n = ix.child(n, ix.Symbols.Get(sym))
		if n == notFound {
			break
		}
		if key, ok := ix.Terminals[n]; ok {
			out = append(out, key)
		}
	}
	return out
}

// ExtensionsOf returns the stored keys that have query as a prefix and are
// at most maxLen symbols long. A maxLen of zero or less means no bound.
// Results are ordered by key length, then by node id.
func (ix *Index) ExtensionsOf(query []string, maxLen int) [][]string {
	if maxLen > 0 && len(query) > maxLen {
		return nil
	}
	start := ix.walk(query)
	if start == notFound {
		return nil
	}

	type frame struct {
		node  int
		depth int
	}
	type hit struct {
		node int
		key  []string
	}

	var hits []hit
	stack := []frame{{node: start, depth: len(query)}}
	alphabet := ix.Symbols.Size()

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if key, ok := ix.Terminals[f.node]; ok {
			hits = append(hits, hit{node: f.node, key: key})
		}
		if maxLen > 0 && f.depth >= maxLen {
			continue
		}
		for c := 1; c < alphabet; c++ {
			if next := ix.child(f.node, c); next != notFound {
				stack = append(stack, frame{node: next, depth: f.depth + 1})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if len(hits[i].key) != len(hits[j].key) {
			return len(hits[i].key) < len(hits[j].key)
		}
		return hits[i].node < hits[j].node
	})
	out := make([][]string, len(hits))
	for i, h := range hits {
		out[i] = h.key
	}
	return out
}
