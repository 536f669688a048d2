package lattice

import (
	"container/heap"
	"math"
	"math/rand/v2"
	"slices"
)

// DefaultBeamWidth caps the predecessors expanded per step in NBest.
const DefaultBeamWidth = 16

// partial is a reversed path from some frontier node back to EOS. Tails are
// shared between partials, so expanding a frontier never copies.
type partial struct {
	ref       Ref
	next      *partial // toward EOS
	g         float64  // cost of the segment after the frontier
	f         float64  // g plus the best cost from BOS to the frontier
	onViterbi bool     // every node so far follows the Viterbi back pointers
	seq       int
	length    int
}

// queue is a min-heap of partial paths. Ties on f prefer the Viterbi chain,
// then the earlier push.
type queue []*partial

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].onViterbi != q[j].onViterbi {
		return q[i].onViterbi
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*partial)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return p
}

// NBest returns up to n cheapest paths, cheapest first, by A* search from
// EOS back to BOS with the Viterbi forward costs as the heuristic. The first
// path is always the Viterbi path.
//
// When a bucket holds more than beamWidth predecessors, only beamWidth of
// them are expanded: the Viterbi predecessor plus a uniform sample drawn
// from rng. Later paths are then approximate. A beamWidth of zero or less
// disables sampling. A nil rng uses a fixed seed.
func NBest(g *Graph, m CostModel, n, beamWidth int, rng *rand.Rand) ([]Path, error) {
	if n <= 0 {
		return nil, nil
	}
	if _, err := Viterbi(g, m); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}

	eosRef := Ref{Bucket: len(g.Buckets) - 1, Index: 0}
	seq := 0
	q := &queue{{
		ref:       eosRef,
		f:         g.EOS().Cost,
		onViterbi: true,
		length:    1,
	}}

	var paths []Path
	for q.Len() > 0 && len(paths) < n {
		p := heap.Pop(q).(*partial)
		v := g.Node(p.ref)
		if v.Kind == KindBOS {
			paths = append(paths, p.path(g))
			continue
		}

		preds := g.Buckets[v.Start]
		for _, k := range expandable(len(preds), v.Prev, beamWidth, rng) {
			u := &preds[k]
			if math.IsInf(u.Cost, 1) {
				continue
			}
			ref := Ref{Bucket: v.Start, Index: k}
			cost := p.g + m.EdgeCost(u, v) + m.NodeCost(v)
			seq++
			heap.Push(q, &partial{
				ref:       ref,
				next:      p,
				g:         cost,
				f:         cost + u.Cost,
				onViterbi: p.onViterbi && ref == v.Prev,
				seq:       seq,
				length:    p.length + 1,
			})
		}
	}
	return paths, nil
}

// expandable returns the bucket indices to expand, in bucket order.
func expandable(size int, best Ref, beamWidth int, rng *rand.Rand) []int {
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	if beamWidth <= 0 || size <= beamWidth {
		return idx
	}

	// Move the Viterbi predecessor to the front so it always survives, then
	// draw the rest with a partial Fisher-Yates shuffle.
	start := 0
	if best.Index >= 0 && best.Index < size {
		idx[0], idx[best.Index] = idx[best.Index], idx[0]
		start = 1
	}
	for i := start; i < beamWidth; i++ {
		j := i + rng.IntN(size-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	kept := idx[:beamWidth]
	slices.Sort(kept)
	return kept
}

func (p *partial) path(g *Graph) Path {
	nodes := make([]Node, 0, p.length)
	for cur := p; cur != nil; cur = cur.next {
		nodes = append(nodes, *g.Node(cur.ref))
	}
	return Path{Nodes: nodes, Cost: p.g}
}
