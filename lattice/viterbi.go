package lattice

import (
	"fmt"
	"math"
	"strings"
)

// Viterbi finds the cheapest BOS to EOS path under m. It overwrites Cost and
// Prev of every node, so a Graph can be decoded again with another model.
// Among equally cheap predecessors the first in bucket order wins.
func Viterbi(g *Graph, m CostModel) (Path, error) {
	g.forward(m)
	return g.backtrack()
}

func (g *Graph) forward(m CostModel) {
	for b := range g.Buckets {
		for j := range g.Buckets[b] {
			g.Buckets[b][j].Cost = math.Inf(1)
			g.Buckets[b][j].Prev = NoRef
		}
	}
	g.BOS().Cost = 0

	for b := 1; b < len(g.Buckets); b++ {
		for j := range g.Buckets[b] {
			v := &g.Buckets[b][j]
			preds := g.Buckets[v.Start]

			best := math.Inf(1)
			bestRef := NoRef
			for k := range preds {
				u := &preds[k]
				if math.IsInf(u.Cost, 1) {
					continue
				}
				if c := u.Cost + m.EdgeCost(u, v); c < best {
					best = c
					bestRef = Ref{Bucket: v.Start, Index: k}
				}
			}
			if bestRef == NoRef {
				continue
			}
			v.Cost = best + m.NodeCost(v)
			v.Prev = bestRef
		}
	}
}

func (g *Graph) backtrack() (Path, error) {
	eos := g.EOS()
	var rev []Node
	for n := eos; ; {
		rev = append(rev, *n)
		if n.Kind == KindBOS {
			break
		}
		prev := g.Node(n.Prev)
		if prev == nil {
			return Path{}, fmt.Errorf("%w: %q breaks at bucket %d", ErrNoPath, strings.Join(g.Target, " "), n.Start)
		}
		n = prev
	}

	nodes := make([]Node, len(rev))
	for i, n := range rev {
		nodes[len(rev)-1-i] = n
	}
	return Path{Nodes: nodes, Cost: eos.Cost}, nil
}
