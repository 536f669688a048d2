package lattice

// CostModel scores nodes and edges. Lower is better.
type CostModel interface {
	NodeCost(n *Node) float64
	EdgeCost(prev, n *Node) float64
}

// ZeroCost scores everything 0, which turns Viterbi into a plain
// reachability search with first-found tie breaking.
type ZeroCost struct{}

func (ZeroCost) NodeCost(*Node) float64 { return 0 }
func (ZeroCost) EdgeCost(_, _ *Node) float64 { return 0 }

// PathCost sums the node and edge costs of p under m, skipping BOS's node
// cost the way Viterbi does.
func PathCost(p Path, m CostModel) float64 {
	cost := 0.0
	for i := 1; i < len(p.Nodes); i++ {
		cost += m.EdgeCost(&p.Nodes[i-1], &p.Nodes[i]) + m.NodeCost(&p.Nodes[i])
	}
	return cost
}
