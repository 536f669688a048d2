// Package lattice builds word lattices over tone sequences and finds the
// cheapest paths through them.
//
// A Graph has len(target)+2 buckets. Bucket 0 holds BOS, bucket
// len(target)+1 holds EOS, and a word covering target[i:i+L] lives in
// bucket i+L. The predecessors of a node are exactly the nodes of the bucket
// at its start position, so every edge points forward and bucket order is a
// topological order.
package lattice

import (
	"errors"
	"math"
	"strings"
)

// ErrNoPath is returned when no chain of nodes connects BOS to EOS.
var ErrNoPath = errors.New("lattice: no path")

// Kind tells sentinel nodes apart from words.
type Kind int

const (
	KindWord Kind = iota
	KindBOS
	KindEOS
)

func (k Kind) String() string {
	switch k {
	case KindBOS:
		return "BOS"
	case KindEOS:
		return "EOS"
	default:
		return "word"
	}
}

// Ref addresses a node by bucket and position within the bucket.
type Ref struct {
	Bucket int
	Index  int
}

// NoRef is the Ref of a missing predecessor.
var NoRef = Ref{Bucket: -1, Index: -1}

// Node is one candidate word. Cost and Prev are filled in by Viterbi.
type Node struct {
	Start int    // index of the first covered tone
	Len   int    // number of covered tones, 0 for BOS and EOS
	Word  string // surface word, empty for BOS and EOS
	Kind  Kind
	Cost  float64 // best cost from BOS including this node
	Prev  Ref     // best predecessor
}

// Graph is a lattice built for one target sequence.
type Graph struct {
	Target  []string
	Buckets [][]Node
}

// PrefixSearcher finds the stored keys that are prefixes of a query.
type PrefixSearcher interface {
	PrefixesOf(query []string) [][]string
}

// WordLookup returns the surface words stored under a key.
type WordLookup interface {
	Words(key []string) []string
}

// Construct builds the lattice of target. Within a bucket, nodes are ordered
// by start position, then key length, then dictionary order. A position no
// key reaches leaves its bucket empty; Viterbi reports that as ErrNoPath.
func Construct(ix PrefixSearcher, dict WordLookup, target []string) *Graph {
	n := len(target)
	g := &Graph{
		Target:  target,
		Buckets: make([][]Node, n+2),
	}
	g.Buckets[0] = []Node{{Kind: KindBOS, Prev: NoRef}}
	g.Buckets[n+1] = []Node{{Start: n, Kind: KindEOS, Cost: math.Inf(1), Prev: NoRef}}

	for i := 0; i < n; i++ {
		for _, key := range ix.PrefixesOf(target[i:]) {
			l := len(key)
			for _, w := range dict.Words(key) {
				g.Buckets[i+l] = append(g.Buckets[i+l], Node{
					Start: i,
					Len:   l,
					Word:  w,
					Kind:  KindWord,
					Cost:  math.Inf(1),
					Prev:  NoRef,
				})
			}
		}
	}
	return g
}

// Node returns the node r points at, or nil.
func (g *Graph) Node(r Ref) *Node {
	if r.Bucket < 0 || r.Bucket >= len(g.Buckets) {
		return nil
	}
	b := g.Buckets[r.Bucket]
	if r.Index < 0 || r.Index >= len(b) {
		return nil
	}
	return &b[r.Index]
}

// BOS returns the start sentinel.
func (g *Graph) BOS() *Node {
	return &g.Buckets[0][0]
}

// EOS returns the end sentinel.
func (g *Graph) EOS() *Node {
	return &g.Buckets[len(g.Buckets)-1][0]
}

// Size returns the number of word nodes.
func (g *Graph) Size() int {
	size := 0
	for _, b := range g.Buckets[1 : len(g.Buckets)-1] {
		size += len(b)
	}
	return size
}

// Path is a BOS to EOS chain of nodes in reading order.
type Path struct {
	Nodes []Node
	Cost  float64
}

// Words returns the surface words of p without the sentinels.
func (p Path) Words() []string {
	words := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.Kind == KindWord {
			words = append(words, n.Word)
		}
	}
	return words
}

// String joins the words of p.
func (p Path) String() string {
	return strings.Join(p.Words(), "")
}

// WordPath wraps words in BOS and EOS. Spans are unknown, so Start and Len
// are left zero; only words and adjacency are meaningful.
func WordPath(words []string) Path {
	nodes := make([]Node, 0, len(words)+2)
	nodes = append(nodes, Node{Kind: KindBOS, Prev: NoRef})
	for _, w := range words {
		nodes = append(nodes, Node{Word: w, Kind: KindWord, Prev: NoRef})
	}
	nodes = append(nodes, Node{Kind: KindEOS, Prev: NoRef})
	return Path{Nodes: nodes}
}
