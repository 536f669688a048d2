// Package perceptron implements a structured perceptron cost model for
// lattice decoding.
//
// Every node and edge of a lattice maps to a string feature with a
// non-negative weight. A path costs the sum of its feature weights, so
// training lowers the weights along gold paths and raises them along wrong
// decodings until the gold path is the cheapest.
package perceptron

import (
	"sync"

	"github.com/happyhackingspace/rapgen/lattice"
	"github.com/happyhackingspace/rapgen/trie"
)

// Reserved features. The control characters keep them apart from any
// surface word.
const (
	BOS       = "\x02BOS"
	EOS       = "\x03EOS"
	Unknown   = "\x1aUNK"
	Separator = "\x1f"
)

// Defaults for NewModel.
const (
	DefaultCapacity = 1 << 20
	DefaultCost     = 10.0
)

// Model holds the feature weights. It is safe for concurrent use: decoding
// registers unseen features, so every access takes the lock.
type Model struct {
	Features    *trie.Alphabet `json:"features"`
	Weights     []float64      `json:"weights"`
	Vocabulary  *trie.Alphabet `json:"vocabulary"`
	Capacity    int            `json:"capacity"`
	DefaultCost float64        `json:"default_cost"`

	mu sync.Mutex
}

// NewModel creates a model whose node features are the given words.
// Capacity bounds the number of features; once full, unseen features cost 0.
func NewModel(vocabulary []string, capacity int, defaultCost float64) *Model {
	m := &Model{
		Features:    trie.NewAlphabet(),
		Vocabulary:  trie.NewAlphabet(),
		Capacity:    capacity,
		DefaultCost: defaultCost,
	}
	for _, w := range vocabulary {
		m.Vocabulary.Add(w)
	}
	return m
}

// NodeFeature returns the feature of n: its word, Unknown for words outside
// the vocabulary, or BOS/EOS for the sentinels.
func (m *Model) NodeFeature(n *lattice.Node) string {
	switch n.Kind {
	case lattice.KindBOS:
		return BOS
	case lattice.KindEOS:
		return EOS
	}
	if m.Vocabulary.Get(n.Word) < 0 {
		return Unknown
	}
	return n.Word
}

// EdgeFeature returns the feature of the edge prev -> n.
func (m *Model) EdgeFeature(prev, n *lattice.Node) string {
	return m.NodeFeature(prev) + Separator + m.NodeFeature(n)
}

// Cost returns the weight of feature. An unseen feature is registered at
// DefaultCost while there is room and costs 0 once the table is full.
func (m *Model) Cost(feature string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.lookup(feature)
	if !ok {
		return 0
	}
	return m.Weights[id]
}

// lookup finds or registers feature. Callers hold mu.
func (m *Model) lookup(feature string) (int, bool) {
	if id := m.Features.Get(feature); id >= 0 {
		return id, true
	}
	if m.Features.Size() >= m.Capacity {
		return 0, false
	}
	id := m.Features.Add(feature)
	m.Weights = append(m.Weights, m.DefaultCost)
	return id, true
}

// Update moves the weight of feature by one: down for gold features, up
// otherwise. Weights never drop below 0.
func (m *Model) Update(feature string, gold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.lookup(feature)
	if !ok {
		return
	}
	if gold {
		m.Weights[id] = max(m.Weights[id]-1, 0)
	} else {
		m.Weights[id]++
	}
}

// Weight returns the weight of feature without registering it.
func (m *Model) Weight(feature string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.Features.Get(feature)
	if id < 0 {
		return 0, false
	}
	return m.Weights[id], true
}

// Len returns the number of registered features.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Features.Size()
}

// NodeCost implements lattice.CostModel. Sentinels cost nothing.
func (m *Model) NodeCost(n *lattice.Node) float64 {
	if n.Kind != lattice.KindWord {
		return 0
	}
	return m.Cost(m.NodeFeature(n))
}

// EdgeCost implements lattice.CostModel.
func (m *Model) EdgeCost(prev, n *lattice.Node) float64 {
	return m.Cost(m.EdgeFeature(prev, n))
}

// UpdatePath applies Update to every word node and every edge of p,
// including the edges leaving BOS and entering EOS.
func (m *Model) UpdatePath(p lattice.Path, gold bool) {
	for i := range p.Nodes {
		n := &p.Nodes[i]
		if n.Kind == lattice.KindWord {
			m.Update(m.NodeFeature(n), gold)
		}
		if i > 0 {
			m.Update(m.EdgeFeature(&p.Nodes[i-1], n), gold)
		}
	}
}
