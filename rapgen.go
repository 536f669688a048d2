// Package rapgen turns Japanese readings into rhyming word sequences.
//
// A reading is converted to vowel tones, a lattice of dictionary words that
// cover the tones is built, and the cheapest path under a trained
// perceptron cost model is returned.
//
//	g, _ := rapgen.New()
//	out, _ := g.Generate("かおりもさ") // "あおいもか"
//	word := g.Rhyme("さとみ")           // "あおい" or "さとみ"
package rapgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/happyhackingspace/rapgen/lattice"
	"github.com/happyhackingspace/rapgen/lexicon"
	"github.com/happyhackingspace/rapgen/perceptron"
	"github.com/happyhackingspace/rapgen/trie"
)

// ModelFile is the bundle name New looks for.
const ModelFile = "model.json"

// ErrModelNotFound is returned by New when no bundle file exists.
var ErrModelNotFound = errors.New("rapgen: model not found")

// Bundle is the serialized form of a Generator. Model is absent for an
// untrained generator.
type Bundle struct {
	Index      *trie.Index         `json:"index"`
	Dictionary *lexicon.Dictionary `json:"dictionary"`
	Model      json.RawMessage     `json:"model,omitempty"`
}

// Generator decodes readings against one dictionary and cost model. It is
// safe for concurrent use.
type Generator struct {
	index *trie.Index
	dict  *lexicon.Dictionary
	model *perceptron.Model
	cost  lattice.CostModel

	beamWidth   int
	concurrency int
	analyzer    Analyzer
	cache       *lru.Cache

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithBeamWidth sets the bucket size above which N-best search samples
// predecessors.
func WithBeamWidth(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.beamWidth = n
		}
	}
}

// WithSeed seeds the random source used for rhyme choice and beam sampling.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithCacheSize sets the number of rhyme candidate lists kept in memory.
func WithCacheSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.cache, _ = lru.New(n)
		}
	}
}

// WithConcurrency bounds the number of lines GenerateBatch decodes at once.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithAnalyzer sets the tokenizer used by Substitute.
func WithAnalyzer(a Analyzer) Option {
	return func(g *Generator) {
		if a != nil {
			g.analyzer = a
		}
	}
}

// NewGenerator creates a Generator. A nil model decodes with zero costs.
func NewGenerator(ix *trie.Index, dict *lexicon.Dictionary, model *perceptron.Model, opts ...Option) (*Generator, error) {
	if ix == nil || dict == nil {
		return nil, errors.New("rapgen: index and dictionary are required")
	}
	cache, err := lru.New(1024)
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	g := &Generator{
		index:       ix,
		dict:        dict,
		model:       model,
		cost:        lattice.ZeroCost{},
		beamWidth:   16,
		concurrency: 4,
		analyzer:    KanaAnalyzer{},
		cache:       cache,
		rng:         rand.New(rand.NewPCG(1, 2)),
	}
	if model != nil {
		g.cost = model
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// FromDictionary builds the index for dict and returns an untrained
// Generator.
func FromDictionary(dict *lexicon.Dictionary, opts ...Option) (*Generator, error) {
	ix, err := trie.Build(dict.Keys())
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	return NewGenerator(ix, dict, nil, opts...)
}

// New loads the generator from "model.json", searching the current directory
// and parent directories up to the module root (where go.mod lives), then
// the model cache directory.
func New(opts ...Option) (*Generator, error) {
	path, err := findModel(ModelFile)
	if err != nil {
		return nil, err
	}
	return Load(path, opts...)
}

func findModel(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("rapgen: %w", err)
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if cache, err := ModelDir(); err == nil {
		path := filepath.Join(cache, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// ModelDir returns the per-user directory for downloaded bundles.
func ModelDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rapgen"), nil
}

// Load reads a bundle file.
func Load(path string, opts ...Option) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	return Unmarshal(data, opts...)
}

// Unmarshal decodes a bundle produced by Marshal.
func Unmarshal(data []byte, opts ...Option) (*Generator, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	if b.Index == nil || b.Dictionary == nil {
		return nil, errors.New("rapgen: bundle is missing index or dictionary")
	}
	var model *perceptron.Model
	if len(b.Model) > 0 && string(b.Model) != "null" {
		m, err := perceptron.UnmarshalModel(b.Model)
		if err != nil {
			return nil, fmt.Errorf("rapgen: model: %w", err)
		}
		model = m
	}
	return NewGenerator(b.Index, b.Dictionary, model, opts...)
}

// Marshal encodes the generator as a JSON bundle.
func (g *Generator) Marshal() ([]byte, error) {
	b := Bundle{Index: g.index, Dictionary: g.dict}
	if g.model != nil {
		m, err := perceptron.MarshalModel(g.model)
		if err != nil {
			return nil, fmt.Errorf("rapgen: %w", err)
		}
		b.Model = m
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	return data, nil
}

// Save writes the generator to a bundle file.
func (g *Generator) Save(path string) error {
	data, err := g.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("rapgen: %w", err)
	}
	return nil
}

// Dictionary returns the generator's dictionary.
func (g *Generator) Dictionary() *lexicon.Dictionary {
	return g.dict
}

// Model returns the cost model, or nil for an untrained generator.
func (g *Generator) Model() *perceptron.Model {
	return g.model
}

// childRand derives an independent random source so decoding does not hold
// the generator lock.
func (g *Generator) childRand() *rand.Rand {
	g.mu.Lock()
	defer g.mu.Unlock()
	return rand.New(rand.NewPCG(g.rng.Uint64(), g.rng.Uint64()))
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}
