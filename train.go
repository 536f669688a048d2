package rapgen

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/happyhackingspace/rapgen/internal/storage"
	"github.com/happyhackingspace/rapgen/internal/textutil"
	"github.com/happyhackingspace/rapgen/lattice"
	"github.com/happyhackingspace/rapgen/lexicon"
	"github.com/happyhackingspace/rapgen/perceptron"
	"github.com/happyhackingspace/rapgen/trie"
)

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Epochs      int
	Capacity    int
	DefaultCost float64
	Shuffle     bool
	Seed        uint64
	Verbose     bool
}

// DefaultTrainConfig returns the default training config.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:      20,
		Capacity:    perceptron.DefaultCapacity,
		DefaultCost: perceptron.DefaultCost,
		Seed:        1,
	}
}

// withDefaults fills unset Epochs and Capacity, keeping every other field.
func (c TrainConfig) withDefaults() TrainConfig {
	d := DefaultTrainConfig()
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	return c
}

func (c TrainConfig) trainer() perceptron.TrainerConfig {
	return perceptron.TrainerConfig{
		Epochs:      c.Epochs,
		Capacity:    c.Capacity,
		DefaultCost: c.DefaultCost,
		Shuffle:     c.Shuffle,
		Rand:        rand.New(rand.NewPCG(c.Seed, c.Seed)),
	}
}

// EvalConfig holds configuration for evaluation.
type EvalConfig struct {
	Folds   int
	Train   TrainConfig
	Verbose bool
}

// EvalResult holds cross-validation evaluation results.
type EvalResult struct {
	WordAccuracy     float64
	SequenceAccuracy float64
	WordCorrect      int
	WordTotal        int
	SequenceCorrect  int
	SequenceTotal    int
	Skipped          int // test examples without any path
}

// Train trains a generator on dict.tsv and train.tsv in the given data
// directory.
func Train(dataDir string, config *TrainConfig, opts ...Option) (*Generator, error) {
	cfg := DefaultTrainConfig()
	if config != nil {
		cfg = config.withDefaults()
	}

	dict, examples, err := loadData(dataDir, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	ix, err := trie.Build(dict.Keys())
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}

	model := perceptron.Train(examples, ix, dict, cfg.trainer())
	slog.Debug("Training complete", "examples", len(examples), "features", model.Len())
	return NewGenerator(ix, dict, model, opts...)
}

// Evaluate runs cross-validation on the data directory. Examples with the
// same observed tones always land in the same fold.
func Evaluate(dataDir string, config *EvalConfig) (*EvalResult, error) {
	nFolds := 5
	cfg := EvalConfig{Train: DefaultTrainConfig()}
	if config != nil {
		cfg = *config
		if cfg.Folds > 0 {
			nFolds = cfg.Folds
		}
		cfg.Train = cfg.Train.withDefaults()
	}

	dict, examples, err := loadData(dataDir, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	ix, err := trie.Build(dict.Keys())
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}

	groups, nGroups := toneGroups(examples)
	if nGroups < 2 {
		return nil, fmt.Errorf("rapgen: need at least 2 distinct observed sequences, got %d", nGroups)
	}
	folds := groupKFold(groups, nGroups, nFolds)

	result := &EvalResult{}
	for k, testIdx := range folds {
		testSet := makeTestSet(len(examples), testIdx)
		var train []perceptron.Example
		for i, ex := range examples {
			if !testSet[i] {
				train = append(train, ex)
			}
		}
		model := perceptron.Train(train, ix, dict, cfg.Train.trainer())

		for _, idx := range testIdx {
			ex := examples[idx]
			path, err := lattice.Viterbi(lattice.Construct(ix, dict, ex.Observed), model)
			var pred []string
			if err != nil {
				result.Skipped++
			} else {
				pred = path.Words()
			}
			result.WordCorrect += max(0, len(ex.Gold)-textutil.Levenshtein(pred, ex.Gold))
			result.WordTotal += len(ex.Gold)
			if err == nil && slices.Equal(pred, ex.Gold) {
				result.SequenceCorrect++
			}
			result.SequenceTotal++
		}
		if cfg.Verbose {
			slog.Info("Fold evaluated", "fold", k+1, "test", len(testIdx), "train", len(train))
		}
	}
	if result.WordTotal > 0 {
		result.WordAccuracy = float64(result.WordCorrect) / float64(result.WordTotal)
	}
	if result.SequenceTotal > 0 {
		result.SequenceAccuracy = float64(result.SequenceCorrect) / float64(result.SequenceTotal)
	}
	return result, nil
}

func loadData(dataDir string, verbose bool) (*lexicon.Dictionary, []perceptron.Example, error) {
	store := storage.NewStorage(dataDir)
	dict, err := store.LoadDictionary()
	if err != nil {
		return nil, nil, fmt.Errorf("rapgen: %w", err)
	}
	opts := storage.DefaultIterOptions()
	opts.Verbose = verbose
	items, err := store.IterExamples(dict, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("rapgen: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("rapgen: no examples found in %s", dataDir)
	}
	examples := make([]perceptron.Example, len(items))
	for i, it := range items {
		examples[i] = perceptron.Example{Observed: it.Observed, Gold: it.Gold}
	}
	return dict, examples, nil
}

// toneGroups numbers examples by observed sequence in first-seen order.
func toneGroups(examples []perceptron.Example) ([]int, int) {
	groups := make([]int, len(examples))
	ids := make(map[string]int)
	for i, ex := range examples {
		key := strings.Join(ex.Observed, " ")
		id, ok := ids[key]
		if !ok {
			id = len(ids)
			ids[key] = id
		}
		groups[i] = id
	}
	return groups, len(ids)
}

// groupKFold assigns group g to fold g % nFolds. Groups are numbered
// 0..nGroups-1.
func groupKFold(groups []int, nGroups, nFolds int) [][]int {
	if nFolds > nGroups {
		nFolds = nGroups
	}
	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := g % nFolds
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}
