package perceptron

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/happyhackingspace/rapgen/lattice"
)

// TrainerConfig holds perceptron training parameters.
type TrainerConfig struct {
	Epochs      int
	Capacity    int     // maximum number of features
	DefaultCost float64 // initial weight of a new feature
	Shuffle     bool    // reorder examples every epoch
	Rand        *rand.Rand
}

// DefaultTrainerConfig returns the default training config.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs:      20,
		Capacity:    DefaultCapacity,
		DefaultCost: DefaultCost,
	}
}

// Example is one observed tone sequence with its gold words.
type Example struct {
	Observed []string
	Gold     []string
}

// Lexicon supplies the lattice words and the vocabulary of node features.
type Lexicon interface {
	lattice.WordLookup
	Vocabulary() []string
}

// EpochStats summarises one pass over the examples.
type EpochStats struct {
	Epoch    int
	Mistakes int // examples decoded to the wrong words
	Skipped  int // examples without any lattice path
}

// Train builds a model over the vocabulary of dict and fits it.
func Train(examples []Example, ix lattice.PrefixSearcher, dict Lexicon, config TrainerConfig) *Model {
	model := NewModel(dict.Vocabulary(), config.Capacity, config.DefaultCost)
	model.Fit(examples, ix, dict, config)
	return model
}

// Fit runs online perceptron training. Examples are decoded one at a time
// and each update is visible to the next decode. Training stops early after
// an epoch without mistakes.
func (m *Model) Fit(examples []Example, ix lattice.PrefixSearcher, dict lattice.WordLookup, config TrainerConfig) []EpochStats {
	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	order := make([]int, len(examples))
	for i := range order {
		order[i] = i
	}

	var stats []EpochStats
	for epoch := range config.Epochs {
		if config.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		st := EpochStats{Epoch: epoch + 1}
		for _, i := range order {
			ok, err := m.Step(examples[i], ix, dict)
			if err != nil {
				st.Skipped++
				continue
			}
			if !ok {
				st.Mistakes++
			}
		}
		stats = append(stats, st)
		slog.Debug("perceptron epoch", "epoch", st.Epoch, "mistakes", st.Mistakes, "skipped", st.Skipped, "features", m.Len())

		if st.Mistakes == 0 {
			slog.Debug("perceptron converged", "epoch", st.Epoch)
			break
		}
	}
	return stats
}

// Step decodes one example and updates the weights if the decoded words
// differ from the gold words. It reports whether the decode was correct.
// An example whose lattice has no path returns lattice.ErrNoPath.
func (m *Model) Step(ex Example, ix lattice.PrefixSearcher, dict lattice.WordLookup) (bool, error) {
	g := lattice.Construct(ix, dict, ex.Observed)
	decoded, err := lattice.Viterbi(g, m)
	if err != nil {
		if !errors.Is(err, lattice.ErrNoPath) {
			slog.Warn("perceptron decode failed", "error", err)
		}
		return false, err
	}
	if slices.Equal(decoded.Words(), ex.Gold) {
		return true, nil
	}
	m.UpdatePath(decoded, false)
	m.UpdatePath(lattice.WordPath(ex.Gold), true)
	return false, nil
}
