package rapgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/happyhackingspace/rapgen/internal/textutil"
	"github.com/happyhackingspace/rapgen/lattice"
	"github.com/happyhackingspace/rapgen/lexicon"
)

// Token is one unit of analyzed text. Reading is empty for tokens that
// should be copied through unchanged.
type Token struct {
	Surface string
	Reading string
}

// Analyzer splits text into tokens with readings.
type Analyzer interface {
	Analyze(text string) []Token
}

// KanaAnalyzer treats every kana run as one token read as written. Other
// text has no reading.
type KanaAnalyzer struct{}

// Analyze implements Analyzer.
func (KanaAnalyzer) Analyze(text string) []Token {
	segs := textutil.SplitKana(textutil.Normalize(text))
	tokens := make([]Token, len(segs))
	for i, s := range segs {
		tokens[i] = Token{Surface: s.Text}
		if s.Kana {
			tokens[i].Reading = s.Text
		}
	}
	return tokens
}

// Tones converts a reading to its vowel tones. Input is NFKC normalized and
// hiragana is read as katakana.
func Tones(reading string) []string {
	tones, _ := lexicon.ConvertTones(textutil.ToKatakana(textutil.Normalize(reading)))
	return tones
}

// Solve returns the cheapest word sequence covering tones.
func (g *Generator) Solve(tones []string) ([]string, error) {
	if len(tones) == 0 {
		return nil, nil
	}
	lat := lattice.Construct(g.index, g.dict, tones)
	path, err := lattice.Viterbi(lat, g.cost)
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	return path.Words(), nil
}

// SolveN returns up to n word sequences covering tones, cheapest first.
func (g *Generator) SolveN(tones []string, n int) ([][]string, error) {
	if len(tones) == 0 || n <= 0 {
		return nil, nil
	}
	lat := lattice.Construct(g.index, g.dict, tones)
	paths, err := lattice.NBest(lat, g.cost, n, g.beamWidth, g.childRand())
	if err != nil {
		return nil, fmt.Errorf("rapgen: %w", err)
	}
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = p.Words()
	}
	return out, nil
}

// Generate returns the words of the cheapest path for reading, joined.
// A reading without tones gives "" and no error; a reading the dictionary
// cannot cover gives "" and an error wrapping lattice.ErrNoPath.
func (g *Generator) Generate(reading string) (string, error) {
	words, err := g.Solve(Tones(reading))
	if err != nil {
		return "", err
	}
	return strings.Join(words, ""), nil
}

// GenerateN returns up to n distinct generations for reading, cheapest
// first. Paths that join to the same text are reported once.
func (g *Generator) GenerateN(reading string, n int) ([]string, error) {
	seqs, err := g.SolveN(Tones(reading), n)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, words := range seqs {
		s := strings.Join(words, "")
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// GenerateBatch runs Generate on every line concurrently. Lines without a
// path give "". Results keep the input order.
func (g *Generator) GenerateBatch(ctx context.Context, lines []string) ([]string, error) {
	out := make([]string, len(lines))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, line := range lines {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := g.Generate(line)
			if err != nil && !errors.Is(err, lattice.ErrNoPath) {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RhymeKeys returns the stored keys that rhyme with reading. Keys extending
// the full tone sequence are tried first, then the sequence is shortened
// from the end until some key extends it. Keys are never longer than the
// reading's tones.
func (g *Generator) RhymeKeys(reading string) [][]string {
	tones := Tones(reading)
	if len(tones) == 0 {
		return nil
	}
	cacheKey := strings.Join(tones, " ")
	if v, ok := g.cache.Get(cacheKey); ok {
		return v.([][]string)
	}
	var keys [][]string
	for q := tones; len(q) > 0; q = q[:len(q)-1] {
		if keys = g.index.ExtensionsOf(q, len(tones)); len(keys) > 0 {
			break
		}
	}
	g.cache.Add(cacheKey, keys)
	return keys
}

// Rhyme returns one word rhyming with reading, chosen at random among the
// rhyming keys and their words. When no key shares even the first tone,
// the best head or tail match of the same length is used. It returns ""
// when nothing matches.
func (g *Generator) Rhyme(reading string) string {
	var words []string
	if keys := g.RhymeKeys(reading); len(keys) > 0 {
		words = g.dict.Words(keys[g.intN(len(keys))])
	} else {
		words = MatchWord(reading, g.dict)
	}
	if len(words) == 0 {
		return ""
	}
	return words[g.intN(len(words))]
}

// Substitute replaces every token of text that has a reading with a rhyming
// word. Tokens without a reading or without a rhyme are kept.
func (g *Generator) Substitute(text string) string {
	var b strings.Builder
	for _, tok := range g.analyzer.Analyze(text) {
		if tok.Reading == "" {
			b.WriteString(tok.Surface)
			continue
		}
		if w := g.Rhyme(tok.Reading); w != "" {
			b.WriteString(w)
		} else {
			b.WriteString(tok.Surface)
		}
	}
	return b.String()
}

// MatchWord returns the words of the dictionary key with the same number of
// tones as reading that shares the longest head or tail with it. Ties go to
// the earlier key. Keys sharing nothing are not returned.
func MatchWord(reading string, dict *lexicon.Dictionary) []string {
	tones := Tones(reading)
	best, bestScore := -1, 0
	for i, e := range dict.Entries {
		if len(e.Key) != len(tones) {
			continue
		}
		score := max(textutil.HeadMatch(tones, e.Key), textutil.TailMatch(tones, e.Key))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}
	return dict.Entries[best].Words
}
