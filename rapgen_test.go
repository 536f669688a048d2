package rapgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/happyhackingspace/rapgen/lattice"
	"github.com/happyhackingspace/rapgen/lexicon"
	"github.com/happyhackingspace/rapgen/trie"
)

const testDictTSV = `a	あ	か	さ
a o	あお	かお	さと
a o i	あおい	さとみ
o	と
o i	とい	こい	とし
o i o	たいよ	はいりょ
i	き	し
i o	みこ	しお
o a	もか	もさ
`

func testDictionary(t *testing.T) *lexicon.Dictionary {
	t.Helper()
	dict, err := lexicon.Load(strings.NewReader(testDictTSV))
	if err != nil {
		t.Fatal(err)
	}
	return dict
}

func testGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	g, err := FromDictionary(testDictionary(t), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestTones(t *testing.T) {
	tests := []struct {
		reading string
		want    []string
	}{
		{"かおりもさ", []string{"a", "o", "i", "o", "a"}},
		{"ｷｮｳ", []string{"o", "u"}},
		{"ラーメン", []string{"a", "a", "e", "n"}},
		{"abc", nil},
	}
	for _, tt := range tests {
		if got := Tones(tt.reading); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tones(%q) = %v, want %v", tt.reading, got, tt.want)
		}
	}
}

func TestGenerateZeroCost(t *testing.T) {
	g := testGenerator(t)

	words, err := g.Solve([]string{"a", "o", "i", "o", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"あおい", "もか"}; !reflect.DeepEqual(words, want) {
		t.Errorf("Solve = %v, want %v", words, want)
	}

	got, err := g.Generate("かおりもさ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "あおいもか" {
		t.Errorf("Generate = %q, want %q", got, "あおいもか")
	}
}

func TestGenerateNoPath(t *testing.T) {
	g := testGenerator(t)

	got, err := g.Generate("あん")
	if !errors.Is(err, lattice.ErrNoPath) {
		t.Errorf("err = %v, want ErrNoPath", err)
	}
	if got != "" {
		t.Errorf("Generate = %q, want empty", got)
	}

	// No tones at all is an empty result, not an error.
	got, err = g.Generate("abc")
	if err != nil || got != "" {
		t.Errorf("Generate(abc) = %q, %v", got, err)
	}
}

func TestGenerateN(t *testing.T) {
	g := testGenerator(t, WithBeamWidth(16))

	best, err := g.Generate("かおりもさ")
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.GenerateN("かおりもさ", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("GenerateN returned %d results", len(got))
	}
	if got[0] != best {
		t.Errorf("first = %q, want Viterbi result %q", got[0], best)
	}
	seen := make(map[string]bool)
	for _, s := range got {
		if seen[s] {
			t.Errorf("duplicate result %q", s)
		}
		seen[s] = true
	}

	if _, err := g.GenerateN("あん", 3); !errors.Is(err, lattice.ErrNoPath) {
		t.Errorf("err = %v, want ErrNoPath", err)
	}
}

func TestRhyme(t *testing.T) {
	g := testGenerator(t)

	tests := []struct {
		reading string
		want    []string
	}{
		{"さとみ", []string{"あおい", "さとみ"}},
		// a o i o a is trimmed to a o i.
		{"かおりもさ", []string{"あおい", "さとみ"}},
		// a i is trimmed to a, then extended up to two tones.
		{"かい", []string{"あ", "あお", "か", "かお", "さ", "さと"}},
		{"かん", []string{"あ", "あお", "か", "かお", "さ", "さと"}},
		{"ぬ", nil},
		{"abc", nil},
	}
	for _, tt := range tests {
		for range 5 {
			got := g.Rhyme(tt.reading)
			if tt.want == nil {
				if got != "" {
					t.Errorf("Rhyme(%q) = %q, want empty", tt.reading, got)
				}
				continue
			}
			if !slices.Contains(tt.want, got) {
				t.Errorf("Rhyme(%q) = %q, want one of %v", tt.reading, got, tt.want)
			}
		}
	}
}

func TestRhymeKeysCached(t *testing.T) {
	g := testGenerator(t, WithCacheSize(2))
	first := g.RhymeKeys("かおりもさ")
	want := [][]string{{"a", "o", "i"}}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("RhymeKeys = %v, want %v", first, want)
	}
	if _, ok := g.cache.Get("a o i o a"); !ok {
		t.Error("candidate keys not cached")
	}
	if again := g.RhymeKeys("かおりもさ"); !reflect.DeepEqual(again, first) {
		t.Errorf("cached RhymeKeys = %v, want %v", again, first)
	}
}

func TestRhymeSeeded(t *testing.T) {
	a := testGenerator(t, WithSeed(42))
	b := testGenerator(t, WithSeed(42))
	for range 10 {
		if x, y := a.Rhyme("かん"), b.Rhyme("かん"); x != y {
			t.Fatalf("same seed gave %q and %q", x, y)
		}
	}
}

func TestMatchWord(t *testing.T) {
	dict := testDictionary(t)
	tests := []struct {
		reading string
		want    []string
	}{
		// a o and o i both share one tone; a o comes first.
		{"かい", []string{"あお", "かお", "さと"}},
		{"ほい", []string{"とい", "こい", "とし"}},
		{"ぬぬ", nil},
		{"ぬ", nil},
	}
	for _, tt := range tests {
		if got := MatchWord(tt.reading, dict); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("MatchWord(%q) = %v, want %v", tt.reading, got, tt.want)
		}
	}
}

type fixedAnalyzer []Token

func (a fixedAnalyzer) Analyze(string) []Token { return a }

func TestSubstitute(t *testing.T) {
	dict := lexicon.NewDictionary()
	dict.Add([]string{"a", "o", "i"}, "あおい")
	dict.Add([]string{"u"}, "う")

	analyzer := fixedAnalyzer{
		{Surface: "空", Reading: "そら"},
		{Surface: "は", Reading: ""},
		{Surface: "青い", Reading: "あおい"},
		{Surface: "、", Reading: ""},
		{Surface: "夢", Reading: "ゆめ"},
	}
	g, err := FromDictionary(dict, WithAnalyzer(analyzer))
	if err != nil {
		t.Fatal(err)
	}
	// そら has no rhyme and stays as written; ゆめ is trimmed to u.
	if got, want := g.Substitute("ignored"), "空はあおい、う"; got != want {
		t.Errorf("Substitute = %q, want %q", got, want)
	}
}

func TestKanaAnalyzer(t *testing.T) {
	got := KanaAnalyzer{}.Analyze("今日はｶﾚｰ")
	want := []Token{
		{Surface: "今日"},
		{Surface: "はカレー", Reading: "はカレー"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %+v, want %+v", got, want)
	}
}

func TestGenerateBatch(t *testing.T) {
	g := testGenerator(t, WithConcurrency(2))
	lines := []string{"かおりもさ", "あん", "abc", "さとみ"}
	got, err := g.GenerateBatch(context.Background(), lines)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"あおいもか", "", "", "あおい"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateBatch = %q, want %q", got, want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.GenerateBatch(ctx, lines); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled batch err = %v, want context.Canceled", err)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := writeTestData(t, "a o i o a\tあお し もさ\n")
	cfg := DefaultTrainConfig()
	cfg.Epochs = 50
	g, err := Train(dir, &cfg)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), ModelFile)
	if err := g.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model() == nil {
		t.Fatal("loaded generator has no model")
	}
	got, err := loaded.Solve([]string{"a", "o", "i", "o", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"あお", "し", "もさ"}; !reflect.DeepEqual(got, want) {
		t.Errorf("loaded Solve = %v, want %v", got, want)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []string{
		`not json`,
		`{}`,
		`{"index": {"base": [], "check": []}}`,
	}
	for _, data := range tests {
		if _, err := Unmarshal([]byte(data)); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", data)
		}
	}

	invalid := []string{
		`{"index": {}, "dictionary": {"entries": [{"key": ["a"], "words": ["あ"]}]}}`,
		`{"index": {"base": [0], "check": [-1], "symbols": {"to_id": {"": 0}}}, "dictionary": {"entries": []}}`,
		`{"index": {"base": [0, -1], "check": [-1, 0], "symbols": {"to_str": ["", "a"]}, "terminals": {"7": ["a"]}}, "dictionary": {"entries": []}}`,
	}
	for _, data := range invalid {
		if _, err := Unmarshal([]byte(data)); !errors.Is(err, trie.ErrInvalidIndex) {
			t.Errorf("Unmarshal(%s): err = %v, want ErrInvalidIndex", data, err)
		}
	}

	valid, err := testGenerator(t).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	badModel := strings.Replace(string(valid), `"dictionary"`, `"model":{"weights":[1,2]},"dictionary"`, 1)
	if _, err := Unmarshal([]byte(badModel)); err == nil {
		t.Error("Unmarshal accepted a model with more weights than features")
	}
}

func TestUntrainedRoundTrip(t *testing.T) {
	g := testGenerator(t)
	data, err := g.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model() != nil {
		t.Error("untrained bundle gained a model")
	}
	if got, _ := loaded.Generate("かおりもさ"); got != "あおいもか" {
		t.Errorf("Generate = %q", got)
	}
}

func TestNewModelNotFound(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Chdir(root)

	if _, err := New(); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("New without a bundle: err = %v, want ErrModelNotFound", err)
	}

	if err := os.WriteFile(filepath.Join(root, ModelFile), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New()
	if err == nil || errors.Is(err, ErrModelNotFound) {
		t.Errorf("New with a corrupt bundle: err = %v, want a decode error", err)
	}
}

func TestNewSearchesParents(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	g := testGenerator(t)
	if err := g.Save(filepath.Join(root, ModelFile)); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	loaded, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dictionary().Len() != g.Dictionary().Len() {
		t.Errorf("loaded %d keys, want %d", loaded.Dictionary().Len(), g.Dictionary().Len())
	}
}
