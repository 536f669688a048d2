package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/happyhackingspace/rapgen/lexicon"
)

const testDict = "a\tあ\tか\tさ\na o\tあお\tかお\ni\tし\no a\tもさ\n"

const testTrain = `# comment
a o i o a	あお し もさ
a o i o a	あお し もさ
あおい	あ お い
a o	あお
a o	あと
`

func writeData(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DictFile), []byte(testDict), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, TrainFile), []byte(testTrain), 0644); err != nil {
		t.Fatal(err)
	}
	return NewStorage(dir)
}

func TestIterExamples(t *testing.T) {
	s := writeData(t)
	dict, err := s.LoadDictionary()
	if err != nil {
		t.Fatal(err)
	}
	if dict.Len() != 4 {
		t.Fatalf("dictionary has %d keys, want 4", dict.Len())
	}

	tests := []struct {
		name  string
		dict  *lexicon.Dictionary
		opts  IterOptions
		lines []int
	}{
		{"defaults", dict, DefaultIterOptions(), []int{2, 5}},
		{"keep duplicates", dict, IterOptions{DropUnknown: true}, []int{2, 3, 5}},
		{"keep unknown", dict, IterOptions{DropDuplicates: true}, []int{2, 4, 5, 6}},
		{"no dictionary", nil, DefaultIterOptions(), []int{2, 4, 5, 6}},
		{"everything", nil, IterOptions{}, []int{2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			examples, err := s.IterExamples(tt.dict, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			var lines []int
			for _, ex := range examples {
				lines = append(lines, ex.Line)
			}
			if !reflect.DeepEqual(lines, tt.lines) {
				t.Errorf("lines = %v, want %v", lines, tt.lines)
			}
		})
	}
}

func TestParseExample(t *testing.T) {
	tests := []struct {
		line     string
		observed []string
		gold     []string
		wantErr  bool
	}{
		{"a o i\tあおい", []string{"a", "o", "i"}, []string{"あおい"}, false},
		{"あおい\tあおい", []string{"a", "o", "i"}, []string{"あおい"}, false},
		{"ｶｯﾊﾟ\tかっぱ", []string{"a", "xtu", "a"}, []string{"かっぱ"}, false},
		{"a o i", nil, nil, true},
		{"a\tb\tc", nil, nil, true},
		{"\tあ", nil, nil, true},
		{"a\t ", nil, nil, true},
	}
	for _, tt := range tests {
		ex, err := ParseExample(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExample(%q) err = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if !reflect.DeepEqual(ex.Observed, tt.observed) || !reflect.DeepEqual(ex.Gold, tt.gold) {
			t.Errorf("ParseExample(%q) = %v / %v, want %v / %v", tt.line, ex.Observed, ex.Gold, tt.observed, tt.gold)
		}
	}
}

func TestIterExamplesMissingFile(t *testing.T) {
	s := NewStorage(t.TempDir())
	if _, err := s.IterExamples(nil, DefaultIterOptions()); err == nil {
		t.Error("expected error for missing train.tsv")
	}
	if _, err := s.LoadDictionary(); err == nil {
		t.Error("expected error for missing dict.tsv")
	}
}

func TestSaveDictionaryFile(t *testing.T) {
	dict := lexicon.NewDictionary()
	dict.Add([]string{"a", "o", "i"}, "あおい", "さとみ")
	dict.Add([]string{"o", "a"}, "もさ")

	s := NewStorage(filepath.Join(t.TempDir(), "nested"))
	if err := s.SaveDictionary(dict); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadDictionary()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Entries, dict.Entries) {
		t.Errorf("entries = %v, want %v", got.Entries, dict.Entries)
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBDictionary(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	dict := lexicon.NewDictionary()
	dict.Add([]string{"o", "a"}, "もさ", "もか")
	dict.Add([]string{"a"}, "あ")
	dict.Add([]string{"a", "o", "i"}, "あおい")

	if err := db.SaveDictionary(ctx, dict); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadDictionary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Entries, dict.Entries) {
		t.Errorf("entries = %v, want %v", got.Entries, dict.Entries)
	}

	// Saving again replaces the previous contents.
	small := lexicon.NewDictionary()
	small.Add([]string{"i"}, "し")
	if err := db.SaveDictionary(ctx, small); err != nil {
		t.Fatal(err)
	}
	got, err = db.LoadDictionary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 || got.Words([]string{"i"})[0] != "し" {
		t.Errorf("after replace: %v", got.Entries)
	}
}

func TestDBModels(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.LoadModel(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadModel on empty db err = %v, want ErrNotFound", err)
	}

	first, err := db.SaveModel(ctx, []byte(`{"v":1}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.SaveModel(ctx, []byte(`{"v":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("model ids should differ")
	}

	latest, err := db.LoadModel(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(latest) != `{"v":2}` {
		t.Errorf("latest = %s", latest)
	}
	blob, err := db.LoadModel(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"v":1}` {
		t.Errorf("first = %s", blob)
	}

	infos, err := db.ListModels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].ID != second || infos[1].ID != first {
		t.Fatalf("ListModels = %+v", infos)
	}
	if infos[0].Size != len(`{"v":2}`) {
		t.Errorf("size = %d", infos[0].Size)
	}

	if err := db.DeleteModel(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteModel(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := db.LoadModel(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadModel(deleted) err = %v, want ErrNotFound", err)
	}
}

func TestOpenDBFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rapgen.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.SaveModel(ctx, []byte("blob"))
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	blob, err := db.LoadModel(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != "blob" {
		t.Errorf("blob = %q", blob)
	}
}
