// Package storage provides access to rhyme dictionaries and training data.
//
// A data folder holds two tab-separated files:
//
//	dict.tsv   a o i<TAB>あおい<TAB>さとみ
//	train.tsv  a o i o a<TAB>あお し もさ
//
// The observed column of train.tsv may also be a kana reading, which is
// converted to tones on load.
package storage

import (
	"bufio"
	"crypto/md5"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/happyhackingspace/rapgen/internal/textutil"
	"github.com/happyhackingspace/rapgen/lexicon"
)

// File names inside a data folder.
const (
	DictFile  = "dict.tsv"
	TrainFile = "train.tsv"
)

// Storage wraps the data folder.
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given data folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

// Example is one training line.
type Example struct {
	Observed []string // tones
	Gold     []string // surface words
	Line     int      // line number in train.tsv
}

// IterOptions control which examples IterExamples returns.
type IterOptions struct {
	DropDuplicates bool // skip lines whose content was already seen
	DropUnknown    bool // skip examples with gold words missing from the dictionary
	Verbose        bool
}

// DefaultIterOptions returns the default options for iterating examples.
func DefaultIterOptions() IterOptions {
	return IterOptions{
		DropDuplicates: true,
		DropUnknown:    true,
	}
}

// DictPath returns the path of the dictionary file.
func (s *Storage) DictPath() string {
	return filepath.Join(s.Folder, DictFile)
}

// TrainPath returns the path of the training file.
func (s *Storage) TrainPath() string {
	return filepath.Join(s.Folder, TrainFile)
}

// LoadDictionary reads dict.tsv.
func (s *Storage) LoadDictionary() (*lexicon.Dictionary, error) {
	dict, err := lexicon.LoadFile(s.DictPath())
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	return dict, nil
}

// SaveDictionary writes dict.tsv, creating the folder if needed.
func (s *Storage) SaveDictionary(dict *lexicon.Dictionary) error {
	if err := os.MkdirAll(s.Folder, 0755); err != nil {
		return err
	}
	f, err := os.Create(s.DictPath())
	if err != nil {
		return err
	}
	if err := dict.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IterExamples reads train.tsv. When dict is nil, DropUnknown has no effect.
func (s *Storage) IterExamples(dict *lexicon.Dictionary, opts IterOptions) ([]Example, error) {
	f, err := os.Open(s.TrainPath())
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}
	defer f.Close()

	var known map[string]bool
	if dict != nil && opts.DropUnknown {
		known = make(map[string]bool)
		for _, w := range dict.Vocabulary() {
			known[w] = true
		}
	}

	seen := make(map[string]bool)
	var examples []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ex, err := ParseExample(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", TrainFile, lineNum, err)
		}
		ex.Line = lineNum

		// Deduplication by line content hash
		if opts.DropDuplicates {
			hash := fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(ex.Observed, " ")+"\t"+strings.Join(ex.Gold, " "))))
			if seen[hash] {
				if opts.Verbose {
					slog.Debug("Duplicate example dropped", "line", lineNum)
				}
				continue
			}
			seen[hash] = true
		}

		if known != nil {
			if w, ok := firstUnknown(ex.Gold, known); !ok {
				if opts.Verbose {
					slog.Debug("Example with unknown word dropped", "line", lineNum, "word", w)
				}
				continue
			}
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return examples, nil
}

func firstUnknown(words []string, known map[string]bool) (string, bool) {
	for _, w := range words {
		if !known[w] {
			return w, false
		}
	}
	return "", true
}

// ParseExample parses one train.tsv line. A single-field observed column
// holding kana is read as a reading and converted to tones.
func ParseExample(line string) (Example, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 2 {
		return Example{}, fmt.Errorf("expected 2 tab-separated fields, got %d", len(parts))
	}
	observed := strings.Fields(parts[0])
	gold := strings.Fields(parts[1])
	if len(observed) == 1 {
		if reading := textutil.Normalize(observed[0]); isReading(reading) {
			observed, _ = lexicon.ConvertTones(textutil.ToKatakana(reading))
		}
	}
	if len(observed) == 0 {
		return Example{}, fmt.Errorf("empty observed sequence")
	}
	if len(gold) == 0 {
		return Example{}, fmt.Errorf("empty gold words")
	}
	return Example{Observed: observed, Gold: gold}, nil
}

func isReading(s string) bool {
	for _, r := range s {
		if !textutil.IsKana(r) {
			return false
		}
	}
	return s != ""
}
