// Package lexicon holds the tone dictionary that maps stored tone keys to
// surface words, and the katakana to tone conversion used to build queries.
package lexicon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// keySep joins key symbols for map lookups. Symbols never contain it.
const keySep = "\x00"

// Entry is one stored key with its surface words in dictionary order.
type Entry struct {
	Key   []string `json:"key"`
	Words []string `json:"words"`
}

// Dictionary maps tone keys to surface words. Keys keep insertion order.
type Dictionary struct {
	Entries []Entry `json:"entries"`

	index map[string]int
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		index: make(map[string]int),
	}
}

func joinKey(key []string) string {
	return strings.Join(key, keySep)
}

// Add appends words to key, creating the entry if needed. Words already
// listed under key are not repeated.
func (d *Dictionary) Add(key []string, words ...string) {
	if len(key) == 0 {
		return
	}
	if d.index == nil {
		d.index = make(map[string]int)
	}
	k := joinKey(key)
	i, ok := d.index[k]
	if !ok {
		i = len(d.Entries)
		d.index[k] = i
		d.Entries = append(d.Entries, Entry{Key: append([]string(nil), key...)})
	}
	e := &d.Entries[i]
	for _, w := range words {
		if w == "" || contains(e.Words, w) {
			continue
		}
		e.Words = append(e.Words, w)
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// Words returns the surface words stored under key, or nil.
func (d *Dictionary) Words(key []string) []string {
	i, ok := d.index[joinKey(key)]
	if !ok {
		return nil
	}
	return d.Entries[i].Words
}

// Keys returns every key in insertion order.
func (d *Dictionary) Keys() [][]string {
	keys := make([][]string, len(d.Entries))
	for i, e := range d.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Vocabulary returns every distinct surface word in first-seen order.
func (d *Dictionary) Vocabulary() []string {
	seen := make(map[string]bool)
	var vocab []string
	for _, e := range d.Entries {
		for _, w := range e.Words {
			if !seen[w] {
				seen[w] = true
				vocab = append(vocab, w)
			}
		}
	}
	return vocab
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	return len(d.Entries)
}

// UnmarshalJSON restores the entries and rebuilds the lookup index.
func (d *Dictionary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = *NewDictionary()
	for _, e := range raw.Entries {
		d.Add(e.Key, e.Words...)
	}
	return nil
}

// Load reads a dictionary from tab-separated lines.
// Format: sym sym sym<TAB>word<TAB>word ...
// Blank lines and lines starting with # are skipped.
func Load(r io.Reader) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected key and at least one word, got %d fields", lineNum, len(parts))
		}
		key := strings.Fields(parts[0])
		if len(key) == 0 {
			return nil, fmt.Errorf("line %d: empty key", lineNum)
		}
		var words []string
		for _, w := range parts[1:] {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("line %d: no words for key %q", lineNum, parts[0])
		}
		d.Add(key, words...)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return d, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Write serialises d in the format Load reads.
func (d *Dictionary) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range d.Entries {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", strings.Join(e.Key, " "), strings.Join(e.Words, "\t")); err != nil {
			return err
		}
	}
	return bw.Flush()
}
