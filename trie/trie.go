// Package trie implements a double-array trie over symbol sequences.
//
// An Index is built once from a fixed set of keys and then answers two
// queries: which stored keys are prefixes of a query (common-prefix search)
// and which stored keys extend a query (extension search).
//
//	ix, _ := trie.Build([][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}})
//	ix.PrefixesOf([]string{"a", "b", "x"})   // [[a] [a b]]
//	ix.ExtensionsOf([]string{"a", "b"}, 0)  // [[a b] [a b c]]
package trie

import (
	"encoding/json"
	"errors"
	"fmt"
)

// notFound marks an unused base or check cell.
const notFound = -1

var (
	// ErrBuildConflict is returned when two children would claim the same slot.
	ErrBuildConflict = errors.New("trie: conflicting child placement")
	// ErrInvalidIndex is returned when a decoded index is inconsistent.
	ErrInvalidIndex = errors.New("trie: invalid index")
)

// Alphabet maps between string symbols and integer IDs.
type Alphabet struct {
	ToID  map[string]int `json:"to_id"`
	ToStr []string       `json:"to_str"`
}

// NewAlphabet creates an empty alphabet.
func NewAlphabet() *Alphabet {
	return &Alphabet{
		ToID: make(map[string]int),
	}
}

// Add adds a string to the alphabet if not already present, returns its ID.
func (a *Alphabet) Add(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	id := len(a.ToStr)
	a.ToID[s] = id
	a.ToStr = append(a.ToStr, s)
	return id
}

// Get returns the ID for a string, or -1 if not found.
func (a *Alphabet) Get(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	return -1
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	return len(a.ToStr)
}

// Index is a double-array trie. A child of node p for symbol id c lives at
// slot Base[p]+c and is valid only when Check[Base[p]+c] == p. Node 0 is the
// root. Symbol id 0 is reserved, so real symbols start at 1.
type Index struct {
	Base      []int            `json:"base"`
	Check     []int            `json:"check"`
	Symbols   *Alphabet        `json:"symbols"`
	Terminals map[int][]string `json:"terminals"` // node id -> stored key
}

// UnmarshalJSON decodes an index and rejects one that could not have been
// produced by Build.
func (ix *Index) UnmarshalJSON(data []byte) error {
	type plain Index
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	loaded := Index(p)
	if err := loaded.check(); err != nil {
		return err
	}
	*ix = loaded
	return nil
}

func (ix *Index) check() error {
	if ix.Symbols == nil {
		return fmt.Errorf("%w: missing symbols", ErrInvalidIndex)
	}
	if len(ix.Symbols.ToStr) == 0 || ix.Symbols.ToStr[0] != "" {
		return fmt.Errorf("%w: symbol id 0 is not reserved", ErrInvalidIndex)
	}
	ix.Symbols.ToID = make(map[string]int, len(ix.Symbols.ToStr))
	for id, sym := range ix.Symbols.ToStr {
		if _, dup := ix.Symbols.ToID[sym]; dup {
			return fmt.Errorf("%w: duplicate symbol %q", ErrInvalidIndex, sym)
		}
		ix.Symbols.ToID[sym] = id
	}
	if len(ix.Base) == 0 || len(ix.Base) != len(ix.Check) {
		return fmt.Errorf("%w: %d base cells for %d check cells", ErrInvalidIndex, len(ix.Base), len(ix.Check))
	}
	if ix.Check[0] != notFound {
		return fmt.Errorf("%w: root has owner %d", ErrInvalidIndex, ix.Check[0])
	}
	for n, key := range ix.Terminals {
		if n <= 0 || n >= len(ix.Check) {
			return fmt.Errorf("%w: terminal %d out of range", ErrInvalidIndex, n)
		}
		if ix.walk(key) != n {
			return fmt.Errorf("%w: terminal %d does not hold key %v", ErrInvalidIndex, n, key)
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (ix *Index) Len() int {
	return len(ix.Terminals)
}

// child returns the node reached from n by symbol id c, or notFound.
func (ix *Index) child(n, c int) int {
	if n < 0 || n >= len(ix.Base) || ix.Base[n] < 0 || c <= 0 {
		return notFound
	}
	slot := ix.Base[n] + c
	if slot >= len(ix.Check) || ix.Check[slot] != n {
		return notFound
	}
	return slot
}

// walk follows key from the root and returns the node reached, or notFound.
func (ix *Index) walk(key []string) int {
	if len(key) == 0 {
		return notFound
	}
	n := 0
	for _, sym := range key {
		n = ix.child(n, ix.Symbols.Get(sym))
		if n == notFound {
			return notFound
		}
	}
	return n
}

// IDOf returns the node id of a stored key.
func (ix *Index) IDOf(key []string) (int, bool) {
	n := ix.walk(key)
	if n == notFound {
		return 0, false
	}
	if _, ok := ix.Terminals[n]; !ok {
		return 0, false
	}
	return n, true
}

// Contains reports whether key was stored.
func (ix *Index) Contains(key []string) bool {
	_, ok := ix.IDOf(key)
	return ok
}

// Keys returns every stored key ordered by node id.
func (ix *Index) Keys() [][]string {
	out := make([][]string, 0, len(ix.Terminals))
	for n := range ix.Check {
		if key, ok := ix.Terminals[n]; ok {
			out = append(out, key)
		}
	}
	return out
}
