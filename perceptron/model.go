package perceptron

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/happyhackingspace/rapgen/trie"
)

// SaveModel serializes the model to JSON.
func SaveModel(model *Model, path string) error {
	model.mu.Lock()
	data, err := json.MarshalIndent(model, "", "  ")
	model.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes a model from JSON.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(model *Model) ([]byte, error) {
	model.mu.Lock()
	defer model.mu.Unlock()
	return json.Marshal(model)
}

// UnmarshalModel deserializes a model from JSON bytes.
func UnmarshalModel(data []byte) (*Model, error) {
	model := &Model{}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, err
	}
	if err := model.check(); err != nil {
		return nil, err
	}
	return model, nil
}

func (m *Model) check() error {
	if m.Features == nil {
		m.Features = trie.NewAlphabet()
	}
	if m.Vocabulary == nil {
		m.Vocabulary = trie.NewAlphabet()
	}
	for _, a := range []*trie.Alphabet{m.Features, m.Vocabulary} {
		if a.ToID == nil {
			a.ToID = make(map[string]int, len(a.ToStr))
			for i, s := range a.ToStr {
				a.ToID[s] = i
			}
		}
	}
	if len(m.Weights) != m.Features.Size() {
		return fmt.Errorf("perceptron: %d weights for %d features", len(m.Weights), m.Features.Size())
	}
	for i, w := range m.Weights {
		if w < 0 {
			return fmt.Errorf("perceptron: negative weight %v for feature %q", w, m.Features.ToStr[i])
		}
	}
	return nil
}
