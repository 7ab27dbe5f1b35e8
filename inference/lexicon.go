package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// LexiconModel scores texts by summing per-token weights and squashing the
// total through a logistic function. Weight files are produced offline, one
// per language.
type LexiconModel struct {
	language string
	bias     float64
	weights  map[string]float64
}

type lexiconFile struct {
	Language string             `json:"language"`
	Bias     float64            `json:"bias"`
	Weights  map[string]float64 `json:"weights"`
}

// LoadLexiconModel reads a weight file from disk.
func LoadLexiconModel(path string) (*LexiconModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}

	var file lexiconFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	if len(file.Weights) == 0 {
		return nil, fmt.Errorf("lexicon %s has no weights", path)
	}

	return &LexiconModel{
		language: file.Language,
		bias:     file.Bias,
		weights:  file.Weights,
	}, nil
}

// Predict scores text in [0, 1].
func (m *LexiconModel) Predict(_ context.Context, text string) (float64, error) {
	total := m.bias
	for _, token := range tokenize(text) {
		total += m.weights[token]
	}
	return 1 / (1 + math.Exp(-total)), nil
}

// Close releases nothing; lexicon weights are plain memory.
func (m *LexiconModel) Close() error { return nil }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// DirLoader returns a [LoaderFunc] that resolves each language to
// "<dir>/<language>.json" and loads it as a lexicon model.
func DirLoader(dir string) LoaderFunc {
	return func(_ context.Context, language string) (Predictor, error) {
		return LoadLexiconModel(filepath.Join(dir, language+".json"))
	}
}
