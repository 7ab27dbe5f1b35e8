package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrLanguageUnknown reports a language code outside the registry's
	// configured set.
	ErrLanguageUnknown = errors.New("language not supported")
	// ErrModelLoad indicates the loader failed to produce a model.
	ErrModelLoad = errors.New("model load failed")
	// ErrRegistryClosed reports use after Close.
	ErrRegistryClosed = errors.New("registry closed")
)

// DefaultLanguages is the language set served when none is configured.
var DefaultLanguages = []string{"pl", "jp", "sp", "ca", "en"}

// Predictor scores a text and returns a value in [0, 1].
type Predictor interface {
	Predict(ctx context.Context, text string) (float64, error)
	Close() error
}

// LoaderFunc produces the model for one language. It is called at most once
// per language for the registry's lifetime, on the first request that needs
// that language.
type LoaderFunc func(ctx context.Context, language string) (Predictor, error)

// Registry lazily loads and caches one [Predictor] per language. Concurrent
// first requests for the same language collapse into a single loader call;
// the losers wait for the winner's result instead of loading a duplicate.
type Registry struct {
	languages map[string]struct{}
	loader    LoaderFunc

	group  singleflight.Group
	mu     sync.RWMutex
	models map[string]Predictor
	closed bool
}

// NewRegistry creates a [Registry] serving the given language codes. An
// empty set falls back to [DefaultLanguages].
func NewRegistry(languages []string, loader LoaderFunc) (*Registry, error) {
	if loader == nil {
		return nil, errors.New("loader required")
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	set := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		set[lang] = struct{}{}
	}

	return &Registry{
		languages: set,
		loader:    loader,
		models:    make(map[string]Predictor, len(languages)),
	}, nil
}

// Supported reports whether language is in the registry's configured set.
func (r *Registry) Supported(language string) bool {
	_, ok := r.languages[language]
	return ok
}

// Languages returns the configured language codes in no particular order.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.languages))
	for lang := range r.languages {
		out = append(out, lang)
	}
	return out
}

// Predict scores text with the model for language, loading the model first
// if this is the language's first request.
func (r *Registry) Predict(ctx context.Context, language, text string) (float64, error) {
	model, err := r.get(ctx, language)
	if err != nil {
		return 0, err
	}
	return model.Predict(ctx, text)
}

func (r *Registry) get(ctx context.Context, language string) (Predictor, error) {
	if !r.Supported(language) {
		return nil, fmt.Errorf("%w: %q", ErrLanguageUnknown, language)
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRegistryClosed
	}
	if model, ok := r.models[language]; ok {
		r.mu.RUnlock()
		return model, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do(language, func() (any, error) {
		r.mu.RLock()
		model, ok := r.models[language]
		closed := r.closed
		r.mu.RUnlock()
		if closed {
			return nil, ErrRegistryClosed
		}
		if ok {
			return model, nil
		}

		loaded, err := r.loader(ctx, language)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = loaded.Close()
			return nil, ErrRegistryClosed
		}
		r.models[language] = loaded
		r.mu.Unlock()

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Predictor), nil
}

// Loaded reports whether the model for language is already resident.
func (r *Registry) Loaded(language string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.models[language]
	return ok
}

// Close releases every loaded model. Further Predict calls fail with
// [ErrRegistryClosed]. The first close error is returned; all models are
// closed regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var first error
	for lang, model := range r.models {
		if err := model.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing model %q: %w", lang, err)
		}
	}
	r.models = nil
	return first
}
