package goGate

import (
	"context"

	"github.com/InsightGuard/goGate/password"
)

// PasswordStrength scores a candidate password in [0, 1]. The caller must
// present a valid API key; the scorer itself is stateless.
func (e *Engine) PasswordStrength(ctx context.Context, key, candidate string) (float64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	record, err := e.VerifyKey(ctx, key)
	if err != nil {
		return 0, err
	}

	score := password.Strength(candidate)
	e.recordKeyUse(ctx, record)
	return score, nil
}

// GeneratePassword produces a random password satisfying spec. The caller
// must present a valid API key.
func (e *Engine) GeneratePassword(ctx context.Context, key string, spec PasswordSpec) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	record, err := e.VerifyKey(ctx, key)
	if err != nil {
		return "", err
	}

	generated, err := password.Generate(password.Spec{
		Length:           spec.Length,
		IncludeUppercase: spec.IncludeUppercase,
		IncludeLowercase: spec.IncludeLowercase,
		IncludeDigits:    spec.IncludeDigits,
		IncludeSpecial:   spec.IncludeSpecial,
		ExcludeSimilar:   spec.ExcludeSimilar,
		ExcludeAmbiguous: spec.ExcludeAmbiguous,
	})
	if err != nil {
		return "", ErrPasswordPolicy
	}

	e.recordKeyUse(ctx, record)
	return generated, nil
}
