package goGate

import (
	"context"
	"errors"
	"fmt"

	"github.com/InsightGuard/goGate/inference"
)

// Predict describes the predict operation and its observable behavior.
//
// Predict may return an error when input validation, dependency calls, or security checks fail.
// Predict does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Predict(ctx context.Context, key, text, language string) (PredictionResult, error) {
	if e == nil || e.models == nil {
		return PredictionResult{}, ErrEngineNotReady
	}

	record, err := e.VerifyKey(ctx, key)
	if err != nil {
		return PredictionResult{}, err
	}

	// Language is checked before the model loads so an unsupported code
	// never triggers a load attempt.
	if !e.models.Supported(language) {
		e.metricInc(MetricPredictFailure)
		e.emitAudit(ctx, auditEventPredictFailure, false, record.UserID, ErrLanguageUnsupported, func() map[string]string {
			return map[string]string{"language": language}
		})
		return PredictionResult{}, ErrLanguageUnsupported
	}

	score, err := e.models.Predict(ctx, language, text)
	if err != nil {
		e.metricInc(MetricPredictFailure)
		if errors.Is(err, inference.ErrLanguageUnknown) {
			return PredictionResult{}, ErrLanguageUnsupported
		}
		e.emitAudit(ctx, auditEventPredictFailure, false, record.UserID, ErrPredictionFailed, func() map[string]string {
			return map[string]string{"language": language}
		})
		return PredictionResult{}, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}

	e.recordKeyUse(ctx, record)
	e.metricInc(MetricPredictSuccess)
	e.emitAudit(ctx, auditEventPredictSuccess, true, record.UserID, nil, func() map[string]string {
		return map[string]string{"language": language}
	})

	return PredictionResult{
		Prediction: score,
		Text:       text,
		Language:   language,
	}, nil
}
