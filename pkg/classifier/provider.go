package classifier

import "context"

// Provider is the contract for the statistical classifier evidence source:
// given normalized text, return a probability per condition label.
// Probabilities are treated as independent per-label confidences and need
// not sum to 1. An error means the source is unavailable for this call; the
// engine degrades to the remaining sources, it never fails the scoring pass.
type Provider interface {
	Predict(ctx context.Context, normalizedText string) (map[string]float64, error)
}
