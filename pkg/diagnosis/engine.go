package diagnosis

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"ai-diagnosis-be/pkg/classifier"
	"ai-diagnosis-be/pkg/followup"
)

// Evidence source weights. The classifier carries most of the signal, rules
// refine it, the dataset overlap is a weak fallback.
const (
	weightClassifier = 0.6
	weightRule       = 0.3
	weightFallback   = 0.1
)

// DefaultTopK is the number of ranked candidates returned when the caller
// does not specify a limit.
const DefaultTopK = 3

// QuestionPreview is the caller-facing view of a follow-up question attached
// to a prediction.
type QuestionPreview struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Severity int    `json:"severity"`
}

// Prediction is one ranked candidate condition with its fused probability
// and the follow-up questions enqueued for it.
type Prediction struct {
	Condition         string            `json:"condition"`
	Probability       float64           `json:"probability"`
	FollowUpQuestions []QuestionPreview `json:"follow_up_questions"`
}

// Engine fuses the three evidence sources with the session's accumulated
// boosts into a ranked candidate list, and feeds candidate-scoped follow-up
// questions into the session's manager. All collaborators are injected;
// the engine holds no mutable state of its own and is safe to share.
type Engine struct {
	classifier classifier.Provider
	kb         *KnowledgeBase
	fallback   *FallbackDataset
	logger     *log.Logger
}

// NewEngine creates a scoring engine. classifier may be nil when no model
// service is configured; kb and fallback may be the empty implementations.
func NewEngine(clf classifier.Provider, kb *KnowledgeBase, fallback *FallbackDataset, logger *log.Logger) *Engine {
	if kb == nil {
		kb = EmptyKnowledgeBase()
	}
	if fallback == nil {
		fallback = EmptyFallbackDataset()
	}
	return &Engine{
		classifier: clf,
		kb:         kb,
		fallback:   fallback,
		logger:     logger,
	}
}

// Score runs one scoring pass over normalized text. Empty text returns an
// empty list without touching the evidence sources. A failing classifier
// contributes an empty map and the pass proceeds on rules and fallback.
// For every ranked candidate, its follow-up questions are enqueued into mgr
// scoped to that candidate (mgr may be nil for a boost-less one-shot pass).
func (e *Engine) Score(ctx context.Context, normalizedText string, mgr *followup.Manager, topK int) []Prediction {
	normalizedText = strings.TrimSpace(normalizedText)
	if normalizedText == "" {
		return []Prediction{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	mlScores := map[string]float64{}
	if e.classifier != nil {
		scores, err := e.classifier.Predict(ctx, normalizedText)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("[WARN] Classifier unavailable, scoring without it: %v", err)
			}
		} else {
			mlScores = scores
		}
	}

	ruleScores := e.kb.MatchScores(normalizedText)
	fallbackScores := e.fallback.OverlapScores(normalizedText)

	boosts := map[string]float64{}
	if mgr != nil {
		boosts = mgr.DiseaseBoosts()
	}

	fused := Fuse(mlScores, ruleScores, fallbackScores, boosts)

	type ranked struct {
		condition string
		score     float64
	}
	candidates := make([]ranked, 0, len(fused))
	for condition, score := range fused {
		if score > 0 {
			candidates = append(candidates, ranked{condition: condition, score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].condition < candidates[j].condition
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	predictions := make([]Prediction, 0, len(candidates))
	for _, c := range candidates {
		questions := e.kb.FollowUpsFor(c.condition)

		if mgr != nil && len(questions) > 0 {
			templates := make([]followup.Template, 0, len(questions))
			for _, q := range questions {
				templates = append(templates, followup.Template{
					ID:       q.ID,
					Text:     q.Question,
					Severity: q.Severity,
					Boosts:   q.Boosts,
				})
			}
			mgr.AddQuestions(templates, c.condition)
		}

		previews := make([]QuestionPreview, 0, len(questions))
		for _, q := range questions {
			previews = append(previews, QuestionPreview{ID: q.ID, Text: q.Question, Severity: q.Severity})
		}

		predictions = append(predictions, Prediction{
			Condition:         c.condition,
			Probability:       c.score,
			FollowUpQuestions: previews,
		})
	}

	return predictions
}

// Fuse combines the per-condition score maps into one final map:
// base = 0.6*classifier + 0.3*rule + 0.1*fallback, then the session boost is
// added and the result clamped to [0,1] and rounded to 4 decimals. Missing
// keys default to 0; every condition appearing in any input gets an entry.
func Fuse(classifierScores, ruleScores, fallbackScores, boosts map[string]float64) map[string]float64 {
	all := make(map[string]struct{})
	for _, m := range []map[string]float64{classifierScores, ruleScores, fallbackScores, boosts} {
		for k := range m {
			all[k] = struct{}{}
		}
	}

	merged := make(map[string]float64, len(all))
	for condition := range all {
		base := weightClassifier*classifierScores[condition] +
			weightRule*ruleScores[condition] +
			weightFallback*fallbackScores[condition]
		final := base + boosts[condition]
		final = math.Min(math.Max(final, 0.0), 1.0)
		merged[condition] = math.Round(final*10000) / 10000
	}
	return merged
}
