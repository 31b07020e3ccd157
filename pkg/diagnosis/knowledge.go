package diagnosis

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"unicode"

	"ai-diagnosis-be/pkg/followup"
	"ai-diagnosis-be/pkg/textnorm"

	"github.com/go-playground/validator/v10"
)

const (
	// ruleMatchThreshold is the minimum weighted score for a rule to
	// contribute to a condition.
	ruleMatchThreshold = 0.25
	// keySymptomBoost is added per follow-up question text found verbatim
	// in the user's query.
	keySymptomBoost = 0.10
	// maxQuestionsPerCondition caps follow-ups returned for one condition.
	maxQuestionsPerCondition = 4
	// defaultConditionScore is used when a rule's condition omits a base score.
	defaultConditionScore = 0.5
)

// Condition is one candidate diagnosis named by a rule, with its base score.
type Condition struct {
	Name  string
	Score float64
}

// FollowUp is a clarifying question attached to a rule.
type FollowUp struct {
	ID       string
	Question string
	Severity int
	Boosts   []followup.Boost
}

// Rule maps a set of symptoms to candidate conditions and their follow-up
// questions. Rules are immutable after loading.
type Rule struct {
	Symptoms   []string
	Conditions []Condition
	FollowUps  []FollowUp
}

// KnowledgeBase holds the loaded rules with a per-condition index for
// follow-up retrieval.
type KnowledgeBase struct {
	rules       []Rule
	byCondition map[string][]int
}

// --- Document structs (wire format of the knowledge base JSON) ---

type kbDocument struct {
	Rules []kbRule `json:"rules"`
}

type kbRule struct {
	Symptoms   []string      `json:"symptoms" validate:"min=1"`
	Conditions []kbCondition `json:"conditions" validate:"min=1,dive"`
	FollowUps  []kbFollowUp  `json:"follow_ups" validate:"dive"`
}

type kbCondition struct {
	Name  string   `json:"name" validate:"required"`
	Score *float64 `json:"score"`
}

type kbFollowUp struct {
	ID       string           `json:"id" validate:"required"`
	Question string           `json:"question" validate:"required"`
	Severity int              `json:"severity" validate:"min=0"`
	Boosts   []followup.Boost `json:"boosts" validate:"dive"`
}

// NewKnowledgeBase builds a knowledge base from already-validated rules.
// Symptom and condition names are expected to be normalized.
func NewKnowledgeBase(rules []Rule) *KnowledgeBase {
	kb := &KnowledgeBase{
		rules:       rules,
		byCondition: make(map[string][]int),
	}
	for i, rule := range rules {
		for _, cond := range rule.Conditions {
			if cond.Name == "" {
				continue
			}
			kb.byCondition[cond.Name] = append(kb.byCondition[cond.Name], i)
		}
	}
	return kb
}

// EmptyKnowledgeBase returns a knowledge base with no rules; rule-based
// matching is effectively disabled.
func EmptyKnowledgeBase() *KnowledgeBase {
	return NewKnowledgeBase(nil)
}

// LoadKnowledgeBase reads and indexes the JSON knowledge base document.
// Malformed rules are skipped with a logged warning, never fatal; only an
// unreadable or undecodable file produces an error.
func LoadKnowledgeBase(path string, logger *log.Logger) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	var doc kbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}

	validate := validator.New()
	rules := make([]Rule, 0, len(doc.Rules))
	for i, raw := range doc.Rules {
		if err := validate.Struct(raw); err != nil {
			if logger != nil {
				logger.Printf("[WARN] Skipping malformed knowledge base rule %d: %v", i, err)
			}
			continue
		}
		rules = append(rules, normalizeRule(raw))
	}

	if logger != nil {
		logger.Printf("[INFO] Knowledge base loaded: %d rules (%d skipped)", len(rules), len(doc.Rules)-len(rules))
	}
	return NewKnowledgeBase(rules), nil
}

func normalizeRule(raw kbRule) Rule {
	rule := Rule{}

	for _, s := range raw.Symptoms {
		if term := textnorm.Term(s); term != "" {
			rule.Symptoms = append(rule.Symptoms, term)
		}
	}

	for _, c := range raw.Conditions {
		name := textnorm.Term(c.Name)
		if name == "" {
			continue
		}
		score := defaultConditionScore
		if c.Score != nil {
			score = *c.Score
		}
		rule.Conditions = append(rule.Conditions, Condition{Name: name, Score: score})
	}

	for _, f := range raw.FollowUps {
		boosts := make([]followup.Boost, 0, len(f.Boosts))
		for _, b := range f.Boosts {
			name := textnorm.Term(b.Condition)
			if name == "" {
				continue
			}
			boosts = append(boosts, followup.Boost{Condition: name, Value: b.Value})
		}
		rule.FollowUps = append(rule.FollowUps, FollowUp{
			ID:       strings.TrimSpace(f.ID),
			Question: strings.TrimSpace(f.Question),
			Severity: f.Severity,
			Boosts:   boosts,
		})
	}

	return rule
}

// Len returns the number of loaded rules.
func (kb *KnowledgeBase) Len() int {
	return len(kb.rules)
}

// MatchScores is the rule-based evidence source. For each rule it counts the
// symptom phrases whose words are all present in the query token set,
// weights the rule's best condition score by that ratio, adds a small boost
// per follow-up question text appearing verbatim in the query, and keeps
// scores that clear the match threshold. When several rules score the same
// condition, the maximum wins.
func (kb *KnowledgeBase) MatchScores(normalizedText string) map[string]float64 {
	scores := make(map[string]float64)
	if len(kb.rules) == 0 || normalizedText == "" {
		return scores
	}

	tokens := tokenSet(normalizedText)

	for _, rule := range kb.rules {
		if len(rule.Symptoms) == 0 {
			continue
		}

		matched := 0
		for _, symptom := range rule.Symptoms {
			if phraseInTokens(symptom, tokens) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		ratio := float64(matched) / float64(len(rule.Symptoms))

		keyHits := 0
		for _, f := range rule.FollowUps {
			q := strings.ToLower(f.Question)
			if q != "" && strings.Contains(normalizedText, q) {
				keyHits++
			}
		}

		condScore := 0.0
		if len(rule.Conditions) == 0 {
			condScore = defaultConditionScore
		}
		for _, c := range rule.Conditions {
			if c.Score > condScore {
				condScore = c.Score
			}
		}

		weighted := condScore*ratio + keySymptomBoost*float64(keyHits)
		if weighted < ruleMatchThreshold {
			continue
		}

		for _, c := range rule.Conditions {
			if weighted > scores[c.Name] {
				scores[c.Name] = weighted
			}
		}
	}

	return scores
}

// FollowUpsFor returns the follow-up questions relevant to a condition,
// de-duplicated by punctuation-stripped text, ordered by severity descending
// and capped at maxQuestionsPerCondition.
func (kb *KnowledgeBase) FollowUpsFor(condition string) []FollowUp {
	key := textnorm.Term(condition)
	indices := kb.byCondition[key]
	if len(indices) == 0 {
		return nil
	}

	seenText := make(map[string]struct{})
	var questions []FollowUp
	for _, idx := range indices {
		for _, f := range kb.rules[idx].FollowUps {
			if f.ID == "" || f.Question == "" {
				continue
			}
			textKey := stripPunctuation(strings.ToLower(f.Question))
			if _, dup := seenText[textKey]; dup {
				continue
			}
			seenText[textKey] = struct{}{}
			questions = append(questions, f)
		}
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Severity > questions[j].Severity
	})
	if len(questions) > maxQuestionsPerCondition {
		questions = questions[:maxQuestionsPerCondition]
	}
	return questions
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// phraseInTokens reports whether every word of a (possibly multi-word)
// symptom phrase is present in the query token set.
func phraseInTokens(phrase string, tokens map[string]struct{}) bool {
	for _, word := range strings.Fields(phrase) {
		if _, ok := tokens[word]; !ok {
			return false
		}
	}
	return true
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
