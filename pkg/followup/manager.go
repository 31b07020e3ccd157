package followup

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ai-diagnosis-be/pkg/textnorm"
)

// DefaultNegativeBoostMultiplier is applied to a question's boosts when the
// user answers "no". It must stay non-positive; a "no" can only reduce a
// condition's confidence.
const DefaultNegativeBoostMultiplier = -0.25

// Boost is a signed confidence adjustment toward one condition, attached to
// a follow-up question template. JSON field names match the knowledge base
// document format.
type Boost struct {
	Condition string  `json:"name"`
	Value     float64 `json:"value"`
}

// Template describes a follow-up question as it exists in the knowledge
// base: immutable metadata that the manager caches on first enqueue.
type Template struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Severity  int     `json:"severity"`
	Boosts    []Boost `json:"boosts,omitempty"`
	Condition string  `json:"condition,omitempty"`
}

// PendingQuestion is a queue entry derived from a template. BoostTotal is
// the sum of absolute boost magnitudes at enqueue time and drives the
// secondary priority key.
type PendingQuestion struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Severity   int     `json:"severity"`
	BoostTotal float64 `json:"boost_total"`
	Condition  string  `json:"condition,omitempty"`
	Seq        int     `json:"seq"`
	Asked      bool    `json:"asked"`
}

// AnswerRecord is one normalized answer with its timestamp. Re-answering a
// question overwrites the record (the boost contribution compounds, see
// RecordAnswer).
type AnswerRecord struct {
	Answer    Answer    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// ConditionBoost pairs a condition with its accumulated boost, used in
// progress summaries.
type ConditionBoost struct {
	Condition string  `json:"condition"`
	Boost     float64 `json:"boost"`
}

// Progress is a diagnostic summary of the manager's state.
type Progress struct {
	TotalPending         int              `json:"total_pending"`
	TotalAnswered        int              `json:"total_answered"`
	AnswersByType        map[string]int   `json:"answers_by_type"`
	PendingPerCondition  map[string]int   `json:"pending_per_condition"`
	TopConditionsByBoost []ConditionBoost `json:"top_conditions_by_boost"`
}

// Manager owns one conversation's follow-up state: the pending question
// queue, the answer ledger and the per-condition boost accumulator.
//
// It is not safe for concurrent use. A host serving multiple conversations
// must keep one Manager per session and serialize access per session key.
type Manager struct {
	pending     []PendingQuestion
	answers     map[string]AnswerRecord
	catalog     map[string]Template
	seen        map[string]struct{}
	boosts      map[string]float64
	byCondition map[string][]string
	seq         int

	negativeMultiplier float64
	fallbackToGlobal   bool
}

// NewManager creates an empty manager. negativeMultiplier is the scaling
// applied on "no" answers; positive values are rejected and replaced with
// the default. fallbackToGlobal controls whether PopNextForCondition falls
// back to a scope-agnostic pop when the condition has no pending questions.
func NewManager(negativeMultiplier float64, fallbackToGlobal bool) *Manager {
	if negativeMultiplier > 0 {
		negativeMultiplier = DefaultNegativeBoostMultiplier
	}
	m := &Manager{
		negativeMultiplier: negativeMultiplier,
		fallbackToGlobal:   fallbackToGlobal,
	}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.pending = nil
	m.answers = make(map[string]AnswerRecord)
	m.catalog = make(map[string]Template)
	m.seen = make(map[string]struct{})
	m.boosts = make(map[string]float64)
	m.byCondition = make(map[string][]string)
	m.seq = 0
}

// AddQuestions enqueues templates that have not been seen before and returns
// the number actually added. Templates without an id are skipped; templates
// whose id was ever enqueued (even if already popped) are skipped, which
// keeps re-scoring idempotent. scope, when non-empty, overrides the
// per-template condition scope.
func (m *Manager) AddQuestions(templates []Template, scope string) int {
	scopeKey := textnorm.Term(scope)

	added := 0
	for _, t := range templates {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			continue
		}
		if _, ok := m.seen[id]; ok {
			continue
		}

		condition := scopeKey
		if condition == "" {
			condition = textnorm.Term(t.Condition)
		}

		total := 0.0
		for _, b := range t.Boosts {
			total += math.Abs(b.Value)
		}

		meta := t
		meta.ID = id
		meta.Condition = condition
		m.catalog[id] = meta

		m.pending = append(m.pending, PendingQuestion{
			ID:         id,
			Text:       t.Text,
			Severity:   t.Severity,
			BoostTotal: total,
			Condition:  condition,
			Seq:        m.seq,
		})
		m.seq++
		m.seen[id] = struct{}{}
		if condition != "" {
			m.byCondition[condition] = append(m.byCondition[condition], id)
		}
		added++
	}

	if added > 0 {
		m.reorder()
	}
	return added
}

// reorder applies the priority relation: severity descending, boost total
// descending, insertion sequence ascending. A full stable resort is fine at
// session sizes (tens of questions); swap for a heap if that ever changes.
func (m *Manager) reorder() {
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.BoostTotal != b.BoostTotal {
			return a.BoostTotal > b.BoostTotal
		}
		return a.Seq < b.Seq
	})
}

// Peek returns a copy of the highest-priority pending question without
// removing it, or nil when the queue is empty.
func (m *Manager) Peek() *PendingQuestion {
	if len(m.pending) == 0 {
		return nil
	}
	m.reorder()
	q := m.pending[0]
	return &q
}

// PopNext removes and returns the highest-priority pending question, marked
// as asked. Returns nil when the queue is empty.
func (m *Manager) PopNext() *PendingQuestion {
	if len(m.pending) == 0 {
		return nil
	}
	m.reorder()
	q := m.pending[0]
	m.pending = m.pending[1:]
	q.Asked = true
	return &q
}

// PopNextForCondition pops the highest-priority question scoped to the given
// condition. With no scoped question pending it falls back to PopNext when
// the manager was configured with fallbackToGlobal; otherwise it returns nil.
func (m *Manager) PopNextForCondition(condition string) *PendingQuestion {
	key := textnorm.Term(condition)
	if key == "" {
		return m.PopNext()
	}

	m.reorder()
	for i, q := range m.pending {
		if q.Condition != key {
			continue
		}
		m.pending = append(m.pending[:i], m.pending[i+1:]...)
		q.Asked = true
		return &q
	}

	if m.fallbackToGlobal {
		return m.PopNext()
	}
	return nil
}

// HasPending reports whether any question is pending. With a non-empty
// condition it only considers questions scoped to that condition.
func (m *Manager) HasPending(condition string) bool {
	key := textnorm.Term(condition)
	if key == "" {
		return len(m.pending) > 0
	}
	for _, q := range m.pending {
		if q.Condition == key {
			return true
		}
	}
	return false
}

// RecordAnswer normalizes and stores an answer, then applies the question's
// boosts to the accumulator scaled by the answer category: 1.0 for yes, 0.5
// for a partial yes, the negative multiplier for no.
//
// Answers to ids unknown to the catalog are kept in the ledger for audit but
// apply no boost. Re-answering an already answered question overwrites the
// ledger entry but adds a further boost contribution on top of the first
// (compounding), matching the engine's established behavior.
func (m *Manager) RecordAnswer(questionID, rawAnswer string, timestamp time.Time) error {
	id := strings.TrimSpace(questionID)
	if id == "" {
		return fmt.Errorf("followup: question id is required")
	}
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	norm := NormalizeAnswer(rawAnswer)
	m.answers[id] = AnswerRecord{Answer: norm, Timestamp: timestamp}

	meta, ok := m.catalog[id]
	if !ok {
		return nil
	}

	mult := m.multiplierFor(norm)
	for _, b := range meta.Boosts {
		condition := textnorm.Term(b.Condition)
		if condition == "" {
			continue
		}
		m.boosts[condition] += b.Value * mult
	}
	return nil
}

func (m *Manager) multiplierFor(a Answer) float64 {
	switch a {
	case AnswerYes:
		return 1.0
	case AnswerNo:
		return m.negativeMultiplier
	default:
		return 0.5
	}
}

// DiseaseBoosts returns a snapshot of the accumulated per-condition boosts.
func (m *Manager) DiseaseBoosts() map[string]float64 {
	out := make(map[string]float64, len(m.boosts))
	for k, v := range m.boosts {
		out[k] = v
	}
	return out
}

// Answers returns a snapshot of the answer ledger.
func (m *Manager) Answers() map[string]AnswerRecord {
	out := make(map[string]AnswerRecord, len(m.answers))
	for k, v := range m.answers {
		out[k] = v
	}
	return out
}

// FollowupScore computes a normalized confidence in [0,1] for a condition
// from its follow-up answers: the realized boost contribution divided by the
// total possible contribution. Unanswered questions only count toward the
// possible total when includeUnasked is set.
func (m *Manager) FollowupScore(condition string, includeUnasked bool) float64 {
	key := textnorm.Term(condition)
	if key == "" {
		return 0.0
	}

	var qids []string
	if includeUnasked {
		qids = m.byCondition[key]
	} else {
		for _, qid := range m.byCondition[key] {
			if _, answered := m.answers[qid]; answered {
				qids = append(qids, qid)
			}
		}
	}

	possible := 0.0
	obtained := 0.0
	for _, qid := range qids {
		meta, ok := m.catalog[qid]
		if !ok {
			continue
		}
		record, answered := m.answers[qid]
		for _, b := range meta.Boosts {
			if textnorm.Term(b.Condition) != key {
				continue
			}
			val := math.Abs(b.Value)
			possible += val
			if !answered {
				continue
			}
			switch record.Answer {
			case AnswerYes:
				obtained += val
			case AnswerPartialYes:
				obtained += val * 0.5
			case AnswerNo:
				if m.negativeMultiplier < 0 {
					obtained += val * m.negativeMultiplier
				}
			}
		}
	}

	if possible <= 0 {
		return 0.0
	}
	return math.Max(0.0, math.Min(1.0, obtained/possible))
}

// SummarizeProgress returns counters useful for conversation diagnostics:
// how much is pending, what has been answered, and which conditions lead
// on accumulated boost (top 10).
func (m *Manager) SummarizeProgress() Progress {
	byType := make(map[string]int)
	for _, rec := range m.answers {
		byType[string(rec.Answer)]++
	}

	perCondition := make(map[string]int)
	for _, q := range m.pending {
		key := q.Condition
		if key == "" {
			key = "unknown"
		}
		perCondition[key]++
	}

	top := make([]ConditionBoost, 0, len(m.boosts))
	for condition, boost := range m.boosts {
		top = append(top, ConditionBoost{Condition: condition, Boost: boost})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Boost != top[j].Boost {
			return top[i].Boost > top[j].Boost
		}
		return top[i].Condition < top[j].Condition
	})
	if len(top) > 10 {
		top = top[:10]
	}

	return Progress{
		TotalPending:         len(m.pending),
		TotalAnswered:        len(m.answers),
		AnswersByType:        byType,
		PendingPerCondition:  perCondition,
		TopConditionsByBoost: top,
	}
}

// Clear resets the manager to its empty state, keeping only the configured
// negative multiplier and fallback flag.
func (m *Manager) Clear() {
	m.reset()
	if m.negativeMultiplier > 0 {
		m.negativeMultiplier = DefaultNegativeBoostMultiplier
	}
}

// NegativeBoostMultiplier exposes the configured multiplier, mainly for the
// snapshot codec and tests.
func (m *Manager) NegativeBoostMultiplier() float64 {
	return m.negativeMultiplier
}
