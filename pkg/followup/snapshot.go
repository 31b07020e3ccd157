package followup

import (
	"encoding/json"
	"strings"
)

// Snapshot is the flat, JSON-serializable form of a Manager's full state.
// External stores should treat the structure as opaque; only the manager
// guarantees it round-trips.
type Snapshot struct {
	PendingQuestions        []PendingQuestion       `json:"pending_questions"`
	Answers                 map[string]AnswerRecord `json:"answers"`
	Catalog                 map[string]Template     `json:"question_catalog"`
	SeenQuestionIDs         []string                `json:"seen_question_ids"`
	ConditionBoosts         map[string]any          `json:"condition_boosts"`
	QuestionsByCondition    map[string][]string     `json:"questions_by_condition"`
	SequenceCounter         int                     `json:"sequence_counter"`
	NegativeBoostMultiplier float64                 `json:"negative_boost_multiplier"`
}

// Export produces a snapshot of the manager's state, including the set of
// all ever-seen question ids so that idempotent re-enqueue keeps working
// after a restore.
func (m *Manager) Export() Snapshot {
	pending := make([]PendingQuestion, len(m.pending))
	copy(pending, m.pending)

	answers := make(map[string]AnswerRecord, len(m.answers))
	for k, v := range m.answers {
		answers[k] = v
	}

	catalog := make(map[string]Template, len(m.catalog))
	for k, v := range m.catalog {
		catalog[k] = v
	}

	seen := make([]string, 0, len(m.seen))
	for id := range m.seen {
		seen = append(seen, id)
	}

	boosts := make(map[string]any, len(m.boosts))
	for k, v := range m.boosts {
		boosts[k] = v
	}

	byCondition := make(map[string][]string, len(m.byCondition))
	for k, v := range m.byCondition {
		ids := make([]string, len(v))
		copy(ids, v)
		byCondition[k] = ids
	}

	return Snapshot{
		PendingQuestions:        pending,
		Answers:                 answers,
		Catalog:                 catalog,
		SeenQuestionIDs:         seen,
		ConditionBoosts:         boosts,
		QuestionsByCondition:    byCondition,
		SequenceCounter:         m.seq,
		NegativeBoostMultiplier: m.negativeMultiplier,
	}
}

// Import replaces the manager's state with the snapshot contents. Every
// field is validated defensively: queue entries without an id are dropped,
// boost values that fail float coercion default to 0 and catalog entries
// keyed by an empty id are discarded. The queue is re-sorted before use.
func (m *Manager) Import(s Snapshot) {
	m.Clear()

	for _, q := range s.PendingQuestions {
		if strings.TrimSpace(q.ID) == "" {
			continue
		}
		m.pending = append(m.pending, q)
	}

	for id, rec := range s.Answers {
		if strings.TrimSpace(id) == "" {
			continue
		}
		rec.Answer = NormalizeAnswer(string(rec.Answer))
		m.answers[id] = rec
	}

	for id, t := range s.Catalog {
		if strings.TrimSpace(id) == "" {
			continue
		}
		t.ID = id
		m.catalog[id] = t
	}

	for _, id := range s.SeenQuestionIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		m.seen[id] = struct{}{}
	}
	// Pending and cataloged ids are seen by definition; re-deriving them
	// keeps idempotence intact even for snapshots from older writers.
	for _, q := range m.pending {
		m.seen[q.ID] = struct{}{}
	}
	for id := range m.catalog {
		m.seen[id] = struct{}{}
	}

	for condition, v := range s.ConditionBoosts {
		if strings.TrimSpace(condition) == "" {
			continue
		}
		m.boosts[condition] = coerceFloat(v)
	}

	for condition, ids := range s.QuestionsByCondition {
		if strings.TrimSpace(condition) == "" {
			continue
		}
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) != "" {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			m.byCondition[condition] = kept
		}
	}

	if s.SequenceCounter > 0 {
		m.seq = s.SequenceCounter
	}
	if s.NegativeBoostMultiplier < 0 {
		m.negativeMultiplier = s.NegativeBoostMultiplier
	}

	m.reorder()
}

// ExportJSON marshals the exported snapshot.
func (m *Manager) ExportJSON() ([]byte, error) {
	return json.Marshal(m.Export())
}

// ImportJSON restores state from a JSON snapshot. A corrupt payload resets
// the manager to the empty state instead of failing: conversational
// continuity is better served by a fresh session than by an error.
func (m *Manager) ImportJSON(data []byte) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		m.Clear()
		return
	}
	m.Import(s)
}

func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0.0
		}
		return f
	case string:
		var f float64
		if err := json.Unmarshal([]byte(x), &f); err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}
