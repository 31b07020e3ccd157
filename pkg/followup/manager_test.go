package followup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBoostTemplate(id string) Template {
	return Template{
		ID:       id,
		Text:     "Do you have a fever?",
		Severity: 3,
		Boosts: []Boost{
			{Condition: "flu", Value: 0.3},
			{Condition: "cold", Value: 0.1},
		},
	}
}

func TestAddQuestionsPriorityOrder(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)

	added := m.AddQuestions([]Template{
		{ID: "q1", Text: "one", Severity: 1, Boosts: []Boost{{Condition: "flu", Value: 0.1}}},
		{ID: "q2", Text: "two", Severity: 5, Boosts: []Boost{{Condition: "flu", Value: 0.1}}},
		{ID: "q3", Text: "three", Severity: 3, Boosts: []Boost{{Condition: "flu", Value: 0.5}}},
		{ID: "q4", Text: "four", Severity: 5, Boosts: []Boost{{Condition: "flu", Value: 0.5}}},
	}, "")
	require.Equal(t, 4, added)

	// Severity first, boost total second, insertion order last.
	var order []string
	for q := m.PopNext(); q != nil; q = m.PopNext() {
		order = append(order, q.ID)
		assert.True(t, q.Asked)
	}
	assert.Equal(t, []string{"q4", "q2", "q3", "q1"}, order)
}

func TestAddQuestionsIdempotent(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)

	first := m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")
	require.Equal(t, 1, first)

	second := m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")
	assert.Equal(t, 0, second)
	assert.Len(t, m.Export().PendingQuestions, 1)

	// Popped questions stay seen: a later re-score must not resurrect them.
	require.NotNil(t, m.PopNext())
	third := m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")
	assert.Equal(t, 0, third)
	assert.Nil(t, m.Peek())
}

func TestAddQuestionsSkipsBlankIDs(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)

	added := m.AddQuestions([]Template{
		{ID: "", Text: "no id", Severity: 5},
		{ID: "   ", Text: "blank id", Severity: 5},
		{ID: "q1", Text: "kept", Severity: 1},
	}, "")
	assert.Equal(t, 1, added)
	assert.Equal(t, "q1", m.Peek().ID)
}

func TestRecordAnswerBoostScaling(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   map[string]float64
	}{
		{"yes applies full boost", "yes", map[string]float64{"flu": 0.3, "cold": 0.1}},
		{"no applies negative multiplier", "no", map[string]float64{"flu": -0.15, "cold": -0.05}},
		{"unrecognized applies half boost", "maybe", map[string]float64{"flu": 0.15, "cold": 0.05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(-0.5, true)
			m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")

			err := m.RecordAnswer("q1", tt.answer, time.Now())
			require.NoError(t, err)

			got := m.DiseaseBoosts()
			require.Len(t, got, len(tt.want))
			for condition, want := range tt.want {
				assert.InDelta(t, want, got[condition], 1e-9, condition)
			}
		})
	}
}

func TestRecordAnswerCompounds(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)
	m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")

	require.NoError(t, m.RecordAnswer("q1", "yes", time.Now()))
	require.NoError(t, m.RecordAnswer("q1", "yes", time.Now()))

	// The ledger keeps one record, the accumulator keeps both contributions.
	assert.Len(t, m.Answers(), 1)
	assert.InDelta(t, 0.6, m.DiseaseBoosts()["flu"], 1e-9)
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)

	err := m.RecordAnswer("ghost", "yes", time.Now())
	require.NoError(t, err)

	assert.Len(t, m.DiseaseBoosts(), 0)
	rec, ok := m.Answers()["ghost"]
	require.True(t, ok)
	assert.Equal(t, AnswerYes, rec.Answer)
}

func TestRecordAnswerRequiresID(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)
	assert.Error(t, m.RecordAnswer("  ", "yes", time.Now()))
}

func TestPositiveMultiplierRejected(t *testing.T) {
	m := NewManager(0.75, true)
	assert.Equal(t, DefaultNegativeBoostMultiplier, m.NegativeBoostMultiplier())
}

func TestPopNextForCondition(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, false)
	m.AddQuestions([]Template{
		{ID: "q1", Text: "flu question", Severity: 5, Condition: "flu"},
		{ID: "q2", Text: "cold question", Severity: 3, Condition: "cold"},
	}, "")

	q := m.PopNextForCondition("Cold")
	require.NotNil(t, q)
	assert.Equal(t, "q2", q.ID)

	// No more cold questions and no global fallback configured.
	assert.Nil(t, m.PopNextForCondition("cold"))
	assert.True(t, m.HasPending(""))
	assert.True(t, m.HasPending("flu"))
	assert.False(t, m.HasPending("cold"))
}

func TestPopNextForConditionGlobalFallback(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)
	m.AddQuestions([]Template{
		{ID: "q1", Text: "flu question", Severity: 5, Condition: "flu"},
	}, "")

	q := m.PopNextForCondition("migraine")
	require.NotNil(t, q)
	assert.Equal(t, "q1", q.ID)
	assert.Nil(t, m.PopNextForCondition("migraine"))
}

func TestFollowupScore(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)
	m.AddQuestions([]Template{
		{ID: "q1", Severity: 3, Condition: "flu", Boosts: []Boost{{Condition: "flu", Value: 0.3}}},
		{ID: "q2", Severity: 3, Condition: "flu", Boosts: []Boost{{Condition: "flu", Value: 0.1}}},
	}, "")

	require.NoError(t, m.RecordAnswer("q1", "yes", time.Now()))

	// Answered only: 0.3 / 0.3.
	assert.InDelta(t, 1.0, m.FollowupScore("flu", false), 1e-9)
	// Including unasked: 0.3 / 0.4.
	assert.InDelta(t, 0.75, m.FollowupScore("flu", true), 1e-9)

	assert.Zero(t, m.FollowupScore("", true))
	assert.Zero(t, m.FollowupScore("unknown", true))
}

func TestSummarizeProgress(t *testing.T) {
	m := NewManager(DefaultNegativeBoostMultiplier, true)
	m.AddQuestions([]Template{
		{ID: "q1", Severity: 5, Condition: "flu", Boosts: []Boost{{Condition: "flu", Value: 0.3}}},
		{ID: "q2", Severity: 3, Condition: "flu"},
		{ID: "q3", Severity: 2, Condition: "cold"},
	}, "")
	require.NoError(t, m.RecordAnswer("q1", "yes", time.Now()))

	p := m.SummarizeProgress()
	assert.Equal(t, 3, p.TotalPending)
	assert.Equal(t, 1, p.TotalAnswered)
	assert.Equal(t, 1, p.AnswersByType["yes"])
	assert.Equal(t, 2, p.PendingPerCondition["flu"])
	assert.Equal(t, 1, p.PendingPerCondition["cold"])
	require.Len(t, p.TopConditionsByBoost, 1)
	assert.Equal(t, "flu", p.TopConditionsByBoost[0].Condition)
}

func TestClear(t *testing.T) {
	m := NewManager(-0.5, true)
	m.AddQuestions([]Template{twoBoostTemplate("q1")}, "")
	require.NoError(t, m.RecordAnswer("q1", "yes", time.Now()))

	m.Clear()

	assert.Nil(t, m.Peek())
	assert.Len(t, m.Answers(), 0)
	assert.Len(t, m.DiseaseBoosts(), 0)
	assert.Equal(t, -0.5, m.NegativeBoostMultiplier())

	// Seen set is gone too, so the same question can be enqueued again.
	assert.Equal(t, 1, m.AddQuestions([]Template{twoBoostTemplate("q1")}, ""))
}
