package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKnowledgeBase = `{
  "rules": [
    {
      "symptoms": ["fever", "sore throat"],
      "conditions": [{"name": "Flu", "score": 0.8}, {"name": "Common_Cold", "score": 0.6}],
      "follow_ups": [
        {"id": "q1", "question": "chills", "severity": 4, "boosts": [{"name": "flu", "value": 0.3}]},
        {"id": "q2", "question": "Do you have body aches?", "severity": 2}
      ]
    },
    {
      "symptoms": ["headache"],
      "conditions": []
    },
    {
      "symptoms": [],
      "conditions": [{"name": "orphan"}]
    }
  ]
}`

func TestLoadKnowledgeBaseSkipsMalformedRules(t *testing.T) {
	path := writeTempFile(t, "kb.json", sampleKnowledgeBase)

	kb, err := LoadKnowledgeBase(path, discardLogger())
	require.NoError(t, err)

	// The two rules failing validation (no conditions, no symptoms) are
	// dropped, the valid one survives.
	assert.Equal(t, 1, kb.Len())
}

func TestLoadKnowledgeBaseMissingFile(t *testing.T) {
	_, err := LoadKnowledgeBase("/nonexistent/kb.json", discardLogger())
	assert.Error(t, err)
}

func TestLoadKnowledgeBaseInvalidJSON(t *testing.T) {
	path := writeTempFile(t, "kb.json", "{not json")
	_, err := LoadKnowledgeBase(path, discardLogger())
	assert.Error(t, err)
}

func TestLoadKnowledgeBaseNormalizesNames(t *testing.T) {
	path := writeTempFile(t, "kb.json", sampleKnowledgeBase)
	kb, err := LoadKnowledgeBase(path, discardLogger())
	require.NoError(t, err)

	scores := kb.MatchScores("fever and sore throat")
	assert.Contains(t, scores, "flu")
	assert.Contains(t, scores, "common cold")
}

func TestMatchScoresFullAndPartialMatch(t *testing.T) {
	kb := NewKnowledgeBase([]Rule{{
		Symptoms:   []string{"fever", "sore throat"},
		Conditions: []Condition{{Name: "flu", Score: 0.8}},
	}})

	// Both phrases matched: 0.8 * 2/2.
	full := kb.MatchScores("i have a fever and a sore throat")
	assert.InDelta(t, 0.8, full["flu"], 1e-9)

	// One of two matched: 0.8 * 1/2.
	partial := kb.MatchScores("just a fever")
	assert.InDelta(t, 0.4, partial["flu"], 1e-9)

	// Multi-word phrases need every word present as a token.
	missing := kb.MatchScores("my throat hurts")
	assert.Empty(t, missing)
}

func TestMatchScoresThreshold(t *testing.T) {
	kb := NewKnowledgeBase([]Rule{{
		Symptoms:   []string{"fever", "cough", "chills", "fatigue", "nausea"},
		Conditions: []Condition{{Name: "flu", Score: 0.8}},
	}})

	// 0.8 * 1/5 = 0.16, below the threshold.
	assert.Empty(t, kb.MatchScores("fever"))

	// 0.8 * 2/5 = 0.32, above it.
	got := kb.MatchScores("fever and cough")
	assert.InDelta(t, 0.32, got["flu"], 1e-9)
}

func TestMatchScoresKeySymptomBoost(t *testing.T) {
	kb := NewKnowledgeBase([]Rule{{
		Symptoms:   []string{"fever"},
		Conditions: []Condition{{Name: "flu", Score: 0.5}},
		FollowUps: []FollowUp{
			{ID: "q1", Question: "chills", Severity: 3},
		},
	}})

	// 0.5 * 1/1 + 0.10 for the question text appearing in the query.
	got := kb.MatchScores("fever with chills")
	assert.InDelta(t, 0.6, got["flu"], 1e-9)
}

func TestMatchScoresMaxWinsAcrossRules(t *testing.T) {
	kb := NewKnowledgeBase([]Rule{
		{
			Symptoms:   []string{"fever"},
			Conditions: []Condition{{Name: "flu", Score: 0.4}},
		},
		{
			Symptoms:   []string{"chills"},
			Conditions: []Condition{{Name: "flu", Score: 0.9}},
		},
	})

	got := kb.MatchScores("fever and chills")
	assert.InDelta(t, 0.9, got["flu"], 1e-9)
}

func TestFollowUpsForDedupAndCap(t *testing.T) {
	kb := NewKnowledgeBase([]Rule{
		{
			Symptoms:   []string{"fever"},
			Conditions: []Condition{{Name: "flu", Score: 0.8}},
			FollowUps: []FollowUp{
				{ID: "q1", Question: "Do you have chills?", Severity: 2},
				{ID: "q2", Question: "Any nausea?", Severity: 5},
				{ID: "q3", Question: "Trouble breathing?", Severity: 4},
			},
		},
		{
			Symptoms:   []string{"cough"},
			Conditions: []Condition{{Name: "flu", Score: 0.6}},
			FollowUps: []FollowUp{
				// Same text as q1 modulo punctuation, dropped as duplicate.
				{ID: "q4", Question: "do you have chills", Severity: 5},
				{ID: "q5", Question: "Night sweats?", Severity: 3},
				{ID: "q6", Question: "Loss of appetite?", Severity: 1},
			},
		},
	})

	got := kb.FollowUpsFor("Flu")
	require.Len(t, got, maxQuestionsPerCondition)
	assert.Equal(t, "q2", got[0].ID)
	assert.Equal(t, "q3", got[1].ID)
	assert.Equal(t, "q5", got[2].ID)
	assert.Equal(t, "q1", got[3].ID)

	assert.Nil(t, kb.FollowUpsFor("unknown"))
}
