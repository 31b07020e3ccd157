package events

import "time"

// Diagnosis event type codes.
const (
	TypeDiagnosisCompleted = "DIAGNOSIS_COMPLETED"
	TypeAnswerRecorded     = "ANSWER_RECORDED"
	TypeSessionCleared     = "SESSION_CLEARED"
)

// NewDiagnosisCompleted is emitted after a scoring pass, carrying the ranked
// candidate names and their probabilities for the audit trail.
func NewDiagnosisCompleted(sessionID string, candidates map[string]float64) Event {
	return BaseEvent{
		Type: TypeDiagnosisCompleted,
		Data: map[string]interface{}{
			"type":       TypeDiagnosisCompleted,
			"session_id": sessionID,
			"candidates": candidates,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewAnswerRecorded is emitted when a follow-up answer is recorded.
func NewAnswerRecorded(sessionID, questionID, normalizedAnswer string) Event {
	return BaseEvent{
		Type: TypeAnswerRecorded,
		Data: map[string]interface{}{
			"type":        TypeAnswerRecorded,
			"session_id":  sessionID,
			"question_id": questionID,
			"answer":      normalizedAnswer,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewSessionCleared is emitted when a session is destroyed or reset.
func NewSessionCleared(sessionID string) Event {
	return BaseEvent{
		Type: TypeSessionCleared,
		Data: map[string]interface{}{
			"type":       TypeSessionCleared,
			"session_id": sessionID,
		},
		OccurredAt: time.Now().UTC(),
	}
}
