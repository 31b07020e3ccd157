package dto

import (
	"time"

	"ai-diagnosis-be/pkg/followup"
)

type CreateSessionResponse struct {
	Id string `json:"id"`
}

// ScoreRequest carries the free-form symptom text. Text is deliberately not
// required: an empty query is a valid request that yields an empty ranked
// list, not a validation error.
type ScoreRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k" validate:"omitempty,min=1,max=20"`
}

type FollowUpQuestionDTO struct {
	Id       string `json:"id"`
	Text     string `json:"text"`
	Severity int    `json:"severity"`
}

type PredictionDTO struct {
	Condition         string                `json:"condition"`
	Probability       float64               `json:"probability"`
	FollowUpQuestions []FollowUpQuestionDTO `json:"follow_up_questions"`
}

type ScoreResponse struct {
	SessionId   string          `json:"session_id"`
	Predictions []PredictionDTO `json:"predictions"`
}

type PendingQuestionDTO struct {
	Id         string  `json:"id"`
	Text       string  `json:"text"`
	Severity   int     `json:"severity"`
	Condition  string  `json:"condition,omitempty"`
	BoostTotal float64 `json:"boost_total"`
}

type NextQuestionResponse struct {
	Question *PendingQuestionDTO `json:"question"`
}

type RecordAnswerRequest struct {
	QuestionId string `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

type RecordAnswerResponse struct {
	QuestionId       string             `json:"question_id"`
	NormalizedAnswer string             `json:"normalized_answer"`
	RecordedAt       time.Time          `json:"recorded_at"`
	Boosts           map[string]float64 `json:"boosts"`
}

type BoostsResponse struct {
	Boosts map[string]float64 `json:"boosts"`
}

type ProgressResponse struct {
	Progress followup.Progress `json:"progress"`
}
