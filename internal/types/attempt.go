package types

import (
	"time"

	"github.com/google/uuid"
)

type AttemptKind string

const (
	AttemptKindQuiz           AttemptKind = "quiz"
	AttemptKindQuestionAnswer AttemptKind = "question_answer"
)

// AttemptRecord is a learner's recorded attempt at a quiz or question-answer
// content item. Score is nil until graded; ScoreFinalized marks a grade the
// learner may be shown.
type AttemptRecord struct {
	ItemID         uuid.UUID  `json:"item_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Score          *float64   `json:"score,omitempty"`
	MaxScore       float64    `json:"max_score"`
	ScoreFinalized bool       `json:"score_finalized"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

// AttemptScore is the display row the completion gate returns for a
// finalized attempt.
type AttemptScore struct {
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Type     string  `json:"type"`
}
