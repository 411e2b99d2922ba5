package types

import (
	"time"

	"github.com/google/uuid"
)

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ProgressRecord is the per-learner, per-module record the document store
// writes on every navigation. Once Status is completed the stored current
// position is display-only; every chapter counts as complete.
type ProgressRecord struct {
	UserID         uuid.UUID      `json:"user_id"`
	ModuleID       uuid.UUID      `json:"module_id"`
	Status         ProgressStatus `json:"status"`
	CurrentLesson  uuid.UUID      `json:"current_lesson,omitempty"`
	CurrentChapter uuid.UUID      `json:"current_chapter,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

const (
	PositionTypeLesson  = "Lesson"
	PositionTypeChapter = "Chapter"
)

type Position struct {
	Type        string    `json:"type"`
	ReferenceID uuid.UUID `json:"reference_id"`
}

// CompletionData is the derived per-learner, per-module aggregate. It is
// recomputed from its inputs and never persisted as ground truth.
type CompletionData struct {
	CompletedLessons   []uuid.UUID `json:"completed_lessons"`
	CompletedChapters  []uuid.UUID `json:"completed_chapters"`
	InProgressChapters []uuid.UUID `json:"in_progress_chapters"`
	CurrentPosition    *Position   `json:"current_position,omitempty"`
	TotalLessons       int         `json:"total_lessons"`
	TotalChapters      int         `json:"total_chapters"`
	OverallProgress    int         `json:"overall_progress"`
}

func (cd *CompletionData) HasChapter(id uuid.UUID) bool {
	if cd == nil {
		return false
	}
	for _, c := range cd.CompletedChapters {
		if c == id {
			return true
		}
	}
	return false
}

func (cd *CompletionData) HasLesson(id uuid.UUID) bool {
	if cd == nil {
		return false
	}
	for _, l := range cd.CompletedLessons {
		if l == id {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the aggregate carries no completion signal at all.
// An empty fetch result is legitimate and callers fall back to the
// positional computation.
func (cd *CompletionData) IsEmpty() bool {
	if cd == nil {
		return true
	}
	return len(cd.CompletedLessons) == 0 &&
		len(cd.CompletedChapters) == 0 &&
		len(cd.InProgressChapters) == 0 &&
		cd.CurrentPosition == nil
}

func (cd *CompletionData) Clone() CompletionData {
	if cd == nil {
		return CompletionData{}
	}
	out := *cd
	out.CompletedLessons = append([]uuid.UUID(nil), cd.CompletedLessons...)
	out.CompletedChapters = append([]uuid.UUID(nil), cd.CompletedChapters...)
	out.InProgressChapters = append([]uuid.UUID(nil), cd.InProgressChapters...)
	if cd.CurrentPosition != nil {
		pos := *cd.CurrentPosition
		out.CurrentPosition = &pos
	}
	return out
}
