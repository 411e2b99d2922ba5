package types

import (
	"github.com/google/uuid"
)

// AssignmentKind partitions how a module is assigned to learners.
type AssignmentKind string

const (
	AssignmentEveryone   AssignmentKind = "everyone"
	AssignmentDepartment AssignmentKind = "department"
	AssignmentManual     AssignmentKind = "manual"
)

const (
	ContentTypeQuiz           = "Quiz"
	ContentTypeQuestionAnswer = "Question Answer"
)

// Module is the root of the authored content tree. Lessons are stored in
// authored order; Order <= 0 means the module is unordered and never locked
// by sequencing.
type Module struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Assignment   AssignmentKind `json:"assignment_based"`
	Department   string         `json:"department,omitempty"`
	Order        int            `json:"order,omitempty"`
	DurationDays int            `json:"duration,omitempty"`
	Lessons      []Lesson       `json:"lessons"`
}

type Lesson struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

type Chapter struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Contents []Content `json:"contents"`
}

// Content is the leaf unit. It carries no progress state of its own; only
// the Quiz and Question Answer types matter to module completion.
type Content struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
}

// ModuleOverview is the dashboard-level view of a module: enough to render
// a listing and to evaluate department/order locks without the full tree.
type ModuleOverview struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Assignment AssignmentKind `json:"assignment_based"`
	Department string         `json:"department,omitempty"`
	Order      int            `json:"order,omitempty"`
	Status     ProgressStatus `json:"status"`
	Progress   int            `json:"overall_progress"`
}
