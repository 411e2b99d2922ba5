package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressSnapshot is the locally persisted last-known progress state for a
// learner and module. It backs first-paint and offline resume only; the
// document store stays authoritative and snapshots are overwritten on every
// successful refresh.
type ProgressSnapshot struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_module,unique" json:"user_id"`
	ModuleID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_module,unique" json:"module_id"`
	Status           ProgressStatus `gorm:"column:status;not null;default:'not_started'" json:"status"`
	CurrentLessonID  uuid.UUID      `gorm:"type:uuid;column:current_lesson_id" json:"current_lesson_id"`
	CurrentChapterID uuid.UUID      `gorm:"type:uuid;column:current_chapter_id" json:"current_chapter_id"`
	Completion       datatypes.JSON `gorm:"type:jsonb;column:completion" json:"completion"`
	OverallProgress  int            `gorm:"column:overall_progress;not null;default:0" json:"overall_progress"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProgressSnapshot) TableName() string { return "progress_snapshot" }
