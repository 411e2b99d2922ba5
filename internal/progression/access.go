package progression

import (
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

const (
	// LockedModuleMessage is surfaced when a department-ordered module is
	// still gated on earlier modules.
	LockedModuleMessage = "Complete previous modules to unlock this module."
	// LockedContentMessage is surfaced when a lesson or chapter has not been
	// reached yet.
	LockedContentMessage = "Complete previous content to unlock."
)

// Access answers, per lesson and chapter, whether the learner may open it.
// It is computed once per CompletionData change and is advisory for the
// view layer; the navigation entry points re-check it before mutating any
// state.
type Access struct {
	idx          *TreeIndex
	cd           types.CompletionData
	reviewMode   bool
	first        Location
	hasFirst     bool
	currentChap  uuid.UUID
	nextLessonID uuid.UUID
	hasNext      bool
}

// NewAccess builds the access predicate. uiCursor is the caller-supplied
// cursor used as the last-resort current position when the completion data
// carries none.
func NewAccess(idx *TreeIndex, status types.ProgressStatus, cd types.CompletionData, uiCursor *Location) *Access {
	a := &Access{
		idx:        idx,
		cd:         cd,
		reviewMode: status == types.StatusCompleted,
	}
	a.first, a.hasFirst = idx.First()

	switch {
	case cd.CurrentPosition != nil && cd.CurrentPosition.Type == types.PositionTypeChapter:
		a.currentChap = cd.CurrentPosition.ReferenceID
	case len(cd.InProgressChapters) > 0:
		a.currentChap = cd.InProgressChapters[0]
	case uiCursor != nil:
		if ch := idx.ChapterAt(*uiCursor); ch != nil {
			a.currentChap = ch.ID
		}
	}

	m := idx.Module()
	if m != nil {
		for li := range m.Lessons {
			if !cd.HasLesson(m.Lessons[li].ID) {
				a.nextLessonID = m.Lessons[li].ID
				a.hasNext = true
				break
			}
		}
	}
	return a
}

// CanOpenLesson is the lesson-level check.
func (a *Access) CanOpenLesson(lessonID uuid.UUID) bool {
	if a.reviewMode {
		return true
	}
	if a.hasFirst {
		if lesson := a.idx.LessonAt(a.first.Lesson); lesson != nil && lesson.ID == lessonID {
			return true
		}
	}
	if a.cd.HasLesson(lessonID) {
		return true
	}
	if a.hasNext && a.nextLessonID == lessonID {
		return true
	}
	if loc, ok := a.idx.LocateChapter(a.currentChap); ok {
		if lesson := a.idx.LessonAt(loc.Lesson); lesson != nil && lesson.ID == lessonID {
			return true
		}
	}
	return false
}

// CanOpenChapter is the chapter-level check. Any chapter of a completed
// lesson stays open for review.
func (a *Access) CanOpenChapter(lessonID, chapterID uuid.UUID) bool {
	if a.reviewMode {
		return true
	}
	if a.hasFirst {
		if ch := a.idx.ChapterAt(a.first); ch != nil && ch.ID == chapterID {
			return true
		}
	}
	if a.cd.HasChapter(chapterID) {
		return true
	}
	if a.currentChap != uuid.Nil && a.currentChap == chapterID {
		return true
	}
	if a.hasNext && a.nextLessonID == lessonID {
		if li, ok := a.idx.LessonIndex(lessonID); ok {
			if lesson := a.idx.LessonAt(li); lesson != nil && len(lesson.Chapters) > 0 && lesson.Chapters[0].ID == chapterID {
				return true
			}
		}
	}
	if a.cd.HasLesson(lessonID) {
		return true
	}
	return false
}

// ModuleLocked applies the dashboard-level ordering rule: a department
// module with a positive order is locked while any other department module
// in the same department with a smaller positive order is not yet
// completed. Everyone/manual modules, unordered modules, and modules
// already completed are never locked.
func ModuleLocked(target types.ModuleOverview, all []types.ModuleOverview) bool {
	if target.Assignment != types.AssignmentDepartment || target.Order <= 0 {
		return false
	}
	if target.Status == types.StatusCompleted {
		return false
	}
	for _, other := range all {
		if other.ID == target.ID {
			continue
		}
		if other.Assignment != types.AssignmentDepartment || other.Department != target.Department {
			continue
		}
		if other.Order > 0 && other.Order < target.Order && other.Status != types.StatusCompleted {
			return true
		}
	}
	return false
}
