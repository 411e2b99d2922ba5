package progression

import (
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// Location addresses a chapter by its lesson and chapter indexes within the
// module tree.
type Location struct {
	Lesson  int `json:"lesson_index"`
	Chapter int `json:"chapter_index"`
}

// TreeIndex is a normalized read-only view over a module's lesson/chapter
// tree. It is built once per session; the underlying module is never
// mutated by this package.
type TreeIndex struct {
	module        *types.Module
	chapterLoc    map[uuid.UUID]Location
	lessonIdx     map[uuid.UUID]int
	totalChapters int
}

func NewTreeIndex(m *types.Module) *TreeIndex {
	idx := &TreeIndex{
		module:     m,
		chapterLoc: make(map[uuid.UUID]Location),
		lessonIdx:  make(map[uuid.UUID]int),
	}
	if m == nil {
		return idx
	}
	for li := range m.Lessons {
		idx.lessonIdx[m.Lessons[li].ID] = li
		for ci := range m.Lessons[li].Chapters {
			idx.chapterLoc[m.Lessons[li].Chapters[ci].ID] = Location{Lesson: li, Chapter: ci}
			idx.totalChapters++
		}
	}
	return idx
}

func (t *TreeIndex) Module() *types.Module { return t.module }

func (t *TreeIndex) TotalLessons() int {
	if t.module == nil {
		return 0
	}
	return len(t.module.Lessons)
}

func (t *TreeIndex) TotalChapters() int { return t.totalChapters }

// LocateChapter resolves a chapter id to its tree position. Unknown ids
// report ok=false; callers treat that as an unusable signal.
func (t *TreeIndex) LocateChapter(id uuid.UUID) (Location, bool) {
	loc, ok := t.chapterLoc[id]
	return loc, ok
}

func (t *TreeIndex) LessonIndex(id uuid.UUID) (int, bool) {
	i, ok := t.lessonIdx[id]
	return i, ok
}

func (t *TreeIndex) LessonAt(i int) *types.Lesson {
	if t.module == nil || i < 0 || i >= len(t.module.Lessons) {
		return nil
	}
	return &t.module.Lessons[i]
}

func (t *TreeIndex) ChapterAt(loc Location) *types.Chapter {
	lesson := t.LessonAt(loc.Lesson)
	if lesson == nil || loc.Chapter < 0 || loc.Chapter >= len(lesson.Chapters) {
		return nil
	}
	return &lesson.Chapters[loc.Chapter]
}

// First returns the position of the very first chapter in the tree,
// skipping lessons that have no chapters.
func (t *TreeIndex) First() (Location, bool) {
	if t.module == nil {
		return Location{}, false
	}
	for li := range t.module.Lessons {
		if len(t.module.Lessons[li].Chapters) > 0 {
			return Location{Lesson: li, Chapter: 0}, true
		}
	}
	return Location{}, false
}

// Terminal returns the position of the last chapter of the last non-empty
// lesson. Completing it is the module-completion transition.
func (t *TreeIndex) Terminal() (Location, bool) {
	if t.module == nil {
		return Location{}, false
	}
	for li := len(t.module.Lessons) - 1; li >= 0; li-- {
		n := len(t.module.Lessons[li].Chapters)
		if n > 0 {
			return Location{Lesson: li, Chapter: n - 1}, true
		}
	}
	return Location{}, false
}

func (t *TreeIndex) IsTerminal(chapterID uuid.UUID) bool {
	term, ok := t.Terminal()
	if !ok {
		return false
	}
	loc, ok := t.LocateChapter(chapterID)
	return ok && loc == term
}

// Next returns the position following loc in walk order, moving into the
// next non-empty lesson when the current one is exhausted.
func (t *TreeIndex) Next(loc Location) (Location, bool) {
	lesson := t.LessonAt(loc.Lesson)
	if lesson == nil {
		return Location{}, false
	}
	if loc.Chapter+1 < len(lesson.Chapters) {
		return Location{Lesson: loc.Lesson, Chapter: loc.Chapter + 1}, true
	}
	for li := loc.Lesson + 1; li < t.TotalLessons(); li++ {
		if len(t.module.Lessons[li].Chapters) > 0 {
			return Location{Lesson: li, Chapter: 0}, true
		}
	}
	return Location{}, false
}

// LessonChaptersDone reports whether every chapter of the lesson at index li
// appears in the completed set.
func (t *TreeIndex) LessonChaptersDone(li int, cd *types.CompletionData) bool {
	lesson := t.LessonAt(li)
	if lesson == nil {
		return false
	}
	for ci := range lesson.Chapters {
		if !cd.HasChapter(lesson.Chapters[ci].ID) {
			return false
		}
	}
	return true
}
