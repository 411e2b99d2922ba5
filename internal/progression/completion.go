package progression

import (
	"math"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// Percent is the one canonical progress formula: completed chapters over
// total chapters, rounded, clamped to [0,100]. Zero total means zero.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Compute derives CompletionData from the module tree and the learner's
// progress record. It is a pure function; neither input is mutated.
//
// When the store already holds authoritative completion arrays, pass them as
// facts and they win over the positional inference. An empty facts payload
// is not authoritative and falls through to the positional walk.
func Compute(idx *TreeIndex, rec types.ProgressRecord, facts *types.CompletionData) types.CompletionData {
	out := types.CompletionData{
		CompletedLessons:   []uuid.UUID{},
		CompletedChapters:  []uuid.UUID{},
		InProgressChapters: []uuid.UUID{},
		TotalLessons:       idx.TotalLessons(),
		TotalChapters:      idx.TotalChapters(),
	}

	if rec.Status == types.StatusCompleted {
		m := idx.Module()
		if m != nil {
			for li := range m.Lessons {
				out.CompletedLessons = append(out.CompletedLessons, m.Lessons[li].ID)
				for ci := range m.Lessons[li].Chapters {
					out.CompletedChapters = append(out.CompletedChapters, m.Lessons[li].Chapters[ci].ID)
				}
			}
		}
		out.OverallProgress = 100
		return out
	}

	if facts != nil && !facts.IsEmpty() {
		out.CompletedLessons = append(out.CompletedLessons, facts.CompletedLessons...)
		out.CompletedChapters = append(out.CompletedChapters, facts.CompletedChapters...)
		out.InProgressChapters = append(out.InProgressChapters, facts.InProgressChapters...)
		if facts.CurrentPosition != nil {
			pos := *facts.CurrentPosition
			out.CurrentPosition = &pos
		}
		out.OverallProgress = Percent(len(out.CompletedChapters), out.TotalChapters)
		return out
	}

	// Positional walk: everything strictly before the current chapter is
	// complete, the current chapter is in progress, everything after is
	// untouched. A current chapter the tree does not contain yields no
	// inference at all rather than saturating the walk.
	if rec.CurrentChapter == uuid.Nil {
		return out
	}
	if _, ok := idx.LocateChapter(rec.CurrentChapter); !ok {
		return out
	}

	m := idx.Module()
	reachedCurrent := false
	for li := range m.Lessons {
		lesson := &m.Lessons[li]
		lessonDone := len(lesson.Chapters) > 0
		for ci := range lesson.Chapters {
			ch := &lesson.Chapters[ci]
			switch {
			case ch.ID == rec.CurrentChapter:
				reachedCurrent = true
				lessonDone = false
				out.InProgressChapters = append(out.InProgressChapters, ch.ID)
				out.CurrentPosition = &types.Position{Type: types.PositionTypeChapter, ReferenceID: ch.ID}
			case !reachedCurrent:
				out.CompletedChapters = append(out.CompletedChapters, ch.ID)
			default:
				lessonDone = false
			}
		}
		if lessonDone {
			out.CompletedLessons = append(out.CompletedLessons, lesson.ID)
		}
	}
	out.OverallProgress = Percent(len(out.CompletedChapters), out.TotalChapters)
	return out
}
