package progression

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

func TestCompute_PositionalWalk(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := Compute(idx, inProgressRecord(l1c2), nil)

	if len(cd.CompletedChapters) != 1 || cd.CompletedChapters[0] != l1c1 {
		t.Fatalf("expected completed chapters [L1C1], got %v", cd.CompletedChapters)
	}
	if len(cd.InProgressChapters) != 1 || cd.InProgressChapters[0] != l1c2 {
		t.Fatalf("expected in-progress chapters [L1C2], got %v", cd.InProgressChapters)
	}
	if len(cd.CompletedLessons) != 0 {
		t.Fatalf("expected no completed lessons, got %v", cd.CompletedLessons)
	}
	if cd.OverallProgress != 25 {
		t.Fatalf("expected 25%% progress, got %d", cd.OverallProgress)
	}
	if cd.CurrentPosition == nil || cd.CurrentPosition.ReferenceID != l1c2 {
		t.Fatalf("expected current position L1C2, got %+v", cd.CurrentPosition)
	}
}

func TestCompute_WalkCompletesEarlierLessons(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := Compute(idx, inProgressRecord(l2c1), nil)

	if !cd.HasLesson(lesson1ID) {
		t.Fatalf("expected lesson 1 complete once the walk passed it")
	}
	if cd.HasLesson(lesson2ID) {
		t.Fatalf("lesson 2 must not be complete while its chapter is current")
	}
	if cd.OverallProgress != 50 {
		t.Fatalf("expected 50%% progress, got %d", cd.OverallProgress)
	}
}

func TestCompute_CompletedModuleSaturates(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	// Stored position is stale on purpose; completed status must win.
	rec := types.ProgressRecord{Status: types.StatusCompleted, CurrentChapter: l1c1}
	cd := Compute(idx, rec, nil)

	if len(cd.CompletedChapters) != 4 {
		t.Fatalf("expected all 4 chapters complete, got %d", len(cd.CompletedChapters))
	}
	if len(cd.CompletedLessons) != 2 {
		t.Fatalf("expected both lessons complete, got %d", len(cd.CompletedLessons))
	}
	if cd.OverallProgress != 100 {
		t.Fatalf("expected 100%% progress, got %d", cd.OverallProgress)
	}
}

func TestCompute_AuthoritativeFactsWin(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	facts := &types.CompletionData{
		CompletedChapters: []uuid.UUID{l1c1, l1c2, l2c1},
		CompletedLessons:  []uuid.UUID{lesson1ID},
	}
	// The record points at L1C2, which the positional walk would read as
	// only one chapter done; the fetched arrays override it.
	cd := Compute(idx, inProgressRecord(l1c2), facts)

	if len(cd.CompletedChapters) != 3 {
		t.Fatalf("expected the 3 fetched chapters, got %v", cd.CompletedChapters)
	}
	if cd.OverallProgress != 75 {
		t.Fatalf("expected 75%% progress recomputed from facts, got %d", cd.OverallProgress)
	}
}

func TestCompute_EmptyFactsFallBackToWalk(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := Compute(idx, inProgressRecord(l1c2), &types.CompletionData{})

	if len(cd.CompletedChapters) != 1 {
		t.Fatalf("expected positional fallback, got %v", cd.CompletedChapters)
	}
}

func TestCompute_UnknownCurrentChapterYieldsNothing(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := Compute(idx, inProgressRecord(uuid.New()), nil)

	if len(cd.CompletedChapters) != 0 || len(cd.InProgressChapters) != 0 {
		t.Fatalf("an unknown current chapter must not be inferred from: %+v", cd)
	}
	if cd.OverallProgress != 0 {
		t.Fatalf("expected 0%% progress, got %d", cd.OverallProgress)
	}
}

func TestCompute_EmptyModule(t *testing.T) {
	idx := NewTreeIndex(&types.Module{ID: uuid.New(), Name: "empty"})
	cd := Compute(idx, types.ProgressRecord{Status: types.StatusInProgress}, nil)

	if cd.TotalChapters != 0 || cd.OverallProgress != 0 {
		t.Fatalf("empty module must report zero totals and progress, got %+v", cd)
	}
}

func TestPercent_Bounds(t *testing.T) {
	if got := Percent(0, 0); got != 0 {
		t.Fatalf("zero total must be 0, got %d", got)
	}
	if got := Percent(1, 3); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := Percent(2, 3); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := Percent(5, 3); got != 100 {
		t.Fatalf("over-count must clamp to 100, got %d", got)
	}
}
