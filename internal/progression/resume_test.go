package progression

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

func TestResolveResume_RecordWins(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	// Completion data lags one fetch behind the record. The record is the
	// freshest signal and must win.
	cd := types.CompletionData{InProgressChapters: []uuid.UUID{l1c1}}

	loc := ResolveResume(idx, inProgressRecord(l1c2), cd)
	if loc == nil || loc.Lesson != 0 || loc.Chapter != 1 {
		t.Fatalf("expected (0,1) from the record, got %+v", loc)
	}
}

func TestResolveResume_UnknownRecordFallsThrough(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := types.CompletionData{InProgressChapters: []uuid.UUID{l2c1}}

	// The record references a chapter deleted from the tree; that signal
	// is ignored and the in-progress chapter resolves instead.
	loc := ResolveResume(idx, inProgressRecord(uuid.New()), cd)
	if loc == nil || loc.Lesson != 1 || loc.Chapter != 0 {
		t.Fatalf("expected (1,0) from in-progress fallback, got %+v", loc)
	}
}

func TestResolveResume_CurrentPositionFallback(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := types.CompletionData{
		CurrentPosition: &types.Position{Type: types.PositionTypeChapter, ReferenceID: l2c2},
	}

	loc := ResolveResume(idx, types.ProgressRecord{Status: types.StatusInProgress}, cd)
	if loc == nil || loc.Lesson != 1 || loc.Chapter != 1 {
		t.Fatalf("expected (1,1) from current position, got %+v", loc)
	}
}

func TestResolveResume_LessonPositionIgnored(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	cd := types.CompletionData{
		CurrentPosition: &types.Position{Type: types.PositionTypeLesson, ReferenceID: lesson2ID},
	}

	if loc := ResolveResume(idx, types.ProgressRecord{Status: types.StatusInProgress}, cd); loc != nil {
		t.Fatalf("a lesson-typed position must not resolve, got %+v", loc)
	}
}

func TestResolveResume_CompletedModuleReturnsNil(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	rec := types.ProgressRecord{Status: types.StatusCompleted, CurrentChapter: l1c2}

	if loc := ResolveResume(idx, rec, types.CompletionData{}); loc != nil {
		t.Fatalf("completed module must resolve to nil, got %+v", loc)
	}
}

func TestResolveResume_NoSignalsReturnsNil(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	if loc := ResolveResume(idx, types.ProgressRecord{Status: types.StatusNotStarted}, types.CompletionData{}); loc != nil {
		t.Fatalf("expected nil for a fresh module, got %+v", loc)
	}
}

func TestResolveResume_Deterministic(t *testing.T) {
	idx := NewTreeIndex(twoByTwoModule())
	rec := inProgressRecord(l2c1)
	cd := types.CompletionData{InProgressChapters: []uuid.UUID{l1c1}}

	first := ResolveResume(idx, rec, cd)
	for i := 0; i < 10; i++ {
		again := ResolveResume(idx, rec, cd)
		if again == nil || *again != *first {
			t.Fatalf("resolution drifted on call %d: %+v vs %+v", i, again, first)
		}
	}
}
