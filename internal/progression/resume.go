package progression

import (
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// positionResolver is one link of the resume priority chain. Each resolver
// inspects a single signal and reports whether it produced a position.
type positionResolver func(idx *TreeIndex, rec types.ProgressRecord, cd types.CompletionData) (Location, bool)

var resumeChain = []positionResolver{
	resumeFromRecord,
	resumeFromInProgress,
	resumeFromCurrentPosition,
}

// ResolveResume determines where a returning learner should land. The
// module-level record wins because it is written synchronously on every
// navigation; the completion-data signals may lag it by one fetch cycle.
// A completed module resolves to nil so the caller routes to the
// completion view. Nil with an incomplete module means start at the top.
func ResolveResume(idx *TreeIndex, rec types.ProgressRecord, cd types.CompletionData) *Location {
	if rec.Status == types.StatusCompleted {
		return nil
	}
	for _, resolve := range resumeChain {
		if loc, ok := resolve(idx, rec, cd); ok {
			return &loc
		}
	}
	return nil
}

func resumeFromRecord(idx *TreeIndex, rec types.ProgressRecord, _ types.CompletionData) (Location, bool) {
	if rec.CurrentChapter == uuid.Nil {
		return Location{}, false
	}
	return idx.LocateChapter(rec.CurrentChapter)
}

func resumeFromInProgress(idx *TreeIndex, _ types.ProgressRecord, cd types.CompletionData) (Location, bool) {
	if len(cd.InProgressChapters) == 0 {
		return Location{}, false
	}
	return idx.LocateChapter(cd.InProgressChapters[0])
}

func resumeFromCurrentPosition(idx *TreeIndex, _ types.ProgressRecord, cd types.CompletionData) (Location, bool) {
	if cd.CurrentPosition == nil || cd.CurrentPosition.Type != types.PositionTypeChapter {
		return Location{}, false
	}
	return idx.LocateChapter(cd.CurrentPosition.ReferenceID)
}
