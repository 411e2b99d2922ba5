package progression

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/types"
)

// AttemptLookup fetches a learner's attempt for a single assessment item.
// A nil record with a nil error means no attempt exists.
type AttemptLookup interface {
	FetchAttempt(ctx context.Context, kind types.AttemptKind, itemID, userID uuid.UUID) (*types.AttemptRecord, error)
}

type GateResult struct {
	AllCompleted bool                 `json:"all_completed"`
	Scores       []types.AttemptScore `json:"scores"`
	Incomplete   []string             `json:"incomplete,omitempty"`
}

// CheckCompletion validates that every quiz and question-answer content item
// in the tree has a recorded attempt. Quizzes additionally require a numeric
// score; question-answer items only need the attempt to exist. Scores appear
// in the result only once finalized. The terminal module-completion
// transition must refuse while AllCompleted is false.
func CheckCompletion(ctx context.Context, idx *TreeIndex, userID uuid.UUID, lookup AttemptLookup) (GateResult, error) {
	res := GateResult{Scores: []types.AttemptScore{}}
	m := idx.Module()
	if m == nil {
		res.AllCompleted = true
		return res, nil
	}

	for li := range m.Lessons {
		for ci := range m.Lessons[li].Chapters {
			for _, item := range m.Lessons[li].Chapters[ci].Contents {
				switch item.ContentType {
				case types.ContentTypeQuiz:
					rec, err := lookup.FetchAttempt(ctx, types.AttemptKindQuiz, item.ID, userID)
					if err != nil {
						return GateResult{}, fmt.Errorf("%w: quiz attempt %s: %v", pkgerrors.ErrFetchFailure, item.ID, err)
					}
					if rec == nil || rec.Score == nil {
						res.Incomplete = append(res.Incomplete, item.Title)
						continue
					}
					if rec.ScoreFinalized {
						res.Scores = append(res.Scores, types.AttemptScore{
							Title:    item.Title,
							Score:    *rec.Score,
							MaxScore: rec.MaxScore,
							Type:     types.ContentTypeQuiz,
						})
					}
				case types.ContentTypeQuestionAnswer:
					rec, err := lookup.FetchAttempt(ctx, types.AttemptKindQuestionAnswer, item.ID, userID)
					if err != nil {
						return GateResult{}, fmt.Errorf("%w: question answer attempt %s: %v", pkgerrors.ErrFetchFailure, item.ID, err)
					}
					if rec == nil {
						res.Incomplete = append(res.Incomplete, item.Title)
						continue
					}
					if rec.ScoreFinalized && rec.Score != nil {
						res.Scores = append(res.Scores, types.AttemptScore{
							Title:    item.Title,
							Score:    *rec.Score,
							MaxScore: rec.MaxScore,
							Type:     types.ContentTypeQuestionAnswer,
						})
					}
				}
			}
		}
	}
	res.AllCompleted = len(res.Incomplete) == 0
	return res, nil
}
