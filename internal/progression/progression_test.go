package progression

import (
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// fixtures shared by the progression tests: a module with two lessons of
// two chapters each, addressed as L1C1..L2C2.
var (
	lesson1ID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	lesson2ID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	l1c1      = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	l1c2      = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	l2c1      = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	l2c2      = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

func twoByTwoModule() *types.Module {
	return &types.Module{
		ID:   uuid.MustParse("99999999-9999-9999-9999-999999999999"),
		Name: "Safety Basics",
		Lessons: []types.Lesson{
			{
				ID:    lesson1ID,
				Title: "Lesson One",
				Chapters: []types.Chapter{
					{ID: l1c1, Title: "L1C1"},
					{ID: l1c2, Title: "L1C2"},
				},
			},
			{
				ID:    lesson2ID,
				Title: "Lesson Two",
				Chapters: []types.Chapter{
					{ID: l2c1, Title: "L2C1"},
					{ID: l2c2, Title: "L2C2"},
				},
			},
		},
	}
}

func inProgressRecord(current uuid.UUID) types.ProgressRecord {
	return types.ProgressRecord{
		Status:         types.StatusInProgress,
		CurrentChapter: current,
	}
}
