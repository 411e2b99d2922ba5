package docstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// Store is the abstract read/write surface of the remote document API. The
// engine depends only on this interface; transport and schema live behind
// it.
type Store interface {
	// FetchModuleTree loads a module's full lesson/chapter/content tree.
	FetchModuleTree(ctx context.Context, moduleID uuid.UUID) (*types.Module, error)
	// ListModules loads the dashboard overview of every module assigned to
	// the user, including per-module status and ordering metadata.
	ListModules(ctx context.Context, userID uuid.UUID) ([]types.ModuleOverview, error)
	// FetchProgressRecord loads the per-module record. A user who never
	// started the module yields a not_started record, not an error.
	FetchProgressRecord(ctx context.Context, userID, moduleID uuid.UUID) (*types.ProgressRecord, error)
	// FetchCompletionData loads the authoritative aggregate. Empty arrays
	// are a legitimate result even when progress exists.
	FetchCompletionData(ctx context.Context, userID, moduleID uuid.UUID) (*types.CompletionData, error)
	// WriteProgress records a chapter transition, or the whole-module
	// completed status on the terminal transition.
	WriteProgress(ctx context.Context, userID, moduleID, lessonID, chapterID uuid.UUID, status types.ProgressStatus) error
	// FetchAttempt loads a learner's attempt for one assessment item; nil
	// without error means no attempt recorded.
	FetchAttempt(ctx context.Context, kind types.AttemptKind, itemID, userID uuid.UUID) (*types.AttemptRecord, error)
	// StartModule transitions a not_started module to in_progress at the
	// first chapter.
	StartModule(ctx context.Context, userID, moduleID uuid.UUID) error
}
