package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pathwise/pathwise-backend/internal/clients/docstore"
	"github.com/pathwise/pathwise-backend/internal/clients/treecache"
	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/progression"
	"github.com/pathwise/pathwise-backend/internal/repos"
	"github.com/pathwise/pathwise-backend/internal/types"
)

// Session owns the progress state for one learner inside one module. All
// derived state (completion aggregate, resume position, access predicate)
// is recomputed from the tree and the record here, never persisted as
// ground truth. A session is the only writer of its own state; closing it
// stops any scheduled reconciliation refreshes.
type Session struct {
	log       *logger.Logger
	store     docstore.Store
	trees     treecache.Cache
	snapshots repos.SnapshotRepo

	userID   uuid.UUID
	moduleID uuid.UUID

	mu         sync.Mutex
	idx        *progression.TreeIndex
	record     types.ProgressRecord
	completion types.CompletionData
	cursor     *progression.Location

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

func New(baseLog *logger.Logger, store docstore.Store, trees treecache.Cache, snapshots repos.SnapshotRepo, userID, moduleID uuid.UUID) *Session {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Session{
		log:       baseLog.With("service", "Session", "user_id", userID, "module_id", moduleID),
		store:     store,
		trees:     trees,
		snapshots: snapshots,
		userID:    userID,
		moduleID:  moduleID,
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}
}

// Load fetches the tree, the progress record and the completion aggregate.
// Tree and record failures are fatal; a completion fetch failure falls back
// to the positional computation and retries in the background.
var tracer = otel.Tracer("pathwise/session")

func (s *Session) Load(ctx context.Context) error {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "session.Load",
		trace.WithAttributes(attribute.String("module_id", s.moduleID.String())))
	defer span.End()

	tree, err := s.loadTree(ctx)
	if err != nil {
		return err
	}
	idx := progression.NewTreeIndex(tree)

	var (
		record *types.ProgressRecord
		facts  *types.CompletionData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := s.store.FetchProgressRecord(gctx, s.userID, s.moduleID)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	g.Go(func() error {
		cd, err := s.store.FetchCompletionData(gctx, s.userID, s.moduleID)
		if err != nil {
			// Non-fatal: the positional walk covers for it until the
			// background retry lands.
			s.log.Warn("completion data fetch failed, using positional fallback", "error", err)
			return nil
		}
		facts = cd
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.idx = idx
	s.record = *record
	s.completion = progression.Compute(idx, s.record, facts)
	s.cursor = progression.ResolveResume(idx, s.record, s.completion)
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	if facts == nil {
		s.scheduleRefresh()
	}
	return nil
}

func (s *Session) loadTree(ctx context.Context) (*types.Module, error) {
	if s.trees != nil {
		if m, ok := s.trees.Get(ctx, s.moduleID); ok {
			return m, nil
		}
	}
	m, err := s.store.FetchModuleTree(ctx, s.moduleID)
	if err != nil {
		return nil, err
	}
	if s.trees != nil {
		s.trees.Set(ctx, m)
	}
	return m, nil
}

// Start transitions a not-started module to in progress at the first
// chapter. It is a no-op for a module already started.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.record.Status != types.StatusNotStarted {
		s.mu.Unlock()
		return nil
	}
	idx := s.idx
	s.mu.Unlock()

	if err := s.store.StartModule(ctx, s.userID, s.moduleID); err != nil {
		return err
	}

	s.mu.Lock()
	s.record.Status = types.StatusInProgress
	if first, ok := idx.First(); ok {
		if lesson := idx.LessonAt(first.Lesson); lesson != nil {
			s.record.CurrentLesson = lesson.ID
		}
		if ch := idx.ChapterAt(first); ch != nil {
			s.record.CurrentChapter = ch.ID
		}
		s.cursor = &first
	}
	s.record.UpdatedAt = time.Now()
	s.completion = progression.Compute(idx, s.record, nil)
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return nil
}

func (s *Session) Tree() *progression.TreeIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

func (s *Session) Record() types.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Session) Completion() types.CompletionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion.Clone()
}

// Resume reports where the learner should land, or nil for a completed
// module (callers route to the completion view) and for a fresh one
// (callers default to the first chapter).
func (s *Session) Resume() *progression.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progression.ResolveResume(s.idx, s.record, s.completion)
}

// Access builds the current access predicate.
func (s *Session) Access() *progression.Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progression.NewAccess(s.idx, s.record.Status, s.completion, s.cursor)
}

// Navigate moves the learner's position. It re-checks the access predicate
// before any mutation and refuses locked targets with an explicit reason.
// Review navigation inside a completed module never writes progress.
func (s *Session) Navigate(ctx context.Context, lessonID, chapterID uuid.UUID) error {
	s.mu.Lock()
	idx := s.idx
	loc, ok := idx.LocateChapter(chapterID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: chapter %s not in module tree", pkgerrors.ErrInconsistentData, chapterID)
	}
	access := progression.NewAccess(idx, s.record.Status, s.completion, s.cursor)
	if !access.CanOpenChapter(lessonID, chapterID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkgerrors.ErrLocked, progression.LockedContentMessage)
	}

	s.cursor = &loc
	review := s.record.Status == types.StatusCompleted
	if !review {
		s.record.CurrentLesson = lessonID
		s.record.CurrentChapter = chapterID
		s.record.UpdatedAt = time.Now()
		// Entering a chapter never un-completes anything already done.
		recomputed := progression.Compute(idx, s.record, nil)
		s.completion = mergeMonotonic(s.completion, recomputed)
	}
	s.mu.Unlock()

	if !review {
		s.writeAsync(lessonID, chapterID, types.StatusInProgress)
		s.persistSnapshot(ctx)
	}
	return nil
}

// CompleteChapter applies the chapter-completion transition: an immediate
// monotonic local patch, a fire-and-forget write, and a scheduled
// authoritative refresh that supersedes the patch. Completing the terminal
// chapter additionally consults the assessment gate and refuses to mark
// the module completed while quiz or question-answer items lack attempts.
func (s *Session) CompleteChapter(ctx context.Context, chapterID uuid.UUID) (*progression.GateResult, error) {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "session.CompleteChapter",
		trace.WithAttributes(attribute.String("chapter_id", chapterID.String())))
	defer span.End()

	s.mu.Lock()
	idx := s.idx
	loc, ok := idx.LocateChapter(chapterID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: chapter %s not in module tree", pkgerrors.ErrInconsistentData, chapterID)
	}
	if s.completion.HasChapter(chapterID) {
		// Already counted: repeated "Next" clicks must not double-write.
		s.mu.Unlock()
		return nil, nil
	}
	lesson := idx.LessonAt(loc.Lesson)

	if idx.IsTerminal(chapterID) {
		s.mu.Unlock()
		return s.completeTerminal(ctx, idx, lesson, chapterID)
	}

	s.applyLocalPatchLocked(lesson, chapterID)

	next, hasNext := idx.Next(loc)
	var nextLessonID, nextChapterID uuid.UUID
	if hasNext {
		if nextLesson := idx.LessonAt(next.Lesson); nextLesson != nil {
			s.record.CurrentLesson = nextLesson.ID
		}
		if nextCh := idx.ChapterAt(next); nextCh != nil {
			s.record.CurrentChapter = nextCh.ID
		}
		s.record.UpdatedAt = time.Now()
		s.cursor = &next
		nextLessonID = s.record.CurrentLesson
		nextChapterID = s.record.CurrentChapter
	}
	s.mu.Unlock()

	s.writeAdvanceAsync(lesson.ID, chapterID, nextLessonID, nextChapterID, hasNext)
	s.persistSnapshot(ctx)
	s.scheduleRefresh()
	return nil, nil
}

// completeTerminal is the module-completion transition. The gate runs
// before any local mutation so a refused attempt leaves no state behind
// and a retry re-consults the gate. The completed-status write on the
// terminal chapter is the module completion itself, so nothing is written
// until the gate passes.
func (s *Session) completeTerminal(ctx context.Context, idx *progression.TreeIndex, lesson *types.Lesson, chapterID uuid.UUID) (*progression.GateResult, error) {
	gate, err := progression.CheckCompletion(ctx, idx, s.userID, s.store)
	if err != nil {
		return nil, err
	}
	if !gate.AllCompleted {
		return &gate, fmt.Errorf("%w: %d item(s) pending", pkgerrors.ErrGateIncomplete, len(gate.Incomplete))
	}

	s.mu.Lock()
	if !s.completion.HasChapter(chapterID) {
		s.applyLocalPatchLocked(lesson, chapterID)
	}
	s.record.Status = types.StatusCompleted
	s.record.UpdatedAt = time.Now()
	s.completion = progression.Compute(idx, s.record, nil)
	s.mu.Unlock()

	s.writeAsync(lesson.ID, chapterID, types.StatusCompleted)
	s.persistSnapshot(ctx)
	s.scheduleRefresh()
	return &gate, nil
}

// Gate runs the assessment gate without attempting any transition.
func (s *Session) Gate(ctx context.Context) (progression.GateResult, error) {
	s.mu.Lock()
	idx := s.idx
	s.mu.Unlock()
	return progression.CheckCompletion(ctx, idx, s.userID, s.store)
}

// applyLocalPatchLocked is the optimistic patch of a chapter completion.
// The caller holds s.mu.
func (s *Session) applyLocalPatchLocked(lesson *types.Lesson, chapterID uuid.UUID) {
	s.completion.CompletedChapters = append(s.completion.CompletedChapters, chapterID)
	s.completion.InProgressChapters = removeID(s.completion.InProgressChapters, chapterID)
	s.completion.OverallProgress = progression.Percent(len(s.completion.CompletedChapters), s.completion.TotalChapters)
	if lesson != nil && !s.completion.HasLesson(lesson.ID) {
		done := true
		for ci := range lesson.Chapters {
			if !s.completion.HasChapter(lesson.Chapters[ci].ID) {
				done = false
				break
			}
		}
		if done {
			s.completion.CompletedLessons = append(s.completion.CompletedLessons, lesson.ID)
		}
	}
	if s.record.Status == types.StatusNotStarted {
		s.record.Status = types.StatusInProgress
	}
}

// Refresh refetches the authoritative record and completion aggregate and
// replaces the local view with the recomputed result.
func (s *Session) Refresh(ctx context.Context) error {
	record, err := s.store.FetchProgressRecord(ctx, s.userID, s.moduleID)
	if err != nil {
		return err
	}
	facts, err := s.store.FetchCompletionData(ctx, s.userID, s.moduleID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.record = *record
	s.completion = progression.Compute(s.idx, s.record, facts)
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return nil
}

// Invalidate schedules an asynchronous refresh of the authoritative state.
func (s *Session) Invalidate() {
	s.scheduleRefresh()
}

// Close stops all background reconciliation. In-flight writes are left to
// finish; they are idempotent and self-correct on next load.
func (s *Session) Close() {
	s.bgCancel()
	s.bgWG.Wait()
}

// writeAdvanceAsync issues the completed write for the chapter just left
// and then the in-progress write for the chapter entered, in that order.
// The server record is last-write-wins, so racing the pair as independent
// writes could leave it pointing at the completed chapter.
func (s *Session) writeAdvanceAsync(lessonID, chapterID, nextLessonID, nextChapterID uuid.UUID, hasNext bool) {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.WriteProgress(ctx, s.userID, s.moduleID, lessonID, chapterID, types.StatusCompleted); err != nil {
			// Optimistic state stands; the next successful refresh heals it.
			s.log.Warn("progress write failed", "chapter_id", chapterID, "status", types.StatusCompleted, "error", err)
		}
		if !hasNext {
			return
		}
		if err := s.store.WriteProgress(ctx, s.userID, s.moduleID, nextLessonID, nextChapterID, types.StatusInProgress); err != nil {
			s.log.Warn("progress write failed", "chapter_id", nextChapterID, "status", types.StatusInProgress, "error", err)
		}
	}()
}

func (s *Session) writeAsync(lessonID, chapterID uuid.UUID, status types.ProgressStatus) {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.WriteProgress(ctx, s.userID, s.moduleID, lessonID, chapterID, status); err != nil {
			// Optimistic state stands; the next successful refresh heals it.
			s.log.Warn("progress write failed", "chapter_id", chapterID, "status", status, "error", err)
		}
	}()
}

func (s *Session) scheduleRefresh() {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		select {
		case <-s.bgCtx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
		ctx, cancel := context.WithTimeout(s.bgCtx, 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn("background refresh failed", "error", err)
		}
	}()
}

func (s *Session) persistSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	s.mu.Lock()
	record := s.record
	completion := s.completion.Clone()
	s.mu.Unlock()

	raw, err := json.Marshal(completion)
	if err != nil {
		s.log.Warn("snapshot encode failed", "error", err)
		return
	}
	row := &types.ProgressSnapshot{
		UserID:           s.userID,
		ModuleID:         s.moduleID,
		Status:           record.Status,
		CurrentLessonID:  record.CurrentLesson,
		CurrentChapterID: record.CurrentChapter,
		Completion:       raw,
		OverallProgress:  completion.OverallProgress,
	}
	if err := s.snapshots.Upsert(ctx, nil, row); err != nil {
		s.log.Warn("snapshot upsert failed", "error", err)
	}
}

// mergeMonotonic keeps the completed sets from shrinking when a positional
// recompute runs against a retreated current position.
func mergeMonotonic(old, fresh types.CompletionData) types.CompletionData {
	out := fresh.Clone()
	for _, id := range old.CompletedChapters {
		if !out.HasChapter(id) {
			out.CompletedChapters = append(out.CompletedChapters, id)
		}
	}
	for _, id := range old.CompletedLessons {
		if !out.HasLesson(id) {
			out.CompletedLessons = append(out.CompletedLessons, id)
		}
	}
	out.OverallProgress = progression.Percent(len(out.CompletedChapters), out.TotalChapters)
	return out
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
