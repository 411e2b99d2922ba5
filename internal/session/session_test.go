package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/types"
)

var (
	userID   = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	lesson1  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	lesson2  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	l1c1     = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	l1c2     = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	l2c1     = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	l2c2     = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	moduleID = uuid.MustParse("99999999-9999-9999-9999-999999999999")
)

func testModule() *types.Module {
	return &types.Module{
		ID:   moduleID,
		Name: "Onboarding",
		Lessons: []types.Lesson{
			{ID: lesson1, Title: "Lesson One", Chapters: []types.Chapter{
				{ID: l1c1, Title: "L1C1"},
				{ID: l1c2, Title: "L1C2"},
			}},
			{ID: lesson2, Title: "Lesson Two", Chapters: []types.Chapter{
				{ID: l2c1, Title: "L2C1"},
				{ID: l2c2, Title: "L2C2"},
			}},
		},
	}
}

type write struct {
	lessonID  uuid.UUID
	chapterID uuid.UUID
	status    types.ProgressStatus
}

// fakeStore is an in-memory docstore.Store. Writes are recorded, not
// reflected back into the record; the authoritative views are whatever the
// test configures.
type fakeStore struct {
	mu            sync.Mutex
	module        *types.Module
	record        types.ProgressRecord
	completion    *types.CompletionData
	completionErr error
	attempts      map[uuid.UUID]*types.AttemptRecord
	writes        []write
	startCalls    int
}

func newFakeStore(record types.ProgressRecord) *fakeStore {
	return &fakeStore{module: testModule(), record: record}
}

func (f *fakeStore) FetchModuleTree(_ context.Context, id uuid.UUID) (*types.Module, error) {
	if id != f.module.ID {
		return nil, pkgerrors.ErrNotFound
	}
	return f.module, nil
}

func (f *fakeStore) ListModules(_ context.Context, _ uuid.UUID) ([]types.ModuleOverview, error) {
	return nil, nil
}

func (f *fakeStore) FetchProgressRecord(_ context.Context, _, _ uuid.UUID) (*types.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.record
	return &rec, nil
}

func (f *fakeStore) FetchCompletionData(_ context.Context, _, _ uuid.UUID) (*types.CompletionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completionErr != nil {
		return nil, f.completionErr
	}
	if f.completion == nil {
		return &types.CompletionData{}, nil
	}
	cd := f.completion.Clone()
	return &cd, nil
}

func (f *fakeStore) WriteProgress(_ context.Context, _, _, lessonID, chapterID uuid.UUID, status types.ProgressStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, write{lessonID: lessonID, chapterID: chapterID, status: status})
	return nil
}

func (f *fakeStore) FetchAttempt(_ context.Context, _ types.AttemptKind, itemID, _ uuid.UUID) (*types.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[itemID], nil
}

func (f *fakeStore) StartModule(_ context.Context, _, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.record.Status = types.StatusInProgress
	return nil
}

func (f *fakeStore) writeLog() []write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]write, len(f.writes))
	copy(out, f.writes)
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func loadedSession(t *testing.T, store *fakeStore) *Session {
	t.Helper()
	s := New(testLogger(t), store, nil, nil, userID, moduleID)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func inProgressRecord(current uuid.UUID) types.ProgressRecord {
	return types.ProgressRecord{
		UserID:         userID,
		ModuleID:       moduleID,
		Status:         types.StatusInProgress,
		CurrentLesson:  lesson1,
		CurrentChapter: current,
	}
}

func TestLoad_CompletionFetchFailureFallsBack(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c2))
	store.completionErr = fmt.Errorf("upstream down")

	s := loadedSession(t, store)
	defer s.Close()

	cd := s.Completion()
	if !cd.HasChapter(l1c1) {
		t.Fatalf("positional fallback must mark the chapter before the current one completed")
	}
	if len(cd.InProgressChapters) != 1 || cd.InProgressChapters[0] != l1c2 {
		t.Fatalf("in progress = %v, want [%s]", cd.InProgressChapters, l1c2)
	}
}

func TestStart_TransitionsToFirstChapter(t *testing.T) {
	store := newFakeStore(types.ProgressRecord{UserID: userID, ModuleID: moduleID, Status: types.StatusNotStarted})
	s := loadedSession(t, store)
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := s.Record()
	if rec.Status != types.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", rec.Status)
	}
	if rec.CurrentLesson != lesson1 || rec.CurrentChapter != l1c1 {
		t.Fatalf("position = %s/%s, want first chapter", rec.CurrentLesson, rec.CurrentChapter)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if store.startCalls != 1 {
		t.Fatalf("startCalls = %d, want 1", store.startCalls)
	}
}

func TestNavigate_LockedChapterRefused(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)
	defer s.Close()

	err := s.Navigate(context.Background(), lesson2, l2c2)
	if !errors.Is(err, pkgerrors.ErrLocked) {
		t.Fatalf("err = %v, want locked", err)
	}
	s.Close()
	if writes := store.writeLog(); len(writes) != 0 {
		t.Fatalf("a refused navigation must not write, got %v", writes)
	}
}

func TestNavigate_UnknownChapter(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)
	defer s.Close()

	err := s.Navigate(context.Background(), lesson1, uuid.New())
	if !errors.Is(err, pkgerrors.ErrInconsistentData) {
		t.Fatalf("err = %v, want inconsistent data", err)
	}
}

func TestNavigate_ReviewModeNeverWrites(t *testing.T) {
	rec := inProgressRecord(l2c2)
	rec.Status = types.StatusCompleted
	store := newFakeStore(rec)
	s := loadedSession(t, store)

	if err := s.Navigate(context.Background(), lesson1, l1c2); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s.Close()
	if writes := store.writeLog(); len(writes) != 0 {
		t.Fatalf("review navigation must not write, got %v", writes)
	}
}

func TestCompleteChapter_OptimisticPatch(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)
	defer s.Close()

	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}

	cd := s.Completion()
	if !cd.HasChapter(l1c1) {
		t.Fatalf("chapter must be counted immediately")
	}
	if cd.OverallProgress != 25 {
		t.Fatalf("overall progress = %d, want 25", cd.OverallProgress)
	}
	rec := s.Record()
	if rec.CurrentChapter != l1c2 {
		t.Fatalf("current chapter = %s, want %s", rec.CurrentChapter, l1c2)
	}
}

func TestCompleteChapter_Idempotent(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)

	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("first CompleteChapter: %v", err)
	}
	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("repeated CompleteChapter: %v", err)
	}
	cd := s.Completion()
	if got := len(cd.CompletedChapters); got != 1 {
		t.Fatalf("completed chapters = %d, want 1", got)
	}

	s.Close()
	var completedWrites int
	for _, w := range store.writeLog() {
		if w.chapterID == l1c1 && w.status == types.StatusCompleted {
			completedWrites++
		}
	}
	if completedWrites != 1 {
		t.Fatalf("completed writes for the chapter = %d, want exactly 1", completedWrites)
	}
}

func TestCompleteChapter_AdvancesAcrossLessons(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c2))
	store.completion = &types.CompletionData{
		CompletedChapters: []uuid.UUID{l1c1},
		TotalLessons:      2,
		TotalChapters:     4,
	}
	s := loadedSession(t, store)
	defer s.Close()

	if _, err := s.CompleteChapter(context.Background(), l1c2); err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}
	rec := s.Record()
	if rec.CurrentLesson != lesson2 || rec.CurrentChapter != l2c1 {
		t.Fatalf("position = %s/%s, want start of lesson two", rec.CurrentLesson, rec.CurrentChapter)
	}
	cd := s.Completion()
	if !cd.HasLesson(lesson1) {
		t.Fatalf("lesson one must be counted complete once both chapters are")
	}
}

func TestCompleteChapter_TerminalGateRefusal(t *testing.T) {
	m := testModule()
	m.Lessons[1].Chapters[1].Contents = []types.Content{
		{ID: uuid.New(), Title: "Exit Quiz", ContentType: types.ContentTypeQuiz},
	}
	store := newFakeStore(inProgressRecord(l2c2))
	store.module = m
	store.completion = &types.CompletionData{
		CompletedLessons:  []uuid.UUID{lesson1},
		CompletedChapters: []uuid.UUID{l1c1, l1c2, l2c1},
		TotalLessons:      2,
		TotalChapters:     4,
	}
	s := loadedSession(t, store)

	gate, err := s.CompleteChapter(context.Background(), l2c2)
	if !errors.Is(err, pkgerrors.ErrGateIncomplete) {
		t.Fatalf("err = %v, want gate incomplete", err)
	}
	if gate == nil || gate.AllCompleted {
		t.Fatalf("gate = %+v, want an incomplete result", gate)
	}
	if s.Record().Status == types.StatusCompleted {
		t.Fatalf("module must not complete while the gate refuses")
	}

	s.Close()
	for _, w := range store.writeLog() {
		if w.chapterID == l2c2 && w.status == types.StatusCompleted {
			t.Fatalf("the terminal completed write must be held back while the gate refuses")
		}
	}
}

func TestCompleteChapter_TerminalGatePasses(t *testing.T) {
	quiz := uuid.New()
	m := testModule()
	m.Lessons[1].Chapters[1].Contents = []types.Content{
		{ID: quiz, Title: "Exit Quiz", ContentType: types.ContentTypeQuiz},
	}
	score := 9.0
	store := newFakeStore(inProgressRecord(l2c2))
	store.module = m
	store.completion = &types.CompletionData{
		CompletedLessons:  []uuid.UUID{lesson1},
		CompletedChapters: []uuid.UUID{l1c1, l1c2, l2c1},
		TotalLessons:      2,
		TotalChapters:     4,
	}
	store.attempts = map[uuid.UUID]*types.AttemptRecord{
		quiz: {ItemID: quiz, Score: &score, MaxScore: 10, ScoreFinalized: true},
	}
	s := loadedSession(t, store)

	gate, err := s.CompleteChapter(context.Background(), l2c2)
	if err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}
	if gate == nil || !gate.AllCompleted {
		t.Fatalf("gate = %+v, want all completed", gate)
	}
	rec := s.Record()
	if rec.Status != types.StatusCompleted {
		t.Fatalf("status = %s, want completed", rec.Status)
	}
	if s.Resume() != nil {
		t.Fatalf("a completed module must not resume anywhere")
	}
	if got := s.Completion().OverallProgress; got != 100 {
		t.Fatalf("overall progress = %d, want 100", got)
	}

	s.Close()
	var terminalCompleted bool
	for _, w := range store.writeLog() {
		if w.chapterID == l2c2 && w.status == types.StatusCompleted {
			terminalCompleted = true
		}
	}
	if !terminalCompleted {
		t.Fatalf("the terminal completed write must go out once the gate passes")
	}
}

func TestCompleteChapter_TerminalRetryAfterGatePasses(t *testing.T) {
	quiz := uuid.New()
	m := testModule()
	m.Lessons[1].Chapters[1].Contents = []types.Content{
		{ID: quiz, Title: "Exit Quiz", ContentType: types.ContentTypeQuiz},
	}
	store := newFakeStore(inProgressRecord(l2c2))
	store.module = m
	store.completion = &types.CompletionData{
		CompletedLessons:  []uuid.UUID{lesson1},
		CompletedChapters: []uuid.UUID{l1c1, l1c2, l2c1},
		TotalLessons:      2,
		TotalChapters:     4,
	}
	s := loadedSession(t, store)
	defer s.Close()

	if _, err := s.CompleteChapter(context.Background(), l2c2); !errors.Is(err, pkgerrors.ErrGateIncomplete) {
		t.Fatalf("err = %v, want gate incomplete", err)
	}
	completion := s.Completion()
	if completion.HasChapter(l2c2) {
		t.Fatalf("a refused terminal completion must leave no local patch behind")
	}

	// The learner finishes the quiz and clicks Complete again.
	score := 10.0
	store.mu.Lock()
	store.attempts = map[uuid.UUID]*types.AttemptRecord{
		quiz: {ItemID: quiz, Score: &score, MaxScore: 10, ScoreFinalized: true},
	}
	store.mu.Unlock()

	gate, err := s.CompleteChapter(context.Background(), l2c2)
	if err != nil {
		t.Fatalf("retried CompleteChapter: %v", err)
	}
	if gate == nil || !gate.AllCompleted {
		t.Fatalf("gate = %+v, want all completed on retry", gate)
	}
	if s.Record().Status != types.StatusCompleted {
		t.Fatalf("status = %s, the retry must complete the module", s.Record().Status)
	}
}

func TestCompleteChapter_WritesInOrder(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)

	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}
	s.Close()

	writes := store.writeLog()
	if len(writes) != 2 {
		t.Fatalf("writes = %v, want exactly completed then in-progress", writes)
	}
	if writes[0].chapterID != l1c1 || writes[0].status != types.StatusCompleted {
		t.Fatalf("first write = %+v, want completed %s", writes[0], l1c1)
	}
	if writes[1].chapterID != l1c2 || writes[1].status != types.StatusInProgress {
		t.Fatalf("second write = %+v, want in-progress %s", writes[1], l1c2)
	}
}

func TestNavigate_BackwardNeverShrinksCompleted(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)
	defer s.Close()

	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}

	// Jump back into the chapter just completed.
	if err := s.Navigate(context.Background(), lesson1, l1c1); err != nil {
		t.Fatalf("backward Navigate: %v", err)
	}
	cd := s.Completion()
	if !cd.HasChapter(l1c1) {
		t.Fatalf("navigating backward must not shrink the completed set, got %+v", cd)
	}
	if cd.OverallProgress != 25 {
		t.Fatalf("overall progress = %d, want 25 preserved", cd.OverallProgress)
	}
}

func TestRefresh_ReplacesLocalView(t *testing.T) {
	store := newFakeStore(inProgressRecord(l1c1))
	s := loadedSession(t, store)
	defer s.Close()

	if _, err := s.CompleteChapter(context.Background(), l1c1); err != nil {
		t.Fatalf("CompleteChapter: %v", err)
	}

	// The authoritative side has since counted more than the local patch.
	store.mu.Lock()
	store.record = inProgressRecord(l2c1)
	store.completion = &types.CompletionData{
		CompletedLessons:  []uuid.UUID{lesson1},
		CompletedChapters: []uuid.UUID{l1c1, l1c2},
		TotalLessons:      2,
		TotalChapters:     4,
	}
	store.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cd := s.Completion()
	if !cd.HasChapter(l1c2) || !cd.HasLesson(lesson1) {
		t.Fatalf("refresh must adopt the authoritative view, got %+v", cd)
	}
	if cd.OverallProgress != 50 {
		t.Fatalf("overall progress = %d, want 50", cd.OverallProgress)
	}
}
