package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/clients/docstore"
	"github.com/pathwise/pathwise-backend/internal/clients/treecache"
	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/platform/apierr"
	"github.com/pathwise/pathwise-backend/internal/repos"
	"github.com/pathwise/pathwise-backend/internal/session"
	"github.com/pathwise/pathwise-backend/internal/types"
)

// ProgressService is the registry of active module sessions. At most one
// session exists per learner and module in this process; reopening an
// existing pair returns the live session after an authoritative refresh
// (refetch-on-resume).
type ProgressService interface {
	Open(ctx context.Context, userID, moduleID uuid.UUID) (*session.Session, error)
	Get(userID, moduleID uuid.UUID) (*session.Session, bool)
	Close(userID, moduleID uuid.UUID)
	CloseAll()

	// Snapshots serve first paint before any session is opened; they are the
	// last persisted state, not the authoritative one.
	Snapshots(ctx context.Context, userID uuid.UUID) ([]*types.ProgressSnapshot, error)
	Snapshot(ctx context.Context, userID, moduleID uuid.UUID) (*types.ProgressSnapshot, error)
	// Purge closes the session and drops the persisted snapshot.
	Purge(ctx context.Context, userID, moduleID uuid.UUID) error
}

type progressService struct {
	log       *logger.Logger
	store     docstore.Store
	trees     treecache.Cache
	snapshots repos.SnapshotRepo

	mu       sync.Mutex
	sessions map[sessionKey]*session.Session
}

type sessionKey struct {
	userID   uuid.UUID
	moduleID uuid.UUID
}

func NewProgressService(baseLog *logger.Logger, store docstore.Store, trees treecache.Cache, snapshots repos.SnapshotRepo) ProgressService {
	return &progressService{
		log:       baseLog.With("service", "ProgressService"),
		store:     store,
		trees:     trees,
		snapshots: snapshots,
		sessions:  make(map[sessionKey]*session.Session),
	}
}

func (s *progressService) Open(ctx context.Context, userID, moduleID uuid.UUID) (*session.Session, error) {
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_session_key", pkgerrors.ErrInvalidArgument)
	}
	key := sessionKey{userID: userID, moduleID: moduleID}

	s.mu.Lock()
	existing, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		if err := existing.Refresh(ctx); err != nil {
			s.log.Warn("session refresh on reopen failed", "user_id", userID, "module_id", moduleID, "error", err)
		}
		return existing, nil
	}

	sess := session.New(s.log, s.store, s.trees, s.snapshots, userID, moduleID)
	if err := sess.Load(ctx); err != nil {
		sess.Close()
		return nil, err
	}

	s.mu.Lock()
	if raced, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		sess.Close()
		return raced, nil
	}
	s.sessions[key] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *progressService) Get(userID, moduleID uuid.UUID) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey{userID: userID, moduleID: moduleID}]
	return sess, ok
}

func (s *progressService) Close(userID, moduleID uuid.UUID) {
	key := sessionKey{userID: userID, moduleID: moduleID}
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

func (s *progressService) Snapshots(ctx context.Context, userID uuid.UUID) ([]*types.ProgressSnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.GetByUserID(ctx, nil, userID)
}

func (s *progressService) Snapshot(ctx context.Context, userID, moduleID uuid.UUID) (*types.ProgressSnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.GetByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *progressService) Purge(ctx context.Context, userID, moduleID uuid.UUID) error {
	s.Close(userID, moduleID)
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.DeleteByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *progressService) CloseAll() {
	s.mu.Lock()
	all := make([]*session.Session, 0, len(s.sessions))
	for key, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}
