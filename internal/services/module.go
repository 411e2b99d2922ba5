package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/clients/docstore"
	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/platform/apierr"
	"github.com/pathwise/pathwise-backend/internal/progression"
	"github.com/pathwise/pathwise-backend/internal/types"
)

// ModuleListing is one dashboard row: the overview plus the evaluated
// module-level lock.
type ModuleListing struct {
	types.ModuleOverview
	Locked       bool   `json:"locked"`
	LockedReason string `json:"locked_reason,omitempty"`
}

type ModuleService interface {
	ListModules(ctx context.Context, userID uuid.UUID) ([]ModuleListing, error)
	ModuleLocked(ctx context.Context, userID, moduleID uuid.UUID) (bool, string, error)
}

type moduleService struct {
	log   *logger.Logger
	store docstore.Store
}

func NewModuleService(baseLog *logger.Logger, store docstore.Store) ModuleService {
	return &moduleService{
		log:   baseLog.With("service", "ModuleService"),
		store: store,
	}
}

func (s *moduleService) ListModules(ctx context.Context, userID uuid.UUID) ([]ModuleListing, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
	}
	overviews, err := s.store.ListModules(ctx, userID)
	if err != nil {
		s.log.Warn("ListModules: dashboard fetch failed", "user_id", userID, "error", err)
		return nil, err
	}

	out := make([]ModuleListing, 0, len(overviews))
	for _, ov := range overviews {
		row := ModuleListing{ModuleOverview: ov}
		if progression.ModuleLocked(ov, overviews) {
			row.Locked = true
			row.LockedReason = progression.LockedModuleMessage
		}
		out = append(out, row)
	}
	return out, nil
}

// ModuleLocked re-evaluates the dashboard lock for one module before any
// session is opened against it.
func (s *moduleService) ModuleLocked(ctx context.Context, userID, moduleID uuid.UUID) (bool, string, error) {
	overviews, err := s.store.ListModules(ctx, userID)
	if err != nil {
		return false, "", err
	}
	for _, ov := range overviews {
		if ov.ID == moduleID {
			if progression.ModuleLocked(ov, overviews) {
				return true, progression.LockedModuleMessage, nil
			}
			return false, "", nil
		}
	}
	return false, "", nil
}
