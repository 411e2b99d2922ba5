package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
)

type SnapshotRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.ProgressSnapshot) error
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ProgressSnapshot, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ProgressSnapshot, error)
	DeleteByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	repoLog := baseLog.With("repo", "SnapshotRepo")
	return &snapshotRepo{db: db, log: repoLog}
}

func (r *snapshotRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.ProgressSnapshot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	// Upsert by unique user_id + module_id
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", row.UserID, row.ModuleID).
		Assign(row).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *snapshotRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ProgressSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, nil
	}

	var result types.ProgressSnapshot
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *snapshotRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ProgressSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProgressSnapshot
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *snapshotRepo) DeleteByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Delete(&types.ProgressSnapshot{}).Error; err != nil {
		return err
	}
	return nil
}
