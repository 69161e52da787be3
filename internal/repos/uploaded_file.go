package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type UploadedFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, file *types.UploadedFile) (*types.UploadedFile, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.UploadedFile, error)
	GetByStoredName(ctx context.Context, tx *gorm.DB, storedName string) (*types.UploadedFile, error)
	DeleteByStoredName(ctx context.Context, tx *gorm.DB, storedName string) (bool, error)
}

type uploadedFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadedFileRepo(db *gorm.DB, baseLog *logger.Logger) UploadedFileRepo {
	repoLog := baseLog.With("repo", "UploadedFileRepo")
	return &uploadedFileRepo{db: db, log: repoLog}
}

func (fr *uploadedFileRepo) Create(ctx context.Context, tx *gorm.DB, file *types.UploadedFile) (*types.UploadedFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	if err := transaction.WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

func (fr *uploadedFileRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.UploadedFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var files []*types.UploadedFile
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (fr *uploadedFileRepo) GetByStoredName(ctx context.Context, tx *gorm.DB, storedName string) (*types.UploadedFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var file types.UploadedFile
	err := transaction.WithContext(ctx).
		Where("stored_name = ?", storedName).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (fr *uploadedFileRepo) DeleteByStoredName(ctx context.Context, tx *gorm.DB, storedName string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	result := transaction.WithContext(ctx).
		Where("stored_name = ?", storedName).
		Delete(&types.UploadedFile{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
