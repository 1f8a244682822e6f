package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/types"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, docs []*types.Document) ([]*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Document, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	// UpdateStatus is the status reconciler: a single-field write with no
	// optimistic concurrency check. Concurrent runs for the same document
	// race here and the last completed write wins. Updating a missing row
	// is a no-op, not an error.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status string) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, docs []*types.Document) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(docs) == 0 {
		return []*types.Document{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc types.Document
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Update("status", status).Error
}
