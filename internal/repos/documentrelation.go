package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/types"
)

type DocumentRelationRepo interface {
	Append(ctx context.Context, tx *gorm.DB, rows []*types.DocumentRelation) error
	CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (int64, error)
}

type documentRelationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRelationRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRelationRepo {
	return &documentRelationRepo{db: db, log: baseLog.With("repo", "DocumentRelationRepo")}
}

func (r *documentRelationRepo) Append(ctx context.Context, tx *gorm.DB, rows []*types.DocumentRelation) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *documentRelationRepo) CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DocumentRelation{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
