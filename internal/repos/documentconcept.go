package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/types"
)

type DocumentConceptRepo interface {
	// Append inserts the rows as-is. There is no existence check and no
	// upsert: a retried pipeline run appends a second batch for the same
	// document.
	Append(ctx context.Context, tx *gorm.DB, rows []*types.DocumentConcept) error
	CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (int64, error)
}

type documentConceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentConceptRepo(db *gorm.DB, baseLog *logger.Logger) DocumentConceptRepo {
	return &documentConceptRepo{db: db, log: baseLog.With("repo", "DocumentConceptRepo")}
}

func (r *documentConceptRepo) Append(ctx context.Context, tx *gorm.DB, rows []*types.DocumentConcept) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *documentConceptRepo) CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DocumentConcept{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
