package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/jobs/documentjob"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/pipeline"
	"github.com/huwany1/KeShang/internal/repos"
	"github.com/huwany1/KeShang/internal/types"
	"github.com/huwany1/KeShang/internal/utils"
)

// Enqueuer is the producer half of the task transport: the upload service
// calls it after the object and document row exist.
type Enqueuer interface {
	EnqueueDocumentExtract(ctx context.Context, objectKey string) (*types.TaskRun, error)
	// EnsureDocumentRow backfills the document row for an object key when
	// process redelivery may outlive the uploader. Existing rows are left
	// untouched.
	EnsureDocumentRow(ctx context.Context, objectKey, fileName string) error
}

type enqueuer struct {
	db          *gorm.DB
	log         *logger.Logger
	tasks       repos.TaskRunRepo
	docs        repos.DocumentRepo
	maxAttempts int
}

func NewEnqueuer(db *gorm.DB, baseLog *logger.Logger, tasks repos.TaskRunRepo, docs repos.DocumentRepo) Enqueuer {
	return &enqueuer{
		db:          db,
		log:         baseLog.With("service", "TaskEnqueuer"),
		tasks:       tasks,
		docs:        docs,
		maxAttempts: utils.GetEnvAsInt("TASK_MAX_ATTEMPTS", 4, baseLog),
	}
}

func (e *enqueuer) EnqueueDocumentExtract(ctx context.Context, objectKey string) (*types.TaskRun, error) {
	if objectKey == "" {
		return nil, fmt.Errorf("enqueue: missing object key")
	}
	payload, err := json.Marshal(map[string]string{"object_key": objectKey})
	if err != nil {
		return nil, err
	}
	created, err := e.tasks.Create(ctx, nil, []*types.TaskRun{{
		TaskType:    documentjob.TaskType,
		Payload:     payload,
		Status:      types.TaskStatusQueued,
		MaxAttempts: e.maxAttempts,
	}})
	if err != nil {
		return nil, err
	}
	e.log.Info("Enqueued document extraction", "object_key", objectKey, "task_id", created[0].ID)
	return created[0], nil
}

func (e *enqueuer) EnsureDocumentRow(ctx context.Context, objectKey, fileName string) error {
	documentID := pipeline.DeriveDocumentID(objectKey)
	exists, err := e.docs.ExistsByID(ctx, nil, documentID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	graphID := documentID
	_, err = e.docs.Create(ctx, nil, []*types.Document{{
		ID:               documentID,
		FileName:         fileName,
		ObjectKey:        objectKey,
		Status:           types.DocumentStatusProcessing,
		KnowledgeGraphID: &graphID,
	}})
	return err
}
