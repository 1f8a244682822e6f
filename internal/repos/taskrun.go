package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/types"
)

type TaskRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tasks []*types.TaskRun) ([]*types.TaskRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TaskRun, error)
	// ClaimNextRunnable atomically claims the oldest task that is either
	// queued with its run_after elapsed, or running with a stale heartbeat
	// (a worker died past the hard time limit; the row becomes deliverable
	// again). Claiming bumps attempts; a claim that would exceed
	// max_attempts marks the row failed instead and keeps scanning.
	// Returns nil when nothing is runnable.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.TaskRun, error)
	// MarkFailedOrRetry re-queues the task with a fixed backoff while
	// attempts < max_attempts, otherwise marks it terminally failed.
	MarkFailedOrRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr error, retryDelay time.Duration) error
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type taskRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRunRepo(db *gorm.DB, baseLog *logger.Logger) TaskRunRepo {
	return &taskRunRepo{db: db, log: baseLog.With("repo", "TaskRunRepo")}
}

func (r *taskRunRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.TaskRun) ([]*types.TaskRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.TaskRun{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TaskRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var task types.TaskRun
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.TaskRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var claimed *types.TaskRun
	err := transaction.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
		now := time.Now().UTC()
		staleCutoff := now.Add(-staleRunning)

		for {
			var task types.TaskRun
			err := dtx.
				Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
				Where(
					"(status = ? AND (run_after IS NULL OR run_after <= ?)) OR (status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at <= ?)",
					types.TaskStatusQueued, now, types.TaskStatusRunning, staleCutoff,
				).
				Order("created_at ASC").
				Limit(1).
				First(&task).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			if task.Attempts+1 > task.MaxAttempts {
				if err := dtx.Model(&types.TaskRun{}).
					Where("id = ?", task.ID).
					Updates(map[string]interface{}{
						"status":      types.TaskStatusFailed,
						"finished_at": now,
						"last_error":  "exceeded max attempts",
					}).Error; err != nil {
					return err
				}
				continue
			}

			if err := dtx.Model(&types.TaskRun{}).
				Where("id = ?", task.ID).
				Updates(map[string]interface{}{
					"status":       types.TaskStatusRunning,
					"attempts":     task.Attempts + 1,
					"started_at":   now,
					"heartbeat_at": now,
				}).Error; err != nil {
				return err
			}

			task.Status = types.TaskStatusRunning
			task.Attempts = task.Attempts + 1
			task.StartedAt = &now
			task.HeartbeatAt = &now
			claimed = &task
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *taskRunRepo) MarkFailedOrRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr error, retryDelay time.Duration) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
	}
	return transaction.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
		var task types.TaskRun
		if err := dtx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if task.Attempts < task.MaxAttempts {
			runAfter := NextRunAfter(now, retryDelay)
			return dtx.Model(&types.TaskRun{}).
				Where("id = ?", id).
				Updates(map[string]interface{}{
					"status":     types.TaskStatusQueued,
					"run_after":  runAfter,
					"last_error": errMsg,
				}).Error
		}
		return dtx.Model(&types.TaskRun{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":      types.TaskStatusFailed,
				"finished_at": now,
				"last_error":  errMsg,
			}).Error
	})
}

func (r *taskRunRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      types.TaskStatusSucceeded,
		"finished_at": now,
		"last_error":  "",
	}
	if len(result) > 0 {
		updates["result"] = result
	}
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *taskRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ? AND status = ?", id, types.TaskStatusRunning).
		Update("heartbeat_at", time.Now().UTC()).Error
}

// NextRunAfter computes the fixed-backoff redelivery time for a failed
// attempt. Kept as a pure helper so the backoff contract is testable without
// a database.
func NextRunAfter(now time.Time, retryDelay time.Duration) time.Time {
	if retryDelay < 0 {
		retryDelay = 0
	}
	return now.Add(retryDelay)
}
