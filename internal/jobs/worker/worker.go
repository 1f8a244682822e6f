package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/jobs/runtime"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/repos"
	"github.com/huwany1/KeShang/internal/types"
	"github.com/huwany1/KeShang/internal/utils"
)

// Worker is a fixed-size pool of claim loops over the task_run table. Each
// delivery runs its handler to completion before the loop claims again; there
// is no intra-task concurrency. Handler errors re-queue the row with a fixed
// backoff until max attempts, matching an at-least-once transport. The soft
// time limit is a context deadline handlers observe at suspension points; a
// worker killed past the hard limit leaves a stale heartbeat and the row is
// reclaimed by another loop.
type Worker struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.TaskRunRepo
	reg  *runtime.Registry

	concurrency   int
	pollInterval  time.Duration
	retryDelay    time.Duration
	softTimeLimit time.Duration
	staleRunning  time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.TaskRunRepo, reg *runtime.Registry) *Worker {
	log := baseLog.With("component", "TaskWorker")
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, baseLog)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		db:            db,
		log:           log,
		repo:          repo,
		reg:           reg,
		concurrency:   concurrency,
		pollInterval:  1 * time.Second,
		retryDelay:    utils.GetEnvAsSeconds("TASK_RETRY_DELAY_SECONDS", 5*time.Second, baseLog),
		softTimeLimit: utils.GetEnvAsSeconds("TASK_SOFT_TIME_LIMIT_SECONDS", 300*time.Second, baseLog),
		staleRunning:  utils.GetEnvAsSeconds("TASK_STALE_RUNNING_SECONDS", 600*time.Second, baseLog),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting task worker pool", "concurrency", w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			task, err := w.repo.ClaimNextRunnable(ctx, w.db, w.staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if task == nil {
				continue
			}
			w.runTask(ctx, workerID, task)
		}
	}
}

func (w *Worker) runTask(ctx context.Context, workerID int, task *types.TaskRun) {
	log := w.log.With("worker_id", workerID, "task_id", task.ID, "task_type", task.TaskType, "attempt", task.Attempts)

	h, ok := w.reg.Get(task.TaskType)
	if !ok {
		log.Warn("No handler registered for task_type")
		if err := w.repo.MarkFailedOrRetry(ctx, w.db, task.ID, &missingHandlerError{TaskType: task.TaskType}, w.retryDelay); err != nil {
			log.Error("Failed to record dispatch failure", "error", err)
		}
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.softTimeLimit)
	defer cancel()

	hbCtx, stopHeartbeat := context.WithCancel(taskCtx)
	go w.heartbeatLoop(hbCtx, task.ID)
	defer stopHeartbeat()

	jc, decodeErr := runtime.NewContext(taskCtx, task)
	if decodeErr != nil {
		log.Warn("Task payload decode failed", "error", decodeErr)
	}

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Task handler panic", "panic", r)
				runErr = errFromRecover(r)
			}
		}()
		runErr = h.Run(jc)
	}()

	if runErr != nil {
		log.Warn("Task attempt failed", "error", runErr)
		if err := w.repo.MarkFailedOrRetry(ctx, w.db, task.ID, runErr, w.retryDelay); err != nil {
			log.Error("Failed to record task failure", "error", err)
		}
		return
	}
	if err := w.repo.MarkSucceeded(ctx, w.db, task.ID, jc.Result); err != nil {
		log.Error("Failed to record task success", "error", err)
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context, id uuid.UUID) {
	interval := w.staleRunning / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(context.Background(), w.db, id); err != nil {
				w.log.Warn("Heartbeat failed", "task_id", id, "error", err)
			}
		}
	}
}

type missingHandlerError struct{ TaskType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for task_type=" + e.TaskType
}

func errFromRecover(v any) error { return fmt.Errorf("panic: %v", v) }
