package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/types"
)

type captureTaskRepo struct {
	created []*types.TaskRun
}

func (r *captureTaskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.TaskRun) ([]*types.TaskRun, error) {
	for _, task := range tasks {
		task.ID = uuid.New()
	}
	r.created = append(r.created, tasks...)
	return tasks, nil
}
func (r *captureTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TaskRun, error) {
	return nil, nil
}
func (r *captureTaskRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.TaskRun, error) {
	return nil, nil
}
func (r *captureTaskRepo) MarkFailedOrRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr error, retryDelay time.Duration) error {
	return nil
}
func (r *captureTaskRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error {
	return nil
}
func (r *captureTaskRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type memoryDocRepo struct {
	docs map[string]*types.Document
}

func (r *memoryDocRepo) Create(ctx context.Context, tx *gorm.DB, docs []*types.Document) ([]*types.Document, error) {
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return docs, nil
}
func (r *memoryDocRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Document, error) {
	return r.docs[id], nil
}
func (r *memoryDocRepo) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	_, ok := r.docs[id]
	return ok, nil
}
func (r *memoryDocRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status string) error {
	if d, ok := r.docs[id]; ok {
		d.Status = status
	}
	return nil
}

func newTestEnqueuer(t *testing.T) (Enqueuer, *captureTaskRepo, *memoryDocRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	tasks := &captureTaskRepo{}
	docs := &memoryDocRepo{docs: map[string]*types.Document{}}
	return NewEnqueuer(nil, log, tasks, docs), tasks, docs
}

func TestEnqueueDocumentExtract(t *testing.T) {
	e, tasks, _ := newTestEnqueuer(t)

	task, err := e.EnqueueDocumentExtract(context.Background(), "uploads/doc1/slide.pptx")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks.created))
	}
	if task.TaskType != "document.extract_text" {
		t.Fatalf("task type: %q", task.TaskType)
	}
	if task.Status != types.TaskStatusQueued {
		t.Fatalf("status: %q", task.Status)
	}
	if task.MaxAttempts < 1 {
		t.Fatalf("max attempts: %d", task.MaxAttempts)
	}

	var payload map[string]string
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["object_key"] != "uploads/doc1/slide.pptx" {
		t.Fatalf("payload: %v", payload)
	}
}

func TestEnqueueDocumentExtract_EmptyKey(t *testing.T) {
	e, _, _ := newTestEnqueuer(t)
	if _, err := e.EnqueueDocumentExtract(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty object key")
	}
}

func TestEnsureDocumentRow(t *testing.T) {
	e, _, docs := newTestEnqueuer(t)

	if err := e.EnsureDocumentRow(context.Background(), "uploads/doc1/slide.pptx", "slide.pptx"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	doc := docs.docs["doc1"]
	if doc == nil {
		t.Fatalf("document row not created")
	}
	if doc.Status != types.DocumentStatusProcessing {
		t.Fatalf("status: %q", doc.Status)
	}
	if doc.KnowledgeGraphID == nil || *doc.KnowledgeGraphID != "doc1" {
		t.Fatalf("knowledge graph id: %v", doc.KnowledgeGraphID)
	}

	// Second call must leave the existing row untouched.
	doc.Status = types.DocumentStatusReady
	if err := e.EnsureDocumentRow(context.Background(), "uploads/doc1/slide.pptx", "slide.pptx"); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if docs.docs["doc1"].Status != types.DocumentStatusReady {
		t.Fatalf("existing row was overwritten")
	}
}
