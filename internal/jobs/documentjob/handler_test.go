package documentjob

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/huwany1/KeShang/internal/jobs/runtime"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/pipeline"
	"github.com/huwany1/KeShang/internal/types"
)

type fakePipeline struct {
	gotKey string
	res    pipeline.Result
	err    error
}

func (p *fakePipeline) Process(ctx context.Context, objectKey string) (pipeline.Result, error) {
	p.gotKey = objectKey
	return p.res, p.err
}

func newHandlerContext(t *testing.T, payload string) *runtime.Context {
	t.Helper()
	jc, err := runtime.NewContext(context.Background(), &types.TaskRun{Payload: datatypes.JSON(payload)})
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return jc
}

func TestHandler_RunsPipelineAndRecordsResult(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	pl := &fakePipeline{res: pipeline.Result{DocumentID: "doc1", ConceptCount: 3}}
	h := NewHandler(log, pl)

	if h.Type() != "document.extract_text" {
		t.Fatalf("task type: %q", h.Type())
	}

	jc := newHandlerContext(t, `{"object_key": "uploads/doc1/slide.pptx"}`)
	if err := h.Run(jc); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pl.gotKey != "uploads/doc1/slide.pptx" {
		t.Fatalf("object key: %q", pl.gotKey)
	}

	var res pipeline.Result
	if err := json.Unmarshal(jc.Result, &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.DocumentID != "doc1" || res.ConceptCount != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandler_MissingObjectKey(t *testing.T) {
	log, _ := logger.New("development")
	h := NewHandler(log, &fakePipeline{})
	jc := newHandlerContext(t, `{}`)
	if err := h.Run(jc); err == nil {
		t.Fatalf("expected error for missing object_key")
	}
}

func TestHandler_PipelineErrorPropagates(t *testing.T) {
	log, _ := logger.New("development")
	wantErr := errors.New("fetch failed")
	h := NewHandler(log, &fakePipeline{err: wantErr})
	jc := newHandlerContext(t, `{"object_key": "uploads/doc1/slide.pptx"}`)
	if err := h.Run(jc); !errors.Is(err, wantErr) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}
