package runtime

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/huwany1/KeShang/internal/types"
)

type noopHandler struct{ taskType string }

func (h *noopHandler) Type() string            { return h.taskType }
func (h *noopHandler) Run(ctx *Context) error  { return nil }

func TestRegistry_RejectsDuplicateAndEmptyType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&noopHandler{taskType: "document.extract_text"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&noopHandler{taskType: "document.extract_text"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := r.Register(&noopHandler{taskType: ""}); err == nil {
		t.Fatalf("expected empty type error")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected nil handler error")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	h := &noopHandler{taskType: "document.extract_text"}
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Get("document.extract_text")
	if !ok || got != h {
		t.Fatalf("lookup failed: %v %v", got, ok)
	}
	if _, ok := r.Get("unknown.task"); ok {
		t.Fatalf("unexpected handler for unknown type")
	}
}

func TestContext_PayloadString(t *testing.T) {
	task := &types.TaskRun{Payload: datatypes.JSON(`{"object_key": "uploads/doc1/slide.pptx", "blank": "  "}`)}
	jc, err := NewContext(context.Background(), task)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}

	key, ok := jc.PayloadString("object_key")
	if !ok || key != "uploads/doc1/slide.pptx" {
		t.Fatalf("object_key: got %q %v", key, ok)
	}
	if _, ok := jc.PayloadString("missing"); ok {
		t.Fatalf("missing key must report false")
	}
	if _, ok := jc.PayloadString("blank"); ok {
		t.Fatalf("blank value must report false")
	}
}

func TestContext_MalformedPayload(t *testing.T) {
	task := &types.TaskRun{Payload: datatypes.JSON(`{not json`)}
	jc, err := NewContext(context.Background(), task)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if jc == nil || jc.Payload() == nil || len(jc.Payload()) != 0 {
		t.Fatalf("malformed payload must decode to empty map")
	}
}

func TestContext_SetResult(t *testing.T) {
	jc, _ := NewContext(context.Background(), &types.TaskRun{})
	if err := jc.SetResult(map[string]any{"document_id": "doc1", "num_concepts": 3}); err != nil {
		t.Fatalf("set result: %v", err)
	}
	if len(jc.Result) == 0 {
		t.Fatalf("result not recorded")
	}
}
