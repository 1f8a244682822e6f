package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/huwany1/KeShang/internal/logger"
)

type staticDecoder struct {
	text string
	err  error
}

func (d *staticDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	return d.text, d.err
}

func newTestExtractor(t *testing.T) *TextExtractor {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewTextExtractor(log)
}

func TestTextExtractor_DispatchesOnExtension(t *testing.T) {
	ex := newTestExtractor(t)
	ex.Register("pdf", &staticDecoder{text: "pdf text"})
	ex.Register("pptx", &staticDecoder{text: "slide text"})

	got, err := ex.Extract(context.Background(), "uploads/doc1/lecture.pdf", []byte("raw"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "pdf text" {
		t.Fatalf("unexpected text: %q", got)
	}

	got, err = ex.Extract(context.Background(), "uploads/doc1/deck.pptx", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "slide text" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTextExtractor_ExtensionIsCaseInsensitive(t *testing.T) {
	ex := newTestExtractor(t)
	ex.Register("PDF", &staticDecoder{text: "ok"})

	got, err := ex.Extract(context.Background(), "uploads/doc1/SLIDES.Pdf", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTextExtractor_UnknownExtensionYieldsEmptyText(t *testing.T) {
	ex := newTestExtractor(t)
	ex.Register("pdf", &staticDecoder{text: "pdf text"})

	got, err := ex.Extract(context.Background(), "uploads/doc1/notes.docx", []byte("raw"))
	if err != nil {
		t.Fatalf("unsupported format must not error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestTextExtractor_NoExtensionYieldsEmptyText(t *testing.T) {
	ex := newTestExtractor(t)
	got, err := ex.Extract(context.Background(), "uploads/doc1/README", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestTextExtractor_DecoderErrorPropagates(t *testing.T) {
	ex := newTestExtractor(t)
	wantErr := errors.New("corrupt file")
	ex.Register("pdf", &staticDecoder{err: wantErr})

	_, err := ex.Extract(context.Background(), "uploads/doc1/broken.pdf", nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected decoder error, got %v", err)
	}
}
