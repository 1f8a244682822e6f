package extract

import (
	"context"
	"path"
	"strings"

	"github.com/huwany1/KeShang/internal/logger"
)

// Decoder renders document bytes of one known format to plain text. Blocks
// (pages, slides) are returned joined with newlines in source order.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (string, error)
}

// TextExtractor dispatches on the object key's file extension. An extension
// with no registered decoder yields empty text rather than an error: the
// pipeline keeps advancing and the document reaches "ready" with zero
// concepts. That is a policy choice, not a defect.
type TextExtractor struct {
	log      *logger.Logger
	decoders map[string]Decoder
}

func NewTextExtractor(baseLog *logger.Logger) *TextExtractor {
	return &TextExtractor{
		log:      baseLog.With("service", "TextExtractor"),
		decoders: make(map[string]Decoder),
	}
}

// Register binds a decoder to an extension ("pdf", ".pdf" and "PDF" are
// equivalent). Later registrations replace earlier ones.
func (e *TextExtractor) Register(ext string, d Decoder) {
	e.decoders[normalizeExt(ext)] = d
}

func (e *TextExtractor) Extract(ctx context.Context, objectKey string, data []byte) (string, error) {
	ext := normalizeExt(path.Ext(objectKey))
	d, ok := e.decoders[ext]
	if !ok {
		e.log.Debug("No decoder for extension, yielding empty text", "extension", ext, "object_key", objectKey)
		return "", nil
	}
	text, err := d.Decode(ctx, data)
	if err != nil {
		return "", err
	}
	return text, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
