package extract

import "context"

// TextDecoder handles formats that are already plain text (.txt, .md).
type TextDecoder struct{}

func NewTextDecoder() *TextDecoder { return &TextDecoder{} }

func (d *TextDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	return string(data), nil
}
