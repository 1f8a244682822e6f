package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/utils"
)

// PDFDecoder renders PDF bytes to per-page plain text through a Document AI
// OCR processor. Pages are joined with newlines in page order.
type PDFDecoder struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

func NewPDFDecoder(log *logger.Logger) (*PDFDecoder, error) {
	if log == nil {
		return nil, fmt.Errorf("pdfdecoder: logger required")
	}
	slog := log.With("service", "PDFDecoder")

	projectID := strings.TrimSpace(utils.GetEnv("DOCAI_PROJECT_ID", "", log))
	location := strings.TrimSpace(utils.GetEnv("DOCAI_LOCATION", "us", log))
	processorID := strings.TrimSpace(utils.GetEnv("DOCAI_PROCESSOR_ID", "", log))
	if projectID == "" || processorID == "" {
		return nil, fmt.Errorf("pdfdecoder: missing env var DOCAI_PROJECT_ID or DOCAI_PROCESSOR_ID")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(context.Background(), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("pdfdecoder: documentai client: %w", err)
	}

	slog.Info("Document AI initialized", "endpoint", endpoint)

	return &PDFDecoder{
		log:       slog,
		client:    client,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
	}, nil
}

func (d *PDFDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("pdfdecoder: ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return "", nil
	}
	return pagesToText(resp.Document), nil
}

func (d *PDFDecoder) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func pagesToText(doc *documentaipb.Document) string {
	if doc == nil {
		return ""
	}
	pages := make([]string, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		if p == nil || p.Layout == nil || p.Layout.TextAnchor == nil {
			continue
		}
		t := textFromAnchor(doc.Text, p.Layout.TextAnchor)
		if strings.TrimSpace(t) == "" {
			continue
		}
		pages = append(pages, t)
	}
	if len(pages) == 0 {
		return doc.Text
	}
	return strings.Join(pages, "\n")
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}
