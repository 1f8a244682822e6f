package documentjob

import (
	"fmt"

	"github.com/huwany1/KeShang/internal/jobs/runtime"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/pipeline"
)

// TaskType is the queue name for document extraction deliveries.
const TaskType = "document.extract_text"

// Handler bridges the task transport to the document pipeline. The payload
// carries the object key; everything else is derived inside the pipeline.
type Handler struct {
	log *logger.Logger
	pl  pipeline.DocumentPipeline
}

func NewHandler(baseLog *logger.Logger, pl pipeline.DocumentPipeline) *Handler {
	return &Handler{
		log: baseLog.With("handler", TaskType),
		pl:  pl,
	}
}

func (h *Handler) Type() string { return TaskType }

func (h *Handler) Run(jc *runtime.Context) error {
	objectKey, ok := jc.PayloadString("object_key")
	if !ok {
		return fmt.Errorf("documentjob: payload missing object_key")
	}

	res, err := h.pl.Process(jc.Ctx, objectKey)
	if err != nil {
		return err
	}
	if err := jc.SetResult(res); err != nil {
		h.log.Warn("Failed to encode task result", "error", err)
	}
	return nil
}
