package pipeline

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/huwany1/KeShang/internal/concepts"
	"github.com/huwany1/KeShang/internal/graph"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/metrics"
	"github.com/huwany1/KeShang/internal/repos"
	"github.com/huwany1/KeShang/internal/storage"
	"github.com/huwany1/KeShang/internal/types"
)

// TextExtractor is the format-dispatched decode capability consumed by the
// pipeline (satisfied by extract.TextExtractor).
type TextExtractor interface {
	Extract(ctx context.Context, objectKey string, data []byte) (string, error)
}

type Result struct {
	DocumentID   string `json:"document_id"`
	ConceptCount int    `json:"num_concepts"`
}

// DocumentPipeline runs the extraction fan-out for one uploaded file: fetch
// bytes, decode to text, extract concepts/relations, persist to the
// relational store, mirror to the graph, reconcile status, count metrics.
// Invoked at-least-once per object key by the task transport; every side
// effect is written assuming the whole sequence may run twice.
type DocumentPipeline interface {
	Process(ctx context.Context, objectKey string) (Result, error)
}

type documentPipeline struct {
	log       *logger.Logger
	store     storage.ObjectStore
	extractor TextExtractor
	nerre     concepts.Extractor
	docs      repos.DocumentRepo
	concepts  repos.DocumentConceptRepo
	relations repos.DocumentRelationRepo
	writer    graph.Writer
	sink      metrics.Sink
}

func NewDocumentPipeline(
	baseLog *logger.Logger,
	store storage.ObjectStore,
	extractor TextExtractor,
	nerre concepts.Extractor,
	docs repos.DocumentRepo,
	conceptRepo repos.DocumentConceptRepo,
	relationRepo repos.DocumentRelationRepo,
	writer graph.Writer,
	sink metrics.Sink,
) DocumentPipeline {
	return &documentPipeline{
		log:       baseLog.With("service", "DocumentPipeline"),
		store:     store,
		extractor: extractor,
		nerre:     nerre,
		docs:      docs,
		concepts:  conceptRepo,
		relations: relationRepo,
		writer:    writer,
		sink:      sink,
	}
}

func (p *documentPipeline) Process(ctx context.Context, objectKey string) (Result, error) {
	documentID := DeriveDocumentID(objectKey)
	log := p.log.With("object_key", objectKey, "document_id", documentID)

	res, err := p.run(ctx, log, documentID, objectKey)
	if err == nil {
		return res, nil
	}

	// Failure path: best-effort status flip, then hand the original error
	// back to the transport for redelivery. The status write may itself
	// fail (store down); that error is swallowed so it cannot mask the
	// one being re-raised. Detached from ctx so a soft-limit cancellation
	// still lets the failed status land.
	failCtx := context.WithoutCancel(ctx)
	if stErr := p.docs.UpdateStatus(failCtx, nil, documentID, types.DocumentStatusFailed); stErr != nil {
		log.Warn("Failed to mark document failed", "error", stErr)
	}
	if mErr := p.sink.Incr(failCtx, metrics.CounterDocumentFailed); mErr != nil {
		log.Warn("Failed to increment failure counter", "error", mErr)
	}
	log.Error("Document pipeline failed", "error", err)
	return Result{}, err
}

func (p *documentPipeline) run(ctx context.Context, log *logger.Logger, documentID, objectKey string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := p.store.Get(ctx, objectKey)
	if err != nil {
		return Result{}, err
	}

	text, err := p.extractor.Extract(ctx, objectKey, data)
	if err != nil {
		return Result{}, err
	}

	entities, relations := p.nerre.Extract(text)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	conceptRows := make([]*types.DocumentConcept, 0, len(entities))
	for _, name := range entities {
		conceptRows = append(conceptRows, &types.DocumentConcept{
			DocumentID:  documentID,
			ConceptName: name,
		})
	}
	relationRows := make([]*types.DocumentRelation, 0, len(relations))
	for _, rel := range relations {
		relationRows = append(relationRows, &types.DocumentRelation{
			DocumentID:    documentID,
			SourceConcept: rel.Source,
			TargetConcept: rel.Target,
		})
	}
	if err := p.concepts.Append(ctx, nil, conceptRows); err != nil {
		return Result{}, err
	}
	if err := p.relations.Append(ctx, nil, relationRows); err != nil {
		return Result{}, err
	}

	// Graph mirror. No transaction spans the two stores: a failure here
	// leaves the relational rows in place and the document ends "failed".
	if err := p.writer.MergeDocumentConcepts(ctx, documentID, entities); err != nil {
		return Result{}, err
	}
	if len(relations) > 0 {
		if err := p.writer.MergeRelatedEdges(ctx, relations); err != nil {
			return Result{}, err
		}
	}

	if err := p.docs.UpdateStatus(ctx, nil, documentID, types.DocumentStatusReady); err != nil {
		return Result{}, err
	}

	if err := p.sink.Incr(ctx, metrics.CounterDocumentProcessed); err != nil {
		log.Warn("Failed to increment processed counter", "error", err)
	}

	log.Info("Document processed", "num_concepts", len(entities), "num_relations", len(relations))
	return Result{DocumentID: documentID, ConceptCount: len(entities)}, nil
}

// DeriveDocumentID maps an object key back to its document id. Upload keys
// look like "uploads/{documentID}/{filename}"; the id is the second path
// segment. Keys outside that layout fall back to the whole key, clipped to
// the 64-char id column. Pure, so the failure path can re-derive it.
func DeriveDocumentID(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	id := objectKey
	if len(segments) >= 2 && segments[1] != "" {
		id = segments[1]
	}
	if utf8.RuneCountInString(id) > 64 {
		runes := []rune(id)
		id = string(runes[:64])
	}
	return id
}
