package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/huwany1/KeShang/internal/concepts"
	"github.com/huwany1/KeShang/internal/logger"
)

// Writer mirrors extracted knowledge into the graph store. All writes are
// MERGE-based: concept nodes are keyed by name and shared across every
// document that mentions them, so repeated runs leave node and edge counts
// unchanged. This is the idempotent half of the persistence fan-out; the
// relational half appends.
type Writer interface {
	// MergeDocumentConcepts ensures the Document node, each Concept node,
	// and a MENTIONED_IN edge from every concept to the document.
	MergeDocumentConcepts(ctx context.Context, documentID string, conceptNames []string) error
	// MergeRelatedEdges creates RELATED_TO between concept pairs;
	// undirected semantics via a symmetric pair of directed edges. The
	// relation is global, not scoped to the document that produced it.
	MergeRelatedEdges(ctx context.Context, pairs []concepts.Relation) error
}

type writer struct {
	client *Client
	log    *logger.Logger
}

func NewWriter(client *Client, baseLog *logger.Logger) Writer {
	return &writer{
		client: client,
		log:    baseLog.With("service", "GraphWriter"),
	}
}

func (w *writer) MergeDocumentConcepts(ctx context.Context, documentID string, conceptNames []string) error {
	if w.client == nil || w.client.Driver == nil {
		return fmt.Errorf("graph: writer not connected")
	}
	if documentID == "" {
		return fmt.Errorf("graph: missing documentID")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	names := make([]any, 0, len(conceptNames))
	for _, n := range conceptNames {
		if n == "" {
			continue
		}
		names = append(names, n)
	}

	session := w.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MERGE (d:Document {id: $doc})`, map[string]any{"doc": documentID})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(names) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
UNWIND $names AS name
MERGE (c:Concept {name: name})
WITH c
MATCH (d:Document {id: $doc})
MERGE (c)-[:MENTIONED_IN]->(d)
`, map[string]any{"names": names, "doc": documentID})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (w *writer) MergeRelatedEdges(ctx context.Context, pairs []concepts.Relation) error {
	if w.client == nil || w.client.Driver == nil {
		return fmt.Errorf("graph: writer not connected")
	}
	if len(pairs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rels := make([]any, 0, len(pairs))
	for _, p := range pairs {
		if p.Source == "" || p.Target == "" {
			continue
		}
		rels = append(rels, map[string]any{"a": p.Source, "b": p.Target})
	}
	if len(rels) == 0 {
		return nil
	}

	session := w.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Concept {name: r.a})
MATCH (b:Concept {name: r.b})
MERGE (a)-[:RELATED_TO]->(b)
MERGE (b)-[:RELATED_TO]->(a)
`, map[string]any{"rels": rels})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
