package types

import (
	"time"
)

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Document is the authoritative record for an uploaded course file. The upload
// path creates the row in status "processing"; after that only the extraction
// pipeline writes the status field.
type Document struct {
	ID               string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UploaderID       *int64    `gorm:"column:uploader_id" json:"uploader_id,omitempty"`
	FileName         string    `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	ObjectKey        string    `gorm:"column:object_key;type:varchar(512);not null" json:"object_key"`
	Status           string    `gorm:"column:status;type:varchar(32);not null;default:'processing'" json:"status"`
	KnowledgeGraphID *string   `gorm:"column:knowledge_graph_id;type:varchar(128)" json:"knowledge_graph_id,omitempty"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

// DocumentConcept rows are append-only: a redelivered extraction task writes a
// second batch for the same document rather than upserting. The table doubles
// as an audit log of what each run extracted.
type DocumentConcept struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID  string `gorm:"column:document_id;type:varchar(64);not null;index" json:"document_id"`
	ConceptName string `gorm:"column:concept_name;type:varchar(255);not null;index" json:"concept_name"`
}

func (DocumentConcept) TableName() string { return "document_concepts" }

type DocumentRelation struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID    string `gorm:"column:document_id;type:varchar(64);not null;index" json:"document_id"`
	SourceConcept string `gorm:"column:source_concept;type:varchar(255);not null" json:"source_concept"`
	TargetConcept string `gorm:"column:target_concept;type:varchar(255);not null" json:"target_concept"`
}

func (DocumentRelation) TableName() string { return "document_relations" }
