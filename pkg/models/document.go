package models

import (
	"slices"
	"time"
)

// Field is one extracted key/value pair.
type Field struct {
	ID            string  `json:"id"`
	Key           string  `json:"key"`
	Value         string  `json:"value"`
	Confidence    float64 `json:"confidence"`
	PageReference int     `json:"page_ref"`
}

// SchemaField describes a key a project expects to extract.
type SchemaField struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

// ProjectRef is the extraction project selected on a document AI node.
type ProjectRef struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	DocumentType   string        `json:"document_type"`
	ExtractionMode string        `json:"extraction_mode,omitempty"`
	Schema         []SchemaField `json:"schema,omitempty"`
}

func (p *ProjectRef) Clone() *ProjectRef {
	out := *p
	out.Schema = slices.Clone(p.Schema)

	return &out
}

// UploadedFile points at a document kept by the document store.
type UploadedFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages"`
	Location    string    `json:"location"`
	StoredAt    time.Time `json:"stored_at"`
}
