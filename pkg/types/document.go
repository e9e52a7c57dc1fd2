// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionStatus indicates the state of text extraction for a document.
type ExtractionStatus string

const (
	ExtractionNone   ExtractionStatus = "none"
	ExtractionDone   ExtractionStatus = "extracted"
	ExtractionFailed ExtractionStatus = "failed"
)

// DocumentKind identifies the source format of an uploaded document.
type DocumentKind string

const (
	DocPDF   DocumentKind = "pdf"
	DocDOCX  DocumentKind = "docx"
	DocCSV   DocumentKind = "csv"
	DocImage DocumentKind = "image"
)

// Document holds metadata and paths for an uploaded supporting document
// (intake forms, questionnaires, prior reports, scanned pages).
type Document struct {
	// Name is the original filename (e.g. "lifestyle-questionnaire.pdf").
	Name string `json:"name" yaml:"name"`

	// Kind is the detected source format.
	Kind DocumentKind `json:"kind" yaml:"kind"`

	// SourcePath is the local filesystem path to the raw document.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// TextPath is the path to the extracted text artifact, once written.
	TextPath string `json:"text_path,omitempty" yaml:"text_path,omitempty"`

	// Status tracks whether text has been extracted.
	Status ExtractionStatus `json:"status" yaml:"status"`
}
