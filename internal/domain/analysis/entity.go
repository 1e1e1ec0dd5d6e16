package analysis

import "time"

// ReportID identifier type
type ReportID string

// Request describes one analysis run. Immutable once created; constructed
// by the HTTP layer or the digest scheduler.
type Request struct {
	Category string
	Query    string
	AsOfDate string // YYYY-MM-DD, empty means no date restriction
}

// Document is one retrieved material candidate. URL is the unique key;
// two documents with the same URL are the same entity. Read-only after
// retrieval.
type Document struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Score    float64 `json:"score"` // cosine similarity in [0,1]
}

// Chunk is an ordered, non-empty group of documents whose estimated token
// cost fits the context budget. Chunks partition the retrieved list: every
// document lands in exactly one chunk, in retrieval order.
type Chunk struct {
	Index     int
	Documents []Document
}

// FilteredDocument is what survives the relevance filter: the model returns
// only the text/url pairs it judged on-topic.
type FilteredDocument struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Report is the terminal artifact of a run. Callers always get one; failures
// surface as Status error with a message, never as a panic or raw error.
type Report struct {
	ID             ReportID  `json:"id"`
	Status         Status    `json:"status"`
	Category       string    `json:"category"`
	Query          string    `json:"query"`
	Theme          string    `json:"theme,omitempty"`
	MaterialsCount int       `json:"materials_count"`
	Narrative      string    `json:"narrative,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
