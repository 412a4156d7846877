// Package dto defines the wire types for the v1 HTTP API.
package dto

// TranscriptResponse represents a stored transcript.
type TranscriptResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// IngestResponse represents the result of an audio upload. When the date was
// already taken the existing record is returned with Detail set and no
// indexing fields; otherwise EmbeddingStatus and ChunksProcessed report the
// indexing outcome.
type IngestResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	Text            string `json:"text"`
	Detail          string `json:"detail,omitempty"`
	EmbeddingStatus string `json:"embedding_status,omitempty"`
	ChunksProcessed *int   `json:"chunks_processed,omitempty"`
}

// UpdateTranscriptRequest carries replacement text for a transcript.
type UpdateTranscriptRequest struct {
	Text string `json:"text"`
}

// UpdateTranscriptResponse represents an updated transcript together with the
// re-indexing outcome.
type UpdateTranscriptResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	Filename        string `json:"filename"`
	Text            string `json:"text"`
	EmbeddingStatus string `json:"embedding_status"`
	ChunksProcessed int    `json:"chunks_processed"`
}

// DeleteTranscriptResponse reports a completed deletion. VectorDeletionStatus
// is "success" or a "vector_deletion_failed: ..." message; the record itself
// is gone either way.
type DeleteTranscriptResponse struct {
	Detail               string `json:"detail"`
	VectorDeletionStatus string `json:"vector_deletion_status"`
}
