package dto

// SearchRequest represents a semantic search request.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// SearchResult represents one ranked chunk match. FullTranscript and Filename
// come from the relational join and are null when the vector entry outlived
// its record.
type SearchResult struct {
	Score          float64 `json:"score"`
	TranscriptID   int64   `json:"transcript_id"`
	ChunkIndex     int     `json:"chunk_index"`
	ChunkText      string  `json:"chunk_text"`
	Name           string  `json:"name"`
	Date           string  `json:"date"`
	FullTranscript *string `json:"full_transcript"`
	Filename       *string `json:"filename"`
}

// SearchResponse wraps the ranked matches.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
