// Package search provides the vector index contract for transcript retrieval.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// MaxCandidateEntries bounds the candidate id range used to clean up vector
// entries for a transcript whose exact chunk count is unknown. A transcript
// that ever produced more chunks than this would leave orphaned entries
// behind after an update or delete.
const MaxCandidateEntries = 1000

// EntryID builds the composite vector entry id "{transcript_id}_{chunk_index}".
// It is deterministic and serves as the sole deletion/overwrite handle.
func EntryID(transcriptID int64, chunkIndex int) string {
	return fmt.Sprintf("%d_%d", transcriptID, chunkIndex)
}

// ParseEntryID splits a composite entry id back into its parts.
func ParseEntryID(id string) (transcriptID int64, chunkIndex int, err error) {
	sep := strings.LastIndexByte(id, '_')
	if sep <= 0 || sep == len(id)-1 {
		return 0, 0, fmt.Errorf("malformed entry id %q", id)
	}
	transcriptID, err = strconv.ParseInt(id[:sep], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed entry id %q: %w", id, err)
	}
	chunkIndex, err = strconv.Atoi(id[sep+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed entry id %q: %w", id, err)
	}
	return transcriptID, chunkIndex, nil
}

// EntryIDs returns the exact entry ids {id}_0 .. {id}_{count-1}.
func EntryIDs(transcriptID int64, count int) []string {
	ids := make([]string, count)
	for i := range count {
		ids[i] = EntryID(transcriptID, i)
	}
	return ids
}

// CandidateEntryIDs returns the bounded candidate range used when the chunk
// count for a transcript is unknown.
func CandidateEntryIDs(transcriptID int64) []string {
	return EntryIDs(transcriptID, MaxCandidateEntries)
}

// Document is one chunk of a transcript prepared for indexing, carrying the
// denormalized transcript metadata snapshot.
type Document struct {
	transcriptID int64
	chunkIndex   int
	text         string
	name         string
	date         string
}

// NewDocument creates a Document.
func NewDocument(transcriptID int64, chunkIndex int, text, name, date string) Document {
	return Document{
		transcriptID: transcriptID,
		chunkIndex:   chunkIndex,
		text:         text,
		name:         name,
		date:         date,
	}
}

// EntryID returns the composite id for this document.
func (d Document) EntryID() string { return EntryID(d.transcriptID, d.chunkIndex) }

// TranscriptID returns the owning transcript id.
func (d Document) TranscriptID() int64 { return d.transcriptID }

// ChunkIndex returns the 0-based chunk position.
func (d Document) ChunkIndex() int { return d.chunkIndex }

// Text returns the chunk text.
func (d Document) Text() string { return d.text }

// Name returns the transcript name at indexing time.
func (d Document) Name() string { return d.name }

// Date returns the transcript date at indexing time.
func (d Document) Date() string { return d.date }

// UpsertRequest carries documents to embed and upsert.
type UpsertRequest struct {
	documents []Document
}

// NewUpsertRequest creates an UpsertRequest.
func NewUpsertRequest(documents []Document) UpsertRequest {
	docs := make([]Document, len(documents))
	copy(docs, documents)
	return UpsertRequest{documents: docs}
}

// Documents returns the documents to index.
func (r UpsertRequest) Documents() []Document {
	docs := make([]Document, len(r.documents))
	copy(docs, r.documents)
	return docs
}

// QueryRequest is a vector similarity query.
type QueryRequest struct {
	query string
	topK  int
}

// NewQueryRequest creates a QueryRequest.
func NewQueryRequest(query string, topK int) QueryRequest {
	return QueryRequest{query: query, topK: topK}
}

// Query returns the query text.
func (r QueryRequest) Query() string { return r.query }

// TopK returns the number of results requested.
func (r QueryRequest) TopK() int { return r.topK }

// DeleteRequest carries entry ids to remove.
type DeleteRequest struct {
	ids []string
}

// NewDeleteRequest creates a DeleteRequest.
func NewDeleteRequest(ids []string) DeleteRequest {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return DeleteRequest{ids: cp}
}

// IDs returns the entry ids to delete.
func (r DeleteRequest) IDs() []string {
	cp := make([]string, len(r.ids))
	copy(cp, r.ids)
	return cp
}

// Match is one ranked result from a vector query, carrying the chunk text
// and the metadata snapshot taken at indexing time.
type Match struct {
	entryID      string
	score        float64
	transcriptID int64
	chunkIndex   int
	text         string
	name         string
	date         string
}

// NewMatch creates a Match.
func NewMatch(entryID string, score float64, transcriptID int64, chunkIndex int, text, name, date string) Match {
	return Match{
		entryID:      entryID,
		score:        score,
		transcriptID: transcriptID,
		chunkIndex:   chunkIndex,
		text:         text,
		name:         name,
		date:         date,
	}
}

// EntryID returns the matched entry id.
func (m Match) EntryID() string { return m.entryID }

// Score returns the similarity score (higher is closer).
func (m Match) Score() float64 { return m.score }

// TranscriptID returns the owning transcript id.
func (m Match) TranscriptID() int64 { return m.transcriptID }

// ChunkIndex returns the chunk position within the transcript.
func (m Match) ChunkIndex() int { return m.chunkIndex }

// Text returns the matched chunk text.
func (m Match) Text() string { return m.text }

// Name returns the indexing-time transcript name.
func (m Match) Name() string { return m.name }

// Date returns the indexing-time transcript date.
func (m Match) Date() string { return m.date }

// VectorStore defines operations on the vector index. Implementations embed
// document and query text with the same embedder so the embedding spaces
// match between indexing time and query time.
type VectorStore interface {
	// Upsert embeds and writes the documents, overwriting any entries with
	// the same composite id.
	Upsert(ctx context.Context, request UpsertRequest) error

	// Query embeds the query text and returns the top-k nearest entries by
	// cosine similarity, highest first.
	Query(ctx context.Context, request QueryRequest) ([]Match, error)

	// Delete removes entries by id. Missing ids are not an error.
	Delete(ctx context.Context, request DeleteRequest) error
}
