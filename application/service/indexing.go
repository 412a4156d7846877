// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/infrastructure/chunking"
)

// indexBatchSize is the number of vector entries written per upsert.
const indexBatchSize = 100

// indexParallelism bounds concurrent upsert batches.
const indexParallelism = 4

// IndexStatus reports the outcome of an indexing run. Index failures do not
// abort the surrounding write: the transcript record is already committed and
// the status carries the embedding failure for the caller to report.
type IndexStatus struct {
	chunksProcessed int
	err             error
}

// ChunksProcessed returns the number of chunks produced from the transcript.
func (s IndexStatus) ChunksProcessed() int { return s.chunksProcessed }

// Err returns the indexing failure, if any.
func (s IndexStatus) Err() error { return s.err }

// Succeeded reports whether all vector entries were written.
func (s IndexStatus) Succeeded() bool { return s.err == nil }

// String renders the status in the wire format clients expect.
func (s IndexStatus) String() string {
	if s.err != nil {
		return fmt.Sprintf("embedding_failed: %v", s.err)
	}
	return "success"
}

// DeletionStatus reports the outcome of removing a transcript's vector entries.
type DeletionStatus struct {
	exact bool
	err   error
}

// Exact reports whether deletion targeted the exact recorded entry range
// rather than the bounded candidate range.
func (s DeletionStatus) Exact() bool { return s.exact }

// Err returns the deletion failure, if any.
func (s DeletionStatus) Err() error { return s.err }

// Succeeded reports whether the delete completed.
func (s DeletionStatus) Succeeded() bool { return s.err == nil }

// String renders the status in the wire format clients expect.
func (s DeletionStatus) String() string {
	if s.err != nil {
		return fmt.Sprintf("vector_deletion_failed: %v", s.err)
	}
	return "success"
}

// Indexer maintains the vector index for transcripts: chunking, batched
// upserts, and exact-count deletion. The persisted chunk count records how
// many entries the last successful run wrote; a count of zero means cleanup
// must fall back to the bounded candidate range.
type Indexer struct {
	transcripts transcript.Store
	vectors     search.VectorStore
	params      chunking.Params
	logger      *slog.Logger
}

// NewIndexer creates a new Indexer service.
func NewIndexer(
	transcripts transcript.Store,
	vectors search.VectorStore,
	params chunking.Params,
	logger *slog.Logger,
) *Indexer {
	if params.ChunkSize <= 0 {
		params = chunking.DefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		transcripts: transcripts,
		vectors:     vectors,
		params:      params,
		logger:      logger,
	}
}

// Index chunks the transcript text and writes one vector entry per chunk.
// On success the transcript's chunk count is persisted; on failure the count
// is reset to zero so a later delete uses the candidate-range fallback. The
// returned transcript reflects the persisted state.
func (s *Indexer) Index(ctx context.Context, t transcript.Transcript) (transcript.Transcript, IndexStatus) {
	chunks := chunking.Chunk(t.Text(), s.params)

	docs := make([]search.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = search.NewDocument(t.ID(), i, chunk, t.Name(), t.Date())
	}

	if err := s.upsertBatches(ctx, docs); err != nil {
		s.logger.Error("vector upsert failed",
			"transcript_id", t.ID(), "chunks", len(chunks), "error", err)
		return s.recordChunkCount(ctx, t, 0), IndexStatus{chunksProcessed: len(chunks), err: err}
	}

	t = s.recordChunkCount(ctx, t, len(chunks))
	s.logger.Debug("transcript indexed", "transcript_id", t.ID(), "chunks", len(chunks))
	return t, IndexStatus{chunksProcessed: len(chunks)}
}

// Reindex removes the transcript's existing vector entries and indexes the
// current text from scratch.
func (s *Indexer) Reindex(ctx context.Context, t transcript.Transcript) (transcript.Transcript, IndexStatus) {
	if status := s.Remove(ctx, t); status.Err() != nil {
		return s.recordChunkCount(ctx, t, 0), IndexStatus{err: status.Err()}
	}
	return s.Index(ctx, t)
}

// Remove deletes the transcript's vector entries. When the recorded chunk
// count is known the exact entry range is targeted; otherwise the bounded
// candidate range is used.
func (s *Indexer) Remove(ctx context.Context, t transcript.Transcript) DeletionStatus {
	var ids []string
	exact := t.ChunkCount() > 0
	if exact {
		ids = search.EntryIDs(t.ID(), t.ChunkCount())
	} else {
		ids = search.CandidateEntryIDs(t.ID())
	}

	if err := s.vectors.Delete(ctx, search.NewDeleteRequest(ids)); err != nil {
		s.logger.Error("vector deletion failed",
			"transcript_id", t.ID(), "exact", exact, "error", err)
		return DeletionStatus{exact: exact, err: err}
	}
	return DeletionStatus{exact: exact}
}

func (s *Indexer) upsertBatches(ctx context.Context, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(indexParallelism)
	for start := 0; start < len(docs); start += indexBatchSize {
		end := min(start+indexBatchSize, len(docs))
		batch := docs[start:end]
		g.Go(func() error {
			return s.vectors.Upsert(ctx, search.NewUpsertRequest(batch))
		})
	}
	return g.Wait()
}

// recordChunkCount persists the chunk count, keeping the in-memory value even
// if the write fails: the vector index state is what the count describes.
func (s *Indexer) recordChunkCount(ctx context.Context, t transcript.Transcript, n int) transcript.Transcript {
	t = t.WithChunkCount(n)
	saved, err := s.transcripts.Save(ctx, t)
	if err != nil {
		s.logger.Error("persist chunk count failed", "transcript_id", t.ID(), "error", err)
		return t
	}
	return saved
}
