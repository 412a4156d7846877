package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/murmurlabs/murmur/domain/repository"
	"github.com/murmurlabs/murmur/domain/transcript"
)

// Transcripts provides read and write access to stored transcripts and keeps
// the vector index in step with record mutations.
type Transcripts struct {
	store   transcript.Store
	indexer *Indexer
	closed  *atomic.Bool
	logger  *slog.Logger
}

// NewTranscripts creates a new Transcripts service.
func NewTranscripts(
	store transcript.Store,
	indexer *Indexer,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Transcripts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcripts{
		store:   store,
		indexer: indexer,
		closed:  closed,
		logger:  logger,
	}
}

// Get retrieves a transcript by id. The error wraps database.ErrNotFound when
// no such transcript exists.
func (s *Transcripts) Get(ctx context.Context, id int64) (transcript.Transcript, error) {
	if s.closed != nil && s.closed.Load() {
		return transcript.Transcript{}, ErrClientClosed
	}
	return s.store.FindOne(ctx, repository.WithID(id))
}

// List returns all transcripts, newest date first.
func (s *Transcripts) List(ctx context.Context) ([]transcript.Transcript, error) {
	if s.closed != nil && s.closed.Load() {
		return nil, ErrClientClosed
	}
	return s.store.Find(ctx, repository.WithOrderDesc("date"))
}

// UpdateText replaces the transcript's text, commits the record, then
// reindexes. The record write is authoritative: an indexing failure is
// reported through the status, not as an error.
func (s *Transcripts) UpdateText(ctx context.Context, id int64, text string) (transcript.Transcript, IndexStatus, error) {
	if s.closed != nil && s.closed.Load() {
		return transcript.Transcript{}, IndexStatus{}, ErrClientClosed
	}
	if text == "" {
		return transcript.Transcript{}, IndexStatus{}, fmt.Errorf("%w: text is required", ErrValidation)
	}

	t, err := s.store.FindOne(ctx, repository.WithID(id))
	if err != nil {
		return transcript.Transcript{}, IndexStatus{}, err
	}

	updated, err := s.store.Save(ctx, t.WithText(text))
	if err != nil {
		return transcript.Transcript{}, IndexStatus{}, fmt.Errorf("save transcript: %w", err)
	}

	indexed, status := s.indexer.Reindex(ctx, updated)
	s.logger.Info("transcript updated",
		"transcript_id", id, "chunks", status.ChunksProcessed(), "indexed", status.Succeeded())
	return indexed, status, nil
}

// Delete removes the transcript record and then its vector entries. The
// record deletion is authoritative: vector cleanup failures are reported
// through the status, not as an error.
func (s *Transcripts) Delete(ctx context.Context, id int64) (DeletionStatus, error) {
	if s.closed != nil && s.closed.Load() {
		return DeletionStatus{}, ErrClientClosed
	}

	t, err := s.store.FindOne(ctx, repository.WithID(id))
	if err != nil {
		return DeletionStatus{}, err
	}

	if err := s.store.Delete(ctx, t); err != nil {
		return DeletionStatus{}, fmt.Errorf("delete transcript: %w", err)
	}

	status := s.indexer.Remove(ctx, t)
	s.logger.Info("transcript deleted",
		"transcript_id", id, "vectors_deleted", status.Succeeded(), "exact", status.Exact())
	return status, nil
}
