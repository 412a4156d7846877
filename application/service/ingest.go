package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/database"
)

// TranscriberSource yields the transcription provider on first use. Loading
// a transcription backend can be expensive, so acquisition is deferred until
// an audio upload actually arrives.
type TranscriberSource func(ctx context.Context) (provider.Transcriber, error)

// IngestResult is the outcome of an audio ingestion.
type IngestResult struct {
	transcript transcript.Transcript
	existed    bool
	status     IndexStatus
}

// Transcript returns the persisted transcript record.
func (r IngestResult) Transcript() transcript.Transcript { return r.transcript }

// Existed reports whether a transcript for the same date already existed.
// When true, no transcription or indexing was performed.
func (r IngestResult) Existed() bool { return r.existed }

// Status returns the indexing status for the new transcript.
func (r IngestResult) Status() IndexStatus { return r.status }

// Ingest turns uploaded audio into an indexed transcript: transcribe,
// persist, chunk, embed. Ingestion is idempotent per date; the date doubles
// as the record's filename key.
type Ingest struct {
	transcripts transcript.Store
	indexer     *Indexer
	source      TranscriberSource
	logger      *slog.Logger
	closed      *atomic.Bool

	transcriberOnce sync.Once
	transcriber     provider.Transcriber
	transcriberErr  error
}

// NewIngest creates a new Ingest service.
func NewIngest(
	transcripts transcript.Store,
	indexer *Indexer,
	source TranscriberSource,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Ingest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingest{
		transcripts: transcripts,
		indexer:     indexer,
		source:      source,
		closed:      closed,
		logger:      logger,
	}
}

// FromAudio transcribes the audio and stores the result as a new transcript.
// If a transcript with the same date already exists it is returned unchanged
// with Existed set; the upload is discarded.
func (s *Ingest) FromAudio(ctx context.Context, name, date, filename string, audio []byte) (IngestResult, error) {
	if s.closed != nil && s.closed.Load() {
		return IngestResult{}, ErrClientClosed
	}
	if name == "" {
		return IngestResult{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if date == "" {
		return IngestResult{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if len(audio) == 0 {
		return IngestResult{}, fmt.Errorf("%w: audio file is empty", ErrValidation)
	}

	existing, err := s.transcripts.FindOne(ctx, transcript.WithFilename(date))
	switch {
	case err == nil:
		s.logger.Info("transcript already exists for date", "date", date, "transcript_id", existing.ID())
		return IngestResult{transcript: existing, existed: true}, nil
	case !errors.Is(err, database.ErrNotFound):
		return IngestResult{}, fmt.Errorf("check for existing transcript: %w", err)
	}

	transcriber, err := s.acquireTranscriber(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("acquire transcriber: %w", err)
	}

	resp, err := transcriber.Transcribe(ctx, provider.NewTranscriptionRequest(filename, audio))
	if err != nil {
		return IngestResult{}, fmt.Errorf("transcribe audio: %w", err)
	}

	saved, err := s.transcripts.Save(ctx, transcript.New(name, date, resp.Text()))
	if err != nil {
		return IngestResult{}, fmt.Errorf("save transcript: %w", err)
	}
	s.logger.Info("transcript created", "transcript_id", saved.ID(), "date", date)

	indexed, status := s.indexer.Index(ctx, saved)
	return IngestResult{transcript: indexed, status: status}, nil
}

func (s *Ingest) acquireTranscriber(ctx context.Context) (provider.Transcriber, error) {
	s.transcriberOnce.Do(func() {
		if s.source == nil {
			s.transcriberErr = fmt.Errorf("no transcription provider configured")
			return
		}
		s.transcriber, s.transcriberErr = s.source(ctx)
	})
	return s.transcriber, s.transcriberErr
}
