package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/murmurlabs/murmur/domain/repository"
	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/internal/config"
)

// SearchOption configures a search request.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int
}

// WithTopK sets the maximum number of results.
func WithTopK(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.topK = n
		}
	}
}

// Result pairs a vector match with the full transcript it came from. The
// transcript is resolved through a relational join and may be absent when a
// vector entry outlives its record.
type Result struct {
	match      search.Match
	transcript transcript.Transcript
	resolved   bool
}

// NewResult creates a Result. resolved reports whether the transcript join
// found the record the match points at.
func NewResult(match search.Match, t transcript.Transcript, resolved bool) Result {
	return Result{match: match, transcript: t, resolved: resolved}
}

// Match returns the vector match with its denormalized chunk metadata.
func (r Result) Match() search.Match { return r.match }

// Transcript returns the full transcript record when the join resolved it.
func (r Result) Transcript() (transcript.Transcript, bool) {
	return r.transcript, r.resolved
}

// Search performs semantic retrieval over transcript chunks: the query is
// embedded, the top-k nearest chunks are fetched from the vector index, and
// each match is joined with its transcript record.
type Search struct {
	vectors     search.VectorStore
	transcripts transcript.Store
	defaultTopK int
	closed      *atomic.Bool
	logger      *slog.Logger
}

// NewSearch creates a new Search service.
func NewSearch(
	vectors search.VectorStore,
	transcripts transcript.Store,
	defaultTopK int,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Search {
	if defaultTopK <= 0 {
		defaultTopK = config.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{
		vectors:     vectors,
		transcripts: transcripts,
		defaultTopK: defaultTopK,
		closed:      closed,
		logger:      logger,
	}
}

// Query returns the top-k chunks most similar to the query, highest score
// first, each joined with its transcript record.
func (s *Search) Query(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	if s.closed != nil && s.closed.Load() {
		return nil, ErrClientClosed
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}

	cfg := &searchConfig{topK: s.defaultTopK}
	for _, opt := range opts {
		opt(cfg)
	}

	matches, err := s.vectors.Query(ctx, search.NewQueryRequest(query, cfg.topK))
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		return []Result{}, nil
	}

	byID, err := s.resolveTranscripts(ctx, matches)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		t, ok := byID[m.TranscriptID()]
		results[i] = Result{match: m, transcript: t, resolved: ok}
	}
	s.logger.Debug("search completed", "query_len", len(query), "matches", len(results))
	return results, nil
}

func (s *Search) resolveTranscripts(ctx context.Context, matches []search.Match) (map[int64]transcript.Transcript, error) {
	seen := make(map[int64]struct{}, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.TranscriptID()]; ok {
			continue
		}
		seen[m.TranscriptID()] = struct{}{}
		ids = append(ids, m.TranscriptID())
	}

	records, err := s.transcripts.Find(ctx, repository.WithIDIn(ids))
	if err != nil {
		return nil, fmt.Errorf("resolve transcripts: %w", err)
	}

	byID := make(map[int64]transcript.Transcript, len(records))
	for _, t := range records {
		byID[t.ID()] = t
	}
	return byID, nil
}
