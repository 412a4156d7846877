package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/murmurlabs/murmur/domain/repository"
	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/database"
)

// fakeTranscriptStore is an in-memory transcript.Store that understands the
// query options the services actually use.
type fakeTranscriptStore struct {
	mu        sync.Mutex
	byID      map[int64]transcript.Transcript
	nextID    int64
	saveErr   error
	findErr   error
	deleteErr error
}

func newFakeTranscriptStore() *fakeTranscriptStore {
	return &fakeTranscriptStore{byID: make(map[int64]transcript.Transcript)}
}

func (s *fakeTranscriptStore) Save(_ context.Context, t transcript.Transcript) (transcript.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return transcript.Transcript{}, s.saveErr
	}
	if t.ID() == 0 {
		s.nextID++
		t = transcript.Reconstruct(s.nextID, t.Name(), t.Date(), t.Filename(), t.Text(),
			t.ChunkCount(), t.CreatedAt(), t.UpdatedAt())
	}
	s.byID[t.ID()] = t
	return t, nil
}

func (s *fakeTranscriptStore) Find(_ context.Context, options ...repository.Option) ([]transcript.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	q := repository.Build(options...)
	var out []transcript.Transcript
	for _, t := range s.byID {
		if matches(t, q) {
			out = append(out, t)
		}
	}
	for _, o := range q.Orders() {
		if o.Field() == "date" {
			asc := o.Ascending()
			sort.Slice(out, func(i, j int) bool {
				if asc {
					return out[i].Date() < out[j].Date()
				}
				return out[i].Date() > out[j].Date()
			})
		}
	}
	return out, nil
}

func (s *fakeTranscriptStore) FindOne(ctx context.Context, options ...repository.Option) (transcript.Transcript, error) {
	found, err := s.Find(ctx, options...)
	if err != nil {
		return transcript.Transcript{}, err
	}
	if len(found) == 0 {
		return transcript.Transcript{}, fmt.Errorf("transcript: %w", database.ErrNotFound)
	}
	return found[0], nil
}

func (s *fakeTranscriptStore) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	found, err := s.Find(ctx, options...)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (s *fakeTranscriptStore) Delete(_ context.Context, t transcript.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.byID, t.ID())
	return nil
}

func (s *fakeTranscriptStore) get(id int64) (transcript.Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	return t, ok
}

func matches(t transcript.Transcript, q repository.Query) bool {
	for _, c := range q.Conditions() {
		if c.In() {
			if c.Field() != "id" {
				return false
			}
			ids, _ := c.Value().([]int64)
			found := false
			for _, id := range ids {
				if id == t.ID() {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		switch c.Field() {
		case "id":
			if id, _ := c.Value().(int64); id != t.ID() {
				return false
			}
		case "filename":
			if v, _ := c.Value().(string); v != t.Filename() {
				return false
			}
		case "date":
			if v, _ := c.Value().(string); v != t.Date() {
				return false
			}
		case "name":
			if v, _ := c.Value().(string); v != t.Name() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// fakeVectorStore is an in-memory search.VectorStore recording every call.
type fakeVectorStore struct {
	mu        sync.Mutex
	entries   map[string]search.Document
	matches   []search.Match
	upserts   [][]search.Document
	deleted   []string
	lastTopK  int
	lastQuery string
	queries   int
	upsertErr error
	queryErr  error
	deleteErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{entries: make(map[string]search.Document)}
}

func (s *fakeVectorStore) Upsert(_ context.Context, req search.UpsertRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	docs := req.Documents()
	s.upserts = append(s.upserts, docs)
	for _, d := range docs {
		s.entries[d.EntryID()] = d
	}
	return nil
}

func (s *fakeVectorStore) Query(_ context.Context, req search.QueryRequest) ([]search.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.queries++
	s.lastQuery = req.Query()
	s.lastTopK = req.TopK()
	if req.TopK() < len(s.matches) {
		return s.matches[:req.TopK()], nil
	}
	return s.matches, nil
}

func (s *fakeVectorStore) Delete(_ context.Context, req search.DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, id := range req.IDs() {
		delete(s.entries, id)
	}
	s.deleted = append(s.deleted, req.IDs()...)
	return nil
}

func (s *fakeVectorStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *fakeVectorStore) hasEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// fakeGenerator is a provider.TextGenerator returning canned content.
type fakeGenerator struct {
	content string
	err     error
	lastReq provider.ChatCompletionRequest
	calls   int
}

func (g *fakeGenerator) ChatCompletion(_ context.Context, req provider.ChatCompletionRequest) (provider.ChatCompletionResponse, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return provider.ChatCompletionResponse{}, g.err
	}
	return provider.NewChatCompletionResponse(g.content, "stop", provider.Usage{}), nil
}

// fakeTranscriber is a provider.Transcriber returning canned text.
type fakeTranscriber struct {
	text    string
	err     error
	calls   int
	lastReq provider.TranscriptionRequest
}

func (t *fakeTranscriber) Transcribe(_ context.Context, req provider.TranscriptionRequest) (provider.TranscriptionResponse, error) {
	t.calls++
	t.lastReq = req
	if t.err != nil {
		return provider.TranscriptionResponse{}, t.err
	}
	return provider.NewTranscriptionResponse(t.text), nil
}
