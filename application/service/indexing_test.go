package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/infrastructure/chunking"
)

func seedTranscript(t *testing.T, store *fakeTranscriptStore, name, date, text string) transcript.Transcript {
	t.Helper()
	saved, err := store.Save(context.Background(), transcript.New(name, date, text))
	if err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	return saved
}

func TestIndexer_Index_WritesEntriesAndChunkCount(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	tr := seedTranscript(t, store, "standup", "2024-01-15", "We shipped the release. Metrics look stable. No incidents overnight.")

	indexed, status := indexer.Index(context.Background(), tr)
	if !status.Succeeded() {
		t.Fatalf("Index failed: %v", status.Err())
	}
	if status.ChunksProcessed() != 1 {
		t.Errorf("ChunksProcessed = %d, want 1", status.ChunksProcessed())
	}
	if status.String() != "success" {
		t.Errorf("status = %q, want success", status.String())
	}
	if indexed.ChunkCount() != 1 {
		t.Errorf("ChunkCount = %d, want 1", indexed.ChunkCount())
	}
	if !vectors.hasEntry(search.EntryID(tr.ID(), 0)) {
		t.Error("vector entry for chunk 0 missing")
	}

	stored, ok := store.get(tr.ID())
	if !ok {
		t.Fatal("transcript missing from store")
	}
	if stored.ChunkCount() != 1 {
		t.Errorf("persisted ChunkCount = %d, want 1", stored.ChunkCount())
	}
}

func TestIndexer_Index_BatchesUpserts(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	// One sentence per chunk, no overlap: 250 sentences yield 250 entries.
	params := chunking.Params{ChunkSize: 5, OverlapSentences: 0}
	indexer := NewIndexer(store, vectors, params, nil)

	text := strings.Repeat("alpha beta gamma delta epsilon. ", 250)
	tr := seedTranscript(t, store, "allhands", "2024-02-01", text)

	indexed, status := indexer.Index(context.Background(), tr)
	if !status.Succeeded() {
		t.Fatalf("Index failed: %v", status.Err())
	}
	if status.ChunksProcessed() != 250 {
		t.Fatalf("ChunksProcessed = %d, want 250", status.ChunksProcessed())
	}
	if indexed.ChunkCount() != 250 {
		t.Errorf("ChunkCount = %d, want 250", indexed.ChunkCount())
	}
	if vectors.entryCount() != 250 {
		t.Errorf("entries = %d, want 250", vectors.entryCount())
	}
	if len(vectors.upserts) != 3 {
		t.Errorf("upsert batches = %d, want 3", len(vectors.upserts))
	}
	for i, batch := range vectors.upserts {
		if len(batch) > indexBatchSize {
			t.Errorf("batch %d has %d docs, want <= %d", i, len(batch), indexBatchSize)
		}
	}
}

func TestIndexer_Index_FailureResetsChunkCount(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	vectors.upsertErr = errors.New("index unavailable")
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	tr := seedTranscript(t, store, "retro", "2024-03-01", "First point. Second point.")
	tr, err := store.Save(context.Background(), tr.WithChunkCount(4))
	if err != nil {
		t.Fatal(err)
	}

	indexed, status := indexer.Index(context.Background(), tr)
	if status.Succeeded() {
		t.Fatal("expected failure status")
	}
	if !strings.HasPrefix(status.String(), "embedding_failed: ") {
		t.Errorf("status = %q, want embedding_failed prefix", status.String())
	}
	if indexed.ChunkCount() != 0 {
		t.Errorf("ChunkCount = %d, want 0 after failure", indexed.ChunkCount())
	}
	stored, _ := store.get(tr.ID())
	if stored.ChunkCount() != 0 {
		t.Errorf("persisted ChunkCount = %d, want 0", stored.ChunkCount())
	}
}

func TestIndexer_Remove_ExactRange(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	now := time.Now()
	tr := transcript.Reconstruct(7, "n", "d", "d", "text", 3, now, now)

	status := indexer.Remove(context.Background(), tr)
	if !status.Succeeded() || !status.Exact() {
		t.Fatalf("status = %+v, want exact success", status)
	}
	want := search.EntryIDs(7, 3)
	if len(vectors.deleted) != len(want) {
		t.Fatalf("deleted %d ids, want %d", len(vectors.deleted), len(want))
	}
	for i, id := range want {
		if vectors.deleted[i] != id {
			t.Errorf("deleted[%d] = %q, want %q", i, vectors.deleted[i], id)
		}
	}
}

func TestIndexer_Remove_CandidateFallback(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	tr := seedTranscript(t, store, "n", "2024-04-01", "text")

	status := indexer.Remove(context.Background(), tr)
	if !status.Succeeded() {
		t.Fatalf("Remove failed: %v", status.Err())
	}
	if status.Exact() {
		t.Error("expected candidate-range fallback for zero chunk count")
	}
	if len(vectors.deleted) != search.MaxCandidateEntries {
		t.Errorf("deleted %d ids, want %d", len(vectors.deleted), search.MaxCandidateEntries)
	}
}

func TestIndexer_Reindex_ReplacesEntries(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	tr := seedTranscript(t, store, "sync", "2024-05-01", "Old content here.")
	tr, status := indexer.Index(context.Background(), tr)
	if !status.Succeeded() {
		t.Fatalf("initial index: %v", status.Err())
	}

	tr, err := store.Save(context.Background(), tr.WithText("New content entirely. With two sentences."))
	if err != nil {
		t.Fatal(err)
	}

	reindexed, status := indexer.Reindex(context.Background(), tr)
	if !status.Succeeded() {
		t.Fatalf("Reindex failed: %v", status.Err())
	}
	if reindexed.ChunkCount() != status.ChunksProcessed() {
		t.Errorf("ChunkCount = %d, want %d", reindexed.ChunkCount(), status.ChunksProcessed())
	}
	if vectors.entryCount() != status.ChunksProcessed() {
		t.Errorf("entries = %d, want %d", vectors.entryCount(), status.ChunksProcessed())
	}
	doc, ok := vectors.entries[search.EntryID(tr.ID(), 0)]
	if !ok {
		t.Fatal("chunk 0 entry missing after reindex")
	}
	if !strings.Contains(doc.Text(), "New content") {
		t.Errorf("entry text = %q, want new content", doc.Text())
	}
}

func TestIndexer_Reindex_DeleteFailure(t *testing.T) {
	store := newFakeTranscriptStore()
	vectors := newFakeVectorStore()
	vectors.deleteErr = errors.New("index unavailable")
	indexer := NewIndexer(store, vectors, chunking.DefaultParams(), nil)

	tr := seedTranscript(t, store, "n", "2024-06-01", "Some text.")
	tr, err := store.Save(context.Background(), tr.WithChunkCount(2))
	if err != nil {
		t.Fatal(err)
	}

	indexed, status := indexer.Reindex(context.Background(), tr)
	if status.Succeeded() {
		t.Fatal("expected failure status")
	}
	if status.ChunksProcessed() != 0 {
		t.Errorf("ChunksProcessed = %d, want 0", status.ChunksProcessed())
	}
	if indexed.ChunkCount() != 0 {
		t.Errorf("ChunkCount = %d, want 0", indexed.ChunkCount())
	}
}
