package murmur_test

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/infrastructure/provider"
)

// hashEmbedder is a deterministic embedder: words are hashed into a fixed
// number of buckets so texts sharing words land near each other in cosine
// space. Good enough to exercise retrieval without a model.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	texts := req.Texts()
	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 32)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%32]++
		}
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		embeddings[i] = vec
	}
	return provider.NewEmbeddingResponse(embeddings, provider.Usage{}), nil
}

type staticGenerator struct {
	content string
}

func (g staticGenerator) ChatCompletion(context.Context, provider.ChatCompletionRequest) (provider.ChatCompletionResponse, error) {
	return provider.NewChatCompletionResponse(g.content, "stop", provider.Usage{}), nil
}

type staticTranscriber struct {
	text string
}

func (t staticTranscriber) Transcribe(context.Context, provider.TranscriptionRequest) (provider.TranscriptionResponse, error) {
	return provider.NewTranscriptionResponse(t.text), nil
}

func newTestClient(t *testing.T) *murmur.Client {
	t.Helper()
	tmpDir := t.TempDir()
	client, err := murmur.New(
		murmur.WithSQLite(filepath.Join(tmpDir, "test.db")),
		murmur.WithDataDir(tmpDir),
		murmur.WithEmbeddingProvider(hashEmbedder{}),
		murmur.WithTextProvider(staticGenerator{content: "  The budget was approved.  "}),
		murmur.WithTranscriber(staticTranscriber{text: "We discussed the budget. The budget was approved. Next steps were assigned."}),
	)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := murmur.New()
	if !errors.Is(err, murmur.ErrNoDatabase) {
		t.Fatalf("New() error = %v, want ErrNoDatabase", err)
	}
}

func TestClient_IngestSearchAsk(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	result, err := client.Ingest.FromAudio(ctx, "Weekly standup", "2026-08-31", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Existed() {
		t.Error("first ingest reported an existing transcript")
	}
	if !result.Status().Succeeded() {
		t.Fatalf("indexing failed: %v", result.Status().Err())
	}
	if result.Transcript().Text() == "" {
		t.Error("transcript text is empty")
	}

	// Same date again is idempotent.
	again, err := client.Ingest.FromAudio(ctx, "Weekly standup", "2026-08-31", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !again.Existed() {
		t.Error("second ingest did not report the existing transcript")
	}

	matches, err := client.Search.Query(ctx, "budget approved")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("search returned no matches")
	}
	joined, ok := matches[0].Transcript()
	if !ok {
		t.Fatal("top match did not resolve to a transcript record")
	}
	if joined.ID() != result.Transcript().ID() {
		t.Errorf("top match transcript id = %d, want %d", joined.ID(), result.Transcript().ID())
	}

	answer, err := client.Answer.Ask(ctx, "What happened with the budget?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.Answer() != "The budget was approved." {
		t.Errorf("answer = %q, want trimmed generator output", answer.Answer())
	}
	if len(answer.Sources()) == 0 {
		t.Error("answer has no sources")
	}
}

func TestClient_UpdateAndDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	result, err := client.Ingest.FromAudio(ctx, "Planning", "2026-09-01", "planning.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	id := result.Transcript().ID()

	updated, status, err := client.Transcripts.UpdateText(ctx, id, "The roadmap was revised. Delivery slips to October.")
	if err != nil {
		t.Fatalf("update text: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("reindex failed: %v", status.Err())
	}
	if updated.Text() != "The roadmap was revised. Delivery slips to October." {
		t.Errorf("updated text = %q", updated.Text())
	}

	matches, err := client.Search.Query(ctx, "roadmap revised")
	if err != nil {
		t.Fatalf("search after update: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("search found nothing after update")
	}

	deletion, err := client.Transcripts.Delete(ctx, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deletion.Succeeded() {
		t.Fatalf("vector deletion failed: %v", deletion.Err())
	}
	if !deletion.Exact() {
		t.Error("deletion did not use the recorded chunk count")
	}

	if _, err := client.Transcripts.Get(ctx, id); err == nil {
		t.Error("transcript still present after delete")
	}
}

func TestClient_Close(t *testing.T) {
	tmpDir := t.TempDir()
	client, err := murmur.New(
		murmur.WithSQLite(filepath.Join(tmpDir, "test.db")),
		murmur.WithDataDir(tmpDir),
		murmur.WithEmbeddingProvider(hashEmbedder{}),
	)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Close(); !errors.Is(err, murmur.ErrClientClosed) {
		t.Errorf("second close error = %v, want ErrClientClosed", err)
	}

	if _, err := client.Search.Query(context.Background(), "anything"); !errors.Is(err, murmur.ErrClientClosed) {
		t.Errorf("search after close error = %v, want ErrClientClosed", err)
	}
}
