package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/murmurlabs/murmur/infrastructure/provider"
)

// saveAllBatchSize is the number of rows per batched insert.
const saveAllBatchSize = 100

// deleteBatchSize bounds the size of IN lists in delete statements so that
// candidate-range cleanups stay under driver placeholder limits.
const deleteBatchSize = 500

// Float64Slice is a custom type for JSON serialization of []float64 in SQLite.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON from SQLite.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to SQLite.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// capacityEmbedder is implemented by embedders with a per-call batch limit
// (e.g. the local ONNX embedder).
type capacityEmbedder interface {
	Capacity() int
}

// embedTexts runs the embedder over texts, splitting into sub-batches when
// the embedder advertises a capacity limit.
func embedTexts(ctx context.Context, embedder provider.Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := len(texts)
	if c, ok := embedder.(capacityEmbedder); ok && c.Capacity() > 0 && c.Capacity() < batch {
		batch = c.Capacity()
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))
		resp, err := embedder.Embed(ctx, provider.NewEmbeddingRequest(texts[start:end]))
		if err != nil {
			return nil, fmt.Errorf("embed texts [%d:%d]: %w", start, end, err)
		}
		vectors = append(vectors, resp.Embeddings()...)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// batches splits ids into chunks of at most size elements.
func batches(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
