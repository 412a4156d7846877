package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// hugotBatchMax caps how many texts one Embed call may carry. The vector
// stores read this through Capacity and split larger batches themselves.
const hugotBatchMax = 10

// ortRuntime is the process-wide ONNX Runtime state. ORT permits a single
// active session per process and its inference path is not safe for
// concurrent use, so every HugotEmbedding shares this and takes the mutex
// for both setup and inference.
var ortRuntime struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	ready    bool
}

// HugotEmbedding embeds text locally with a sentence-transformers ONNX
// model (all-MiniLM-L6-v2 in the default setup), so transcripts can be
// indexed and searched without any embedding API key.
//
// Model files are resolved in two steps: a subdirectory of modelDir holding
// tokenizer.json wins; otherwise, when the binary was built with the
// embed_model tag, the compiled-in model is unpacked into modelDir first.
type HugotEmbedding struct {
	modelDir string
}

// NewHugotEmbedding creates a HugotEmbedding rooted at modelDir. Nothing is
// loaded until the first Embed call.
func NewHugotEmbedding(modelDir string) *HugotEmbedding {
	return &HugotEmbedding{modelDir: modelDir}
}

// Available reports whether Embed can succeed: either model files sit on
// disk under modelDir, or a model was compiled into the binary.
func (h *HugotEmbedding) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.locateModel()
	return err == nil
}

// Capacity returns the largest batch Embed accepts.
func (h *HugotEmbedding) Capacity() int { return hugotBatchMax }

// Embed runs the feature-extraction pipeline over texts. Loading the model
// on first use can take seconds; later calls only pay for inference.
func (h *HugotEmbedding) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}
	if len(texts) > hugotBatchMax {
		return EmbeddingResponse{}, fmt.Errorf("embed: %d texts exceeds capacity %d", len(texts), hugotBatchMax)
	}
	if err := ctx.Err(); err != nil {
		return EmbeddingResponse{}, err
	}

	ortRuntime.mu.Lock()
	defer ortRuntime.mu.Unlock()

	if err := h.bootPipeline(); err != nil {
		return EmbeddingResponse{}, fmt.Errorf("initialize hugot: %w", err)
	}

	result, err := ortRuntime.pipeline.RunPipeline(texts)
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("run embedding pipeline: %w", err)
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, raw := range result.Embeddings {
		vec := make([]float64, len(raw))
		for j, v := range raw {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	return NewEmbeddingResponse(vectors, NewUsage(0, 0, 0)), nil
}

// Close is a no-op. The runtime session is shared process-wide and lives
// until exit.
func (h *HugotEmbedding) Close() error { return nil }

// bootPipeline builds the shared session and pipeline once. Callers must
// hold ortRuntime.mu.
func (h *HugotEmbedding) bootPipeline() error {
	if ortRuntime.ready {
		return nil
	}

	modelPath, err := h.locateModel()
	if err != nil {
		if !hasEmbeddedModel {
			return fmt.Errorf("no model under %s and none compiled in (build with -tags embed_model): %w", h.modelDir, err)
		}
		if mkErr := os.MkdirAll(h.modelDir, 0o755); mkErr != nil {
			return fmt.Errorf("create model directory: %w", mkErr)
		}
		modelPath, err = unpackEmbeddedModel(embeddedModelFS, h.modelDir)
		if err != nil {
			return err
		}
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "builtin-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	})
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortRuntime.session = session
	ortRuntime.pipeline = pipeline
	ortRuntime.ready = true
	return nil
}

// locateModel scans modelDir for a subdirectory holding tokenizer.json and
// returns it.
func (h *HugotEmbedding) locateModel() (string, error) {
	entries, err := os.ReadDir(h.modelDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.modelDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(h.modelDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(dir, "tokenizer.json")); statErr == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json under %s", h.modelDir)
}

// unpackEmbeddedModel copies the compiled-in model files into targetDir and
// returns the resulting model directory. Unpacking is skipped when the
// target already holds a tokenizer.json.
func unpackEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var name string
	for _, entry := range entries {
		if entry.IsDir() {
			name = entry.Name()
			break
		}
	}
	if name == "" {
		return "", fmt.Errorf("embedded models hold no model directory")
	}

	dest := filepath.Join(targetDir, name)
	if _, statErr := os.Stat(filepath.Join(dest, "tokenizer.json")); statErr == nil {
		return dest, nil
	}

	modelFS, err := fs.Sub(modelsFS, name)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(dest, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return dest, nil
}

var _ Embedder = (*HugotEmbedding)(nil)
