// Package v1 implements the v1 HTTP API handlers.
package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/application/service"
	"github.com/murmurlabs/murmur/domain/transcript"
	"github.com/murmurlabs/murmur/infrastructure/api/middleware"
	"github.com/murmurlabs/murmur/infrastructure/api/v1/dto"
)

// maxUploadBytes bounds in-memory multipart parsing for audio uploads.
const maxUploadBytes = 128 << 20

// TranscriptsRouter handles transcript API endpoints.
type TranscriptsRouter struct {
	client *murmur.Client
	logger *slog.Logger
}

// NewTranscriptsRouter creates a new TranscriptsRouter.
func NewTranscriptsRouter(client *murmur.Client) *TranscriptsRouter {
	return &TranscriptsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for transcript endpoints.
func (r *TranscriptsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Create)
	router.Get("/", r.List)
	router.Get("/{id}", r.Get)
	router.Put("/{id}", r.Update)
	router.Delete("/{id}", r.Delete)

	return router
}

// Create handles POST /api/v1/transcripts. The multipart body carries the
// audio file plus name and date form fields; the audio is transcribed,
// stored, and indexed. Uploading a date that already has a transcript is
// idempotent and returns the existing record.
func (r *TranscriptsRouter) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: parse multipart form: %v", service.ErrValidation, err), r.logger)
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: audio file is required", service.ErrValidation), r.logger)
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, req, fmt.Errorf("read upload: %w", err), r.logger)
		return
	}

	name := req.FormValue("name")
	date := req.FormValue("date")

	result, err := r.client.Ingest.FromAudio(ctx, name, date, header.Filename, audio)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	t := result.Transcript()
	response := dto.IngestResponse{
		ID:   t.ID(),
		Name: t.Name(),
		Date: t.Date(),
		Text: t.Text(),
	}
	if result.Existed() {
		response.Detail = "Transcript for this date already exists."
	} else {
		chunks := result.Status().ChunksProcessed()
		response.EmbeddingStatus = result.Status().String()
		response.ChunksProcessed = &chunks
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

// List handles GET /api/v1/transcripts.
func (r *TranscriptsRouter) List(w http.ResponseWriter, req *http.Request) {
	transcripts, err := r.client.Transcripts.List(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := make([]dto.TranscriptResponse, len(transcripts))
	for i, t := range transcripts {
		response[i] = transcriptResponse(t)
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/transcripts/{id}.
func (r *TranscriptsRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	t, err := r.client.Transcripts.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, transcriptResponse(t))
}

// Update handles PUT /api/v1/transcripts/{id}. The replacement text is
// committed first; re-indexing failures surface in embedding_status rather
// than failing the request.
func (r *TranscriptsRouter) Update(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	var body dto.UpdateTranscriptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: decode body: %v", service.ErrValidation, err), r.logger)
		return
	}

	updated, status, err := r.client.Transcripts.UpdateText(req.Context(), id, body.Text)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := dto.UpdateTranscriptResponse{
		ID:              updated.ID(),
		Name:            updated.Name(),
		Date:            updated.Date(),
		Filename:        updated.Filename(),
		Text:            updated.Text(),
		EmbeddingStatus: status.String(),
		ChunksProcessed: status.ChunksProcessed(),
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/v1/transcripts/{id}. The record removal is
// authoritative; vector cleanup failures surface in vector_deletion_status.
func (r *TranscriptsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	status, err := r.client.Transcripts.Delete(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := dto.DeleteTranscriptResponse{
		Detail:               "Transcript deleted",
		VectorDeletionStatus: status.String(),
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

func transcriptResponse(t transcript.Transcript) dto.TranscriptResponse {
	return dto.TranscriptResponse{
		ID:       t.ID(),
		Name:     t.Name(),
		Date:     t.Date(),
		Filename: t.Filename(),
		Text:     t.Text(),
	}
}

func parseID(req *http.Request) (int64, error) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid transcript id %q", service.ErrValidation, raw)
	}
	return id, nil
}
