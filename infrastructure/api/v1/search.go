package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/application/service"
	"github.com/murmurlabs/murmur/infrastructure/api/middleware"
	"github.com/murmurlabs/murmur/infrastructure/api/v1/dto"
)

// SearchRouter handles semantic search API endpoints.
type SearchRouter struct {
	client *murmur.Client
	logger *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(client *murmur.Client) *SearchRouter {
	return &SearchRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Search)

	return router
}

// Search handles POST /api/v1/search.
func (r *SearchRouter) Search(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.SearchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: decode body: %v", service.ErrValidation, err), r.logger)
		return
	}

	var opts []service.SearchOption
	if body.TopK != nil && *body.TopK > 0 {
		opts = append(opts, service.WithTopK(*body.TopK))
	}

	results, err := r.client.Search.Query(ctx, body.Query, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	response := dto.SearchResponse{Results: make([]dto.SearchResult, len(results))}
	for i, result := range results {
		m := result.Match()
		item := dto.SearchResult{
			Score:        m.Score(),
			TranscriptID: m.TranscriptID(),
			ChunkIndex:   m.ChunkIndex(),
			ChunkText:    m.Text(),
			Name:         m.Name(),
			Date:         m.Date(),
		}
		if t, ok := result.Transcript(); ok {
			text := t.Text()
			filename := t.Filename()
			item.FullTranscript = &text
			item.Filename = &filename
		}
		response.Results[i] = item
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}
