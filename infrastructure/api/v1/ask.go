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

// AskRouter handles question answering API endpoints.
type AskRouter struct {
	client *murmur.Client
	logger *slog.Logger
}

// NewAskRouter creates a new AskRouter.
func NewAskRouter(client *murmur.Client) *AskRouter {
	return &AskRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for ask endpoints.
func (r *AskRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Ask)

	return router
}

// Ask handles POST /api/v1/ask.
func (r *AskRouter) Ask(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.AskRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: decode body: %v", service.ErrValidation, err), r.logger)
		return
	}

	result, err := r.client.Answer.Ask(ctx, body.Question)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	sources := result.Sources()
	response := dto.AskResponse{
		Answer:  result.Answer(),
		Sources: make([]dto.AskSource, len(sources)),
	}
	for i, src := range sources {
		response.Sources[i] = dto.AskSource{
			ID:    src.TranscriptID(),
			Name:  src.Name(),
			Date:  src.Date(),
			Score: src.Score(),
		}
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}
