package charts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/odyssey/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// Handler handles chart HTTP requests
type Handler struct {
	allocService *allocation.Service
	builder      *Builder
	log          zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(allocService *allocation.Service, builder *Builder, log zerolog.Logger) *Handler {
	return &Handler{
		allocService: allocService,
		builder:      builder,
		log:          log.With().Str("handler", "charts").Logger(),
	}
}

// HandleDistribution returns the reward-distribution figure. An optional
// wallet query parameter highlights the matching point; a miss still
// returns the unhighlighted chart, flagged not_found, so the page degrades
// gracefully.
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	ix, err := h.allocService.Index()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	var highlight *int
	var result *allocation.SearchResult
	notFound := false

	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		result, err = h.allocService.Search(wallet)
		switch {
		case err == nil:
			pos := result.Position
			highlight = &pos
		case errors.Is(err, allocation.ErrNotFound):
			notFound = true
		default:
			h.log.Error().Err(err).Msg("Chart wallet lookup failed")
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	figure := h.builder.Build(ix.Records(), highlight)

	response := map[string]interface{}{
		"figure":    figure,
		"not_found": notFound,
	}
	if result != nil {
		response["result"] = result
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
