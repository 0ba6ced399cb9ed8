package allocation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleSearch resolves a raw wallet string to its allocation record.
// Responds 400 when the wallet parameter is missing, 404 with an explicit
// not-found marker when no record matches (distinct from "no search
// performed", which simply never reaches this endpoint).
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "wallet query parameter is required")
		return
	}

	result, err := h.service.Search(wallet)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"not_found": true,
				"error":     ErrNotFound.Error(),
			})
			return
		}
		h.log.Error().Err(err).Msg("Search failed")
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        result.Record.Name,
		"wallet":      result.Record.WalletAddress,
		"drop_amount": result.Record.DropAmount,
		"shard_count": result.Record.ShardCount,
		"position":    result.Position,
		"rank":        result.Rank,
		"drop_text":   result.DropText,
		"shards_text": result.ShardText,
	})
}

// HandleTableInfo returns the stored table version metadata.
func (h *Handler) HandleTableInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.CurrentImport()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if info == nil {
		h.writeError(w, http.StatusNotFound, "no allocation table imported")
		return
	}

	h.writeJSON(w, http.StatusOK, info)
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
