package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"example.com/handcricket/internal/store"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

type ResultsLister interface {
	Recent(ctx context.Context, limit int) ([]store.MatchResult, error)
}

type ResultsHandler struct {
	Results ResultsLister
	Log     *slog.Logger
}

type ResultsResponse struct {
	Results []store.MatchResult `json:"results"`
}

// List serves GET /api/results?limit=N, newest first.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	limit := defaultResultsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxResultsLimit {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	results, err := h.Results.Recent(r.Context(), limit)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("list results failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "internal", "failed to load results")
		return
	}
	if results == nil {
		results = []store.MatchResult{}
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: results})
}
