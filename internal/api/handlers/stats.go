package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-tracker/internal/api/middleware"
	"github.com/dvloznov/expense-tracker/internal/stats"
)

// StatsProvider answers aggregate spending queries.
type StatsProvider interface {
	MonthlyByCategory(ctx context.Context, userID string) ([]stats.MonthlyBucket, error)
	CategoryForCurrentMonth(ctx context.Context, userID string) ([]stats.CategoryBucket, error)
}

// StatsHandler handles aggregate spending endpoints.
type StatsHandler struct {
	provider StatsProvider
	log      zerolog.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		provider: provider,
		log:      log,
	}
}

// MonthlyStats handles GET /api/stats/monthly/{user_id}
func (h *StatsHandler) MonthlyStats(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	buckets, err := h.provider.MonthlyByCategory(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute monthly stats")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute monthly stats")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stats": buckets,
		"count": len(buckets),
	})
}

// CategoryStats handles GET /api/stats/categories/{user_id}
func (h *StatsHandler) CategoryStats(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	buckets, err := h.provider.CategoryForCurrentMonth(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute category stats")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute category stats")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stats": buckets,
		"count": len(buckets),
	})
}
