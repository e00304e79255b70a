package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-tracker/internal/api/middleware"
	"github.com/dvloznov/expense-tracker/internal/ingest"
)

// Ingestor runs the ingestion pipeline for a decoded notification.
type Ingestor interface {
	IngestNotification(ctx context.Context, n *ingest.Notification) error
}

// EventsHandler handles object store event notifications.
type EventsHandler struct {
	ingestor Ingestor
	log      zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(ingestor Ingestor, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		ingestor: ingestor,
		log:      log,
	}
}

// HandleEvent handles POST /event
// The body is an object store notification; every referenced object is
// ingested synchronously before the response is written.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := ingest.DecodeNotification(r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("Invalid event notification")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid event notification")
		return
	}

	if err := h.ingestor.IngestNotification(ctx, n); err != nil {
		h.log.Error().Err(err).Int("records", len(n.Records)).Msg("Event ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Processing complete",
	})
}
