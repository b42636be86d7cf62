package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
)

// EventListResponse for GET /api/events
type EventListResponse struct {
	Events     []models.Event `json:"events"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// EventRequest for POST /api/events and PUT /api/events/{id}. Absent fields
// keep their current value on update.
type EventRequest struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Date     *string `json:"date,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// EventsHandler handles event HTTP requests.
type EventsHandler struct {
	events repositories.EventRepository
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events repositories.EventRepository, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logger}
}

// RegisterRoutes registers the event handler's routes on the given mux.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("GET /api/events", authMiddleware.RequireAuth(scoped(h.List)))
	mux.HandleFunc("POST /api/events", authMiddleware.RequireAuth(scoped(h.Create)))
	mux.HandleFunc("GET /api/events/{id}", authMiddleware.RequireAuth(scoped(h.Get)))
	mux.HandleFunc("PUT /api/events/{id}", authMiddleware.RequireAuth(scoped(h.Update)))
	mux.HandleFunc("DELETE /api/events/{id}", authMiddleware.RequireAuth(scoped(h.Delete)))
}

// List handles GET /api/events
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)

	events, total, err := h.events.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list events", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list events"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := EventListResponse{
		Events:     events,
		TotalCount: total,
		HasMore:    offset+len(events) < total,
		Limit:      limit,
		Offset:     offset,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/events/{id}
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "get event")
		return
	}

	if err := WriteJSON(w, http.StatusOK, event); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/events
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	event := &models.Event{}
	if msg, ok := applyEventRequest(event, &req); !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", msg); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(event.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", apperrors.ErrEmptyName.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.events.Create(r.Context(), event); err != nil {
		h.logger.Error("Failed to create event", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create event"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, event); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/events/{id}
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "get event")
		return
	}

	if msg, ok := applyEventRequest(event, &req); !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", msg); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(event.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", apperrors.ErrEmptyName.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.events.Update(r.Context(), event); err != nil {
		h.respondRepoError(w, err, "update event")
		return
	}

	if err := WriteJSON(w, http.StatusOK, event); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/events/{id}. Contacts linked to the event
// survive with their event reference cleared.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, err, "delete event")
		return
	}

	if err := WriteJSON(w, http.StatusOK, DeleteResponse{Deleted: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// respondRepoError maps repository errors to HTTP responses.
func (h *EventsHandler) respondRepoError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Event not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Error("Failed to "+op, zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to "+op); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// applyEventRequest overlays the request's present fields onto the event.
func applyEventRequest(e *models.Event, req *EventRequest) (string, bool) {
	if req.Name != nil {
		e.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Date != nil {
		if *req.Date == "" {
			e.Date = nil
		} else {
			parsed, err := time.Parse(time.RFC3339, *req.Date)
			if err != nil {
				// Date-only form is accepted too.
				parsed, err = time.Parse("2006-01-02", *req.Date)
				if err != nil {
					return "date must be RFC 3339 or YYYY-MM-DD", false
				}
			}
			e.Date = &parsed
		}
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
	return "", true
}
