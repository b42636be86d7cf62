package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services"
)

// ContactListResponse for GET /api/contacts
type ContactListResponse struct {
	Contacts   []models.Contact `json:"contacts"`
	TotalCount int              `json:"total_count"`
	HasMore    bool             `json:"has_more"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// ContactRequest for POST /api/contacts and PUT /api/contacts/{id}. All
// fields are optional on update; absent fields keep their current value.
type ContactRequest struct {
	Name     *string   `json:"name,omitempty"`
	Email    *string   `json:"email,omitempty"`
	Phone    *string   `json:"phone,omitempty"`
	Company  *string   `json:"company,omitempty"`
	Title    *string   `json:"title,omitempty"`
	Industry *string   `json:"industry,omitempty"`
	Address  *string   `json:"address,omitempty"`
	Website  *string   `json:"website,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	EventID  *string   `json:"event_id,omitempty"`
}

// SearchResponse for GET /api/contacts/search
type SearchResponse struct {
	Contacts []models.Contact `json:"contacts"`
	Total    int              `json:"total"`
	Query    string           `json:"query"`
}

// ContactsHandler handles contact HTTP requests.
type ContactsHandler struct {
	contacts    repositories.ContactRepository
	interpreter services.QueryInterpreter
	logger      *zap.Logger
}

// NewContactsHandler creates a new contacts handler.
func NewContactsHandler(
	contacts repositories.ContactRepository,
	interpreter services.QueryInterpreter,
	logger *zap.Logger,
) *ContactsHandler {
	return &ContactsHandler{
		contacts:    contacts,
		interpreter: interpreter,
		logger:      logger,
	}
}

// RegisterRoutes registers the contact handler's routes on the given mux.
func (h *ContactsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("GET /api/contacts", authMiddleware.RequireAuth(scoped(h.List)))
	mux.HandleFunc("POST /api/contacts", authMiddleware.RequireAuth(scoped(h.Create)))
	mux.HandleFunc("GET /api/contacts/search", authMiddleware.RequireAuth(scoped(h.Search)))
	mux.HandleFunc("GET /api/contacts/{id}", authMiddleware.RequireAuth(scoped(h.Get)))
	mux.HandleFunc("PUT /api/contacts/{id}", authMiddleware.RequireAuth(scoped(h.Update)))
	mux.HandleFunc("DELETE /api/contacts/{id}", authMiddleware.RequireAuth(scoped(h.Delete)))
}

// List handles GET /api/contacts
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)

	contacts, total, err := h.contacts.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list contacts", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list contacts"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ContactListResponse{
		Contacts:   contacts,
		TotalCount: total,
		HasMore:    offset+len(contacts) < total,
		Limit:      limit,
		Offset:     offset,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/contacts/{id}
func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	contact, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "get contact")
		return
	}

	if err := WriteJSON(w, http.StatusOK, contact); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/contacts
func (h *ContactsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	contact := &models.Contact{Tags: []string{}}
	if msg, ok := applyContactRequest(contact, &req); !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", msg); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(contact.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", apperrors.ErrEmptyName.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.contacts.Create(r.Context(), contact); err != nil {
		h.logger.Error("Failed to create contact", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create contact"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, contact); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/contacts/{id}. Only fields present in the request
// change; the rest keep their stored values.
func (h *ContactsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	contact, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "get contact")
		return
	}

	if msg, ok := applyContactRequest(contact, &req); !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", msg); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(contact.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", apperrors.ErrEmptyName.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.contacts.Update(r.Context(), contact); err != nil {
		h.respondRepoError(w, err, "update contact")
		return
	}

	if err := WriteJSON(w, http.StatusOK, contact); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/contacts/{id}
func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.contacts.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, err, "delete contact")
		return
	}

	if err := WriteJSON(w, http.StatusOK, DeleteResponse{Deleted: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Search handles GET /api/contacts/search?q=. Interpretation failures degrade
// to an unfiltered listing; the endpoint itself only fails on storage errors.
func (h *ContactsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	criteria := models.SearchCriteria{}
	if strings.TrimSpace(query) != "" {
		criteria = h.interpreter.Interpret(r.Context(), query)
	}

	contacts, err := h.contacts.Search(r.Context(), criteria)
	if err != nil {
		h.logger.Error("Failed to search contacts", zap.String("query", query), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to search contacts"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SearchResponse{
		Contacts: contacts,
		Total:    len(contacts),
		Query:    query,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// respondRepoError maps repository errors to HTTP responses.
func (h *ContactsHandler) respondRepoError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Contact not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Error("Failed to "+op, zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to "+op); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// applyContactRequest overlays the request's present fields onto the
// contact. Returns a validation message and false when a field is invalid.
func applyContactRequest(c *models.Contact, req *ContactRequest) (string, bool) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Company != nil {
		c.Company = *req.Company
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Industry != nil {
		if !models.IsValidIndustry(*req.Industry) {
			return apperrors.ErrInvalidIndustry.Error(), false
		}
		c.Industry = *req.Industry
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if req.Website != nil {
		c.Website = *req.Website
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if req.Tags != nil {
		c.Tags = *req.Tags
	}
	if req.EventID != nil {
		if *req.EventID == "" {
			c.EventID = nil
		} else {
			eventID, err := uuid.Parse(*req.EventID)
			if err != nil {
				return "event_id must be a valid UUID", false
			}
			c.EventID = &eventID
		}
	}
	return "", true
}
