package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/config"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services"
)

// allowedUploadTypes is the sniffed-content allowlist for card uploads.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// UploadResponse for POST /api/business-cards/upload
type UploadResponse struct {
	ID       uuid.UUID         `json:"id"`
	Filename string            `json:"filename"`
	Status   models.CardStatus `json:"status"`
}

// CardStatusResponse for GET /api/business-cards/{id}/status
type CardStatusResponse struct {
	ID            uuid.UUID                `json:"id"`
	Status        models.CardStatus        `json:"status"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
	OCRConfidence *float64                 `json:"ocr_confidence,omitempty"`
	AIConfidence  *float64                 `json:"ai_confidence,omitempty"`
	ExtractedData *models.ExtractedContact `json:"extracted_data,omitempty"`
	ContactID     *uuid.UUID               `json:"contact_id,omitempty"`
}

// VerifyRequest for POST /api/business-cards/{id}/verify carries the
// user-reviewed contact fields for a card parked in pending_verification.
type VerifyRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Title    string `json:"title"`
	Industry string `json:"industry"`
	Address  string `json:"address"`
	Website  string `json:"website"`
}

// VerifyResponse for POST /api/business-cards/{id}/verify
type VerifyResponse struct {
	Card    *models.Card    `json:"card,omitempty"`
	Contact *models.Contact `json:"contact"`
}

// RecentCardsResponse for GET /api/business-cards/recent
type RecentCardsResponse struct {
	Cards      []models.Card `json:"cards"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

// CardsHandler handles business-card upload and processing endpoints.
type CardsHandler struct {
	cards     repositories.CardRepository
	ingestion *services.IngestionService
	uploads   config.UploadConfig
	logger    *zap.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(
	cards repositories.CardRepository,
	ingestion *services.IngestionService,
	uploads config.UploadConfig,
	logger *zap.Logger,
) *CardsHandler {
	return &CardsHandler{
		cards:     cards,
		ingestion: ingestion,
		uploads:   uploads,
		logger:    logger,
	}
}

// RegisterRoutes registers the card handler's routes on the given mux.
func (h *CardsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("POST /api/business-cards/upload", authMiddleware.RequireAuth(scoped(h.Upload)))
	mux.HandleFunc("GET /api/business-cards/recent", authMiddleware.RequireAuth(scoped(h.Recent)))
	mux.HandleFunc("GET /api/business-cards/{id}/status", authMiddleware.RequireAuth(scoped(h.Status)))
	mux.HandleFunc("POST /api/business-cards/{id}/verify", authMiddleware.RequireAuth(scoped(h.Verify)))
}

// Upload handles POST /api/business-cards/upload. The request is multipart
// with the image under "file". On success the card record exists in processing state
// and the pipeline runs in the background; the response returns immediately.
func (h *CardsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxSizeBytes+4096)

	file, header, err := h.openUpload(w, r)
	if err != nil {
		return
	}
	defer file.Close()

	cardID := uuid.New()
	storagePath := filepath.Join(h.uploads.Dir, cardID.String()+filepath.Ext(header.Filename))
	if err := h.saveUpload(file, storagePath); err != nil {
		h.logger.Error("Failed to store upload", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to store upload"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	card := &models.Card{
		ID:               cardID,
		OriginalFilename: header.Filename,
		StoragePath:      storagePath,
		Status:           models.CardStatusProcessing,
	}

	if err := h.cards.Create(r.Context(), card); err != nil {
		h.logger.Error("Failed to create card record", zap.Error(err))
		_ = os.Remove(storagePath)
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create card record"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	userID, _ := auth.RequireUserIDFromContext(r.Context())
	h.ingestion.EnqueueCard(userID, card.ID)

	response := UploadResponse{
		ID:       card.ID,
		Filename: card.OriginalFilename,
		Status:   card.Status,
	}

	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// openUpload extracts and validates the multipart file. On failure the
// error response is already written.
func (h *CardsHandler) openUpload(w http.ResponseWriter, r *http.Request) (io.ReadSeekCloser, *multipartFileHeader, error) {
	if err := r.ParseMultipartForm(h.uploads.MaxSizeBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeUploadError(w, http.StatusBadRequest, "file_too_large", apperrors.ErrFileTooLarge.Error())
		} else {
			h.writeUploadError(w, http.StatusBadRequest, "invalid_request", "Expected multipart form with a file field")
		}
		return nil, nil, fmt.Errorf("parse multipart: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeUploadError(w, http.StatusBadRequest, "invalid_request", "Missing file field")
		return nil, nil, err
	}

	if header.Size > h.uploads.MaxSizeBytes {
		file.Close()
		h.writeUploadError(w, http.StatusBadRequest, "file_too_large", apperrors.ErrFileTooLarge.Error())
		return nil, nil, apperrors.ErrFileTooLarge
	}

	// Sniff the content rather than trusting the client's declared type.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		h.writeUploadError(w, http.StatusBadRequest, "invalid_request", "Unreadable file")
		return nil, nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		h.writeUploadError(w, http.StatusInternalServerError, "internal_error", "Failed to read upload")
		return nil, nil, err
	}

	contentType := http.DetectContentType(head[:n])
	if !allowedUploadTypes[contentType] {
		file.Close()
		h.writeUploadError(w, http.StatusBadRequest, "unsupported_file_type", apperrors.ErrUnsupportedType.Error())
		return nil, nil, apperrors.ErrUnsupportedType
	}

	return file, &multipartFileHeader{Filename: header.Filename, Size: header.Size}, nil
}

// multipartFileHeader is the subset of the multipart header Upload needs.
type multipartFileHeader struct {
	Filename string
	Size     int64
}

func (h *CardsHandler) writeUploadError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// saveUpload writes the uploaded content to the storage directory.
func (h *CardsHandler) saveUpload(file io.Reader, path string) error {
	if err := os.MkdirAll(h.uploads.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write upload file: %w", err)
	}

	return nil
}

// Status handles GET /api/business-cards/{id}/status. Clients poll this
// while the pipeline runs.
func (h *CardsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "get card status")
		return
	}

	response := CardStatusResponse{
		ID:            card.ID,
		Status:        card.Status,
		ErrorMessage:  card.ErrorMessage,
		OCRConfidence: card.OCRConfidence,
		AIConfidence:  card.AIConfidence,
		ExtractedData: card.ExtractedData,
		ContactID:     card.ContactID,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Verify handles POST /api/business-cards/{id}/verify. The reviewed fields
// become the contact and the card completes, whatever state it was in.
func (h *CardsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, h.logger)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !models.IsValidIndustry(req.Industry) {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", apperrors.ErrInvalidIndustry.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	reviewed := &models.ExtractedContact{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Title:    req.Title,
		Industry: req.Industry,
		Address:  req.Address,
		Website:  req.Website,
	}

	contact, err := h.ingestion.VerifyCard(r.Context(), id, reviewed)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.respondRepoError(w, err, "verify card")
			return
		}
		h.logger.Error("Failed to verify card", zap.String("card_id", id.String()), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to verify card"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := VerifyResponse{Contact: contact}
	if card, err := h.cards.Get(r.Context(), id); err == nil {
		response.Card = card
	} else {
		h.logger.Warn("Failed to reload verified card", zap.String("card_id", id.String()), zap.Error(err))
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Recent handles GET /api/business-cards/recent with page/limit pagination.
func (h *CardsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	page, limit := ParsePagination(r)

	cards, total, err := h.cards.ListRecent(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("Failed to list recent cards", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list recent cards"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	totalPages := (total + limit - 1) / limit
	response := RecentCardsResponse{
		Cards:      cards,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// respondRepoError maps repository errors to HTTP responses.
func (h *CardsHandler) respondRepoError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Card not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Error("Failed to "+op, zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to "+op); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
