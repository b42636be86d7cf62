package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// CardRepository defines the interface for business-card record access.
// Cards are created at upload time and mutated only by the ingestion
// pipeline and the verification endpoint; they are never deleted.
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	Get(ctx context.Context, id uuid.UUID) (*models.Card, error)
	ListRecent(ctx context.Context, limit, offset int) ([]models.Card, int, error)
	SetExtractedText(ctx context.Context, id uuid.UUID, text string, ocrConfidence float64) error
	SetExtractedData(ctx context.Context, id uuid.UUID, data *models.ExtractedContact, aiConfidence *float64) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, errorMessage string) error
	CompleteWithContact(ctx context.Context, id, contactID uuid.UUID) error
	CountByStatus(ctx context.Context, status models.CardStatus) (int, error)
}

// cardRepository implements CardRepository using PostgreSQL.
type cardRepository struct{}

// NewCardRepository creates a new card repository.
func NewCardRepository() CardRepository {
	return &cardRepository{}
}

const cardColumns = `id, user_id, original_filename, storage_path, extracted_text,
	extracted_data, status, error_message, ocr_confidence, ai_confidence,
	contact_id, created_at, updated_at`

// Create inserts a new card record in processing state.
func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.UserID = scope.UserID
	if card.Status == "" {
		card.Status = models.CardStatusProcessing
	}

	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now

	data, err := marshalExtracted(card.ExtractedData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO business_cards (id, user_id, original_filename, storage_path,
			extracted_text, extracted_data, status, error_message, ocr_confidence,
			ai_confidence, contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = scope.Conn.Exec(ctx, query,
		card.ID,
		card.UserID,
		card.OriginalFilename,
		card.StoragePath,
		card.ExtractedText,
		data,
		card.Status,
		card.ErrorMessage,
		card.OCRConfidence,
		card.AIConfidence,
		card.ContactID,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// Get retrieves a card by ID, scoped to the owning user.
func (r *cardRepository) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE id = $1 AND user_id = $2`

	row := scope.Conn.QueryRow(ctx, query, id, scope.UserID)
	card, err := scanCard(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return card, nil
}

// ListRecent returns the user's cards newest-first with the total count.
func (r *cardRepository) ListRecent(ctx context.Context, limit, offset int) ([]models.Card, int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("no user scope in context")
	}

	var total int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM business_cards WHERE user_id = $1`, scope.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	query := `SELECT ` + cardColumns + `
		FROM business_cards
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := scope.Conn.Query(ctx, query, scope.UserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read cards: %w", err)
	}

	return cards, total, nil
}

// SetExtractedText records the OCR output; status is left untouched.
func (r *cardRepository) SetExtractedText(ctx context.Context, id uuid.UUID, text string, ocrConfidence float64) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE business_cards
		SET extracted_text = $3, ocr_confidence = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		id, scope.UserID, text, ocrConfidence, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record extracted text: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetExtractedData records the structured extraction payload. aiConfidence
// may be nil when extraction ran only to pre-populate review fields.
func (r *cardRepository) SetExtractedData(ctx context.Context, id uuid.UUID, data *models.ExtractedContact, aiConfidence *float64) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	payload, err := marshalExtracted(data)
	if err != nil {
		return err
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE business_cards
		SET extracted_data = $3, ai_confidence = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		id, scope.UserID, payload, aiConfidence, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record extracted data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetStatus transitions the card's processing status, recording or clearing
// the error message.
func (r *cardRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, errorMessage string) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE business_cards
		SET status = $3, error_message = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		id, scope.UserID, status, errorMessage, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set card status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CompleteWithContact links the created contact, forces completed status and
// clears any prior error message.
func (r *cardRepository) CompleteWithContact(ctx context.Context, id, contactID uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE business_cards
		SET contact_id = $3, status = $4, error_message = '', updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		id, scope.UserID, contactID, models.CardStatusCompleted, time.Now())
	if err != nil {
		return fmt.Errorf("failed to complete card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountByStatus returns how many of the user's cards are in the status.
func (r *cardRepository) CountByStatus(ctx context.Context, status models.CardStatus) (int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no user scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM business_cards WHERE user_id = $1 AND status = $2`,
		scope.UserID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

func marshalExtracted(data *models.ExtractedContact) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extracted data: %w", err)
	}
	return payload, nil
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var c models.Card
	var data []byte

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.OriginalFilename,
		&c.StoragePath,
		&c.ExtractedText,
		&data,
		&c.Status,
		&c.ErrorMessage,
		&c.OCRConfidence,
		&c.AIConfidence,
		&c.ContactID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		var extracted models.ExtractedContact
		if err := json.Unmarshal(data, &extracted); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extracted data: %w", err)
		}
		c.ExtractedData = &extracted
	}

	return &c, nil
}

// Ensure cardRepository implements CardRepository at compile time.
var _ CardRepository = (*cardRepository)(nil)
