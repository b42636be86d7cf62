package models

import (
	"time"

	"github.com/google/uuid"
)

// CardStatus is the processing state of an uploaded business card.
type CardStatus string

const (
	// CardStatusProcessing is the initial state, set at upload time and
	// re-affirmed after OCR completes.
	CardStatusProcessing CardStatus = "processing"

	// CardStatusPendingVerification means confidence was too low to
	// auto-create a contact; a human verification call resolves it.
	CardStatusPendingVerification CardStatus = "pending_verification"

	// CardStatusCompleted is the terminal success state; the card has a
	// contact link.
	CardStatusCompleted CardStatus = "completed"

	// CardStatusFailed is the terminal failure state; the error message
	// records the cause.
	CardStatusFailed CardStatus = "failed"
)

// IsTerminal reports whether no further automatic processing will happen.
// A pending_verification card still needs a human verify call, but the
// pipeline itself is done with it.
func (s CardStatus) IsTerminal() bool {
	return s == CardStatusCompleted || s == CardStatusFailed || s == CardStatusPendingVerification
}

// Card is one uploaded business-card image and its processing record.
// Mutated only by the ingestion pipeline and the verification endpoint.
type Card struct {
	ID               uuid.UUID         `json:"id"`
	UserID           string            `json:"user_id"`
	OriginalFilename string            `json:"original_filename"`
	StoragePath      string            `json:"storage_path"`
	ExtractedText    string            `json:"extracted_text,omitempty"`
	ExtractedData    *ExtractedContact `json:"extracted_data,omitempty"`
	Status           CardStatus        `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	OCRConfidence    *float64          `json:"ocr_confidence,omitempty"`
	AIConfidence     *float64          `json:"ai_confidence,omitempty"`
	ContactID        *uuid.UUID        `json:"contact_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ExtractedContact is the structured payload produced by the LLM from raw
// card text, stored on the card for review and used to create the contact.
type ExtractedContact struct {
	Name       string  `json:"name,omitempty"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Company    string  `json:"company,omitempty"`
	Title      string  `json:"title,omitempty"`
	Industry   string  `json:"industry,omitempty"`
	Address    string  `json:"address,omitempty"`
	Website    string  `json:"website,omitempty"`
	Confidence float64 `json:"confidence"`
}
