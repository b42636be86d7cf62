package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/config"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/ocr"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services/workqueue"
)

// UserContextFunc builds a user-scoped context for background work that runs
// outside any HTTP request. The returned cleanup releases the scoped
// database connection.
type UserContextFunc func(ctx context.Context, userID string) (context.Context, func(), error)

// IngestionService runs uploaded business cards through the processing
// pipeline: OCR, structured extraction, confidence gating, and contact
// creation. Each card is processed exactly once; failures are recorded on
// the card, never retried.
type IngestionService struct {
	queue     *workqueue.Queue
	cards     repositories.CardRepository
	contacts  repositories.ContactRepository
	ocr       ocr.TextExtractor
	extractor ContactExtractor
	pipeline  config.PipelineConfig
	userCtx   UserContextFunc
	logger    *zap.Logger
}

// NewIngestionService creates the ingestion service.
func NewIngestionService(
	queue *workqueue.Queue,
	cards repositories.CardRepository,
	contacts repositories.ContactRepository,
	textExtractor ocr.TextExtractor,
	contactExtractor ContactExtractor,
	pipeline config.PipelineConfig,
	userCtx UserContextFunc,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		queue:     queue,
		cards:     cards,
		contacts:  contacts,
		ocr:       textExtractor,
		extractor: contactExtractor,
		pipeline:  pipeline,
		userCtx:   userCtx,
		logger:    logger.Named("ingestion"),
	}
}

// cardTask processes one card in the background.
type cardTask struct {
	workqueue.BaseTask

	svc    *IngestionService
	userID string
	cardID uuid.UUID
}

// Execute runs the pipeline under a fresh user scope. The card record is the
// durable outcome; the returned error only feeds queue logging.
func (t *cardTask) Execute(ctx context.Context) error {
	scopedCtx, cleanup, err := t.svc.userCtx(ctx, t.userID)
	if err != nil {
		return fmt.Errorf("failed to acquire user scope: %w", err)
	}
	defer cleanup()

	return t.svc.processCard(scopedCtx, t.cardID)
}

// EnqueueCard schedules background processing for an uploaded card. The
// caller gets control back immediately; progress is observable through the
// card's status.
func (s *IngestionService) EnqueueCard(userID string, cardID uuid.UUID) {
	s.queue.Enqueue(&cardTask{
		BaseTask: workqueue.NewBaseTask(fmt.Sprintf("process-card-%s", cardID)),
		svc:      s,
		userID:   userID,
		cardID:   cardID,
	})
}

// processCard runs the full pipeline for one card. Terminal outcomes:
// completed (contact created, file removed), pending_verification (parked
// for human review, file kept), failed (error recorded, file kept).
func (s *IngestionService) processCard(ctx context.Context, cardID uuid.UUID) error {
	log := s.logger.With(zap.String("card_id", cardID.String()))

	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return fmt.Errorf("failed to load card: %w", err)
	}

	image, err := os.ReadFile(card.StoragePath)
	if err != nil {
		log.Error("failed to read uploaded file", zap.Error(err))
		return s.failCard(ctx, cardID, "failed to read uploaded file: "+err.Error())
	}

	result, err := s.ocr.ExtractText(ctx, image)
	if err != nil {
		log.Error("text extraction failed", zap.Error(err))
		return s.failCard(ctx, cardID, "text extraction failed: "+err.Error())
	}
	if result.Text == "" || result.Confidence == 0 {
		log.Warn("no usable text recognized")
		return s.failCard(ctx, cardID, "unable to extract text from image")
	}

	if err := s.cards.SetExtractedText(ctx, cardID, result.Text, result.Confidence); err != nil {
		log.Error("failed to record extracted text", zap.Error(err))
		_ = s.failCard(ctx, cardID, "failed to record extracted text: "+err.Error())
		return fmt.Errorf("failed to record extracted text: %w", err)
	}

	if result.Confidence < s.pipeline.OCRConfidenceThreshold {
		log.Info("ocr confidence below threshold, parking for verification",
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", s.pipeline.OCRConfidenceThreshold))

		// Best-effort extraction so the review form is pre-populated. The
		// card is parked regardless of how this goes.
		if extracted, exErr := s.extractor.Extract(ctx, result.Text); exErr == nil {
			if dErr := s.cards.SetExtractedData(ctx, cardID, extracted, nil); dErr != nil {
				log.Warn("failed to store pre-populated extraction", zap.Error(dErr))
			}
		} else {
			log.Warn("pre-population extraction failed", zap.Error(exErr))
		}

		msg := fmt.Sprintf("OCR confidence %.0f%% is below the auto-processing threshold", result.Confidence*100)
		return s.cards.SetStatus(ctx, cardID, models.CardStatusPendingVerification, msg)
	}

	extracted, err := s.extractor.Extract(ctx, result.Text)
	if err != nil {
		log.Error("contact extraction failed", zap.Error(err))
		return s.failCard(ctx, cardID, "contact extraction failed: "+err.Error())
	}

	if err := s.cards.SetExtractedData(ctx, cardID, extracted, &extracted.Confidence); err != nil {
		log.Error("failed to record extracted data", zap.Error(err))
		_ = s.failCard(ctx, cardID, "failed to record extracted data: "+err.Error())
		return fmt.Errorf("failed to record extracted data: %w", err)
	}

	if extracted.Confidence < s.pipeline.AIConfidenceThreshold {
		log.Info("extraction confidence below threshold, parking for verification",
			zap.Float64("confidence", extracted.Confidence),
			zap.Float64("threshold", s.pipeline.AIConfidenceThreshold))
		msg := fmt.Sprintf("extraction confidence %.0f%% is below the auto-processing threshold", extracted.Confidence*100)
		return s.cards.SetStatus(ctx, cardID, models.CardStatusPendingVerification, msg)
	}

	contact := contactFromExtraction(extracted)
	if err := s.contacts.Create(ctx, contact); err != nil {
		log.Error("failed to create contact", zap.Error(err))
		return s.failCard(ctx, cardID, "failed to create contact: "+err.Error())
	}

	if err := s.cards.CompleteWithContact(ctx, cardID, contact.ID); err != nil {
		log.Error("failed to complete card", zap.Error(err))
		if dErr := s.contacts.Delete(ctx, contact.ID); dErr != nil {
			log.Warn("failed to remove contact after completion failure", zap.Error(dErr))
		}
		_ = s.failCard(ctx, cardID, "failed to complete card: "+err.Error())
		return fmt.Errorf("failed to complete card: %w", err)
	}

	s.removeStoredFile(card.StoragePath, log)

	log.Info("card processed",
		zap.String("contact_id", contact.ID.String()),
		zap.Float64("ocr_confidence", result.Confidence),
		zap.Float64("ai_confidence", extracted.Confidence))
	return nil
}

// VerifyCard resolves a card with user-reviewed contact data: the contact is
// created from the reviewed fields and the card completes. It accepts a card
// in any state, so a failed card can still be turned into a contact.
func (s *IngestionService) VerifyCard(ctx context.Context, cardID uuid.UUID, reviewed *models.ExtractedContact) (*models.Contact, error) {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}

	reviewed.Industry = normalizedIndustry(reviewed.Industry)

	if err := s.cards.SetExtractedData(ctx, cardID, reviewed, card.AIConfidence); err != nil {
		return nil, fmt.Errorf("failed to record verified data: %w", err)
	}

	contact := contactFromExtraction(reviewed)
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	if err := s.cards.CompleteWithContact(ctx, cardID, contact.ID); err != nil {
		return nil, fmt.Errorf("failed to complete card: %w", err)
	}

	s.removeStoredFile(card.StoragePath, s.logger.With(zap.String("card_id", cardID.String())))

	return contact, nil
}

// failCard marks the card failed with a user-facing message. The stored
// file is intentionally kept for diagnosis.
func (s *IngestionService) failCard(ctx context.Context, cardID uuid.UUID, message string) error {
	if err := s.cards.SetStatus(ctx, cardID, models.CardStatusFailed, message); err != nil {
		return fmt.Errorf("failed to mark card failed: %w", err)
	}
	return nil
}

// removeStoredFile deletes the uploaded image after successful completion.
// Removal is best-effort; a leftover file is harmless.
func (s *IngestionService) removeStoredFile(path string, log *zap.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove stored file", zap.String("path", path), zap.Error(err))
	}
}

// contactFromExtraction builds a contact from extracted fields. A card with
// no recognizable name still produces a contact, under a placeholder name.
func contactFromExtraction(e *models.ExtractedContact) *models.Contact {
	name := e.Name
	if name == "" {
		name = "Unknown"
	}

	return &models.Contact{
		Name:     name,
		Email:    e.Email,
		Phone:    e.Phone,
		Company:  e.Company,
		Title:    e.Title,
		Industry: normalizedIndustry(e.Industry),
		Address:  e.Address,
		Website:  e.Website,
		Notes:    fmt.Sprintf("Created from business card (%.0f%% extraction confidence)", e.Confidence*100),
		Tags:     []string{},
	}
}

// normalizedIndustry clears values outside the known set.
func normalizedIndustry(industry string) string {
	if !models.IsValidIndustry(industry) {
		return ""
	}
	return industry
}
