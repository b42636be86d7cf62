// Package services holds the business logic between the HTTP handlers and
// the repositories: the card ingestion pipeline, LLM-backed extraction and
// query interpretation, and stats assembly.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/llm"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// ContactExtractor turns raw OCR text into a structured contact candidate
// with a confidence score.
type ContactExtractor interface {
	Extract(ctx context.Context, text string) (*models.ExtractedContact, error)
}

// llmContactExtractor implements ContactExtractor using an LLM client.
type llmContactExtractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewContactExtractor creates an LLM-backed contact extractor.
func NewContactExtractor(client llm.Client, logger *zap.Logger) ContactExtractor {
	return &llmContactExtractor{
		client: client,
		logger: logger.Named("extractor"),
	}
}

const extractionSystemMessage = `You are a business card parser. You receive raw OCR text from a scanned business card and return the contact fields as JSON. Respond with JSON only, no prose.`

func extractionPrompt(text string) string {
	return fmt.Sprintf(`Extract contact information from this business card text.

Business card text:
"""
%s
"""

Return a JSON object with exactly these keys (use "" for anything not present):
{
  "name": "person's full name",
  "email": "email address",
  "phone": "phone number",
  "company": "company name",
  "title": "job title",
  "industry": "one of: %s, or empty if unclear",
  "address": "postal address",
  "website": "website URL",
  "confidence": 0.0
}

"confidence" is your overall confidence in the extraction as a number between 0 and 1, considering how garbled the OCR text is and how many fields you could identify.`,
		text, strings.Join(models.ValidIndustries, ", "))
}

// Extract asks the LLM for structured fields and normalizes the result.
// The confidence is clamped to [0,1]; an industry outside the known set is
// cleared rather than rejected.
func (e *llmContactExtractor) Extract(ctx context.Context, text string) (*models.ExtractedContact, error) {
	response, err := e.client.GenerateResponse(ctx, extractionPrompt(text), extractionSystemMessage, 0.1)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	extracted, err := llm.ParseJSONResponse[models.ExtractedContact](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	if extracted.Confidence < 0 {
		extracted.Confidence = 0
	}
	if extracted.Confidence > 1 {
		extracted.Confidence = 1
	}

	extracted.Industry = strings.ToLower(strings.TrimSpace(extracted.Industry))
	if !models.IsValidIndustry(extracted.Industry) {
		e.logger.Debug("discarding unrecognized industry",
			zap.String("industry", extracted.Industry))
		extracted.Industry = ""
	}

	return &extracted, nil
}
