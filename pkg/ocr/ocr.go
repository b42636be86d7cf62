// Package ocr turns an image buffer into raw text plus a confidence score.
package ocr

import "context"

// Result is the outcome of text extraction on one image.
type Result struct {
	// Text is the recognized plain text, trimmed.
	Text string

	// Confidence is the mean word-level recognition confidence in [0,1].
	// Zero means the engine recognized nothing usable.
	Confidence float64
}

// TextExtractor extracts text from an image buffer. Implementations must be
// safe for concurrent use; each call gets its own engine client.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (Result, error)
}
