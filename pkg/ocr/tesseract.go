package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractExtractor implements TextExtractor using the gosseract client.
type TesseractExtractor struct {
	clientFactory func() *gosseract.Client
	languages     []string
	logger        *zap.Logger
}

// NewTesseractExtractor constructs a Tesseract-backed extractor. The
// languages string uses Tesseract's "eng+deu" syntax.
func NewTesseractExtractor(languages string, logger *zap.Logger) *TesseractExtractor {
	var langs []string
	if languages != "" {
		langs = strings.Split(languages, "+")
	}
	return &TesseractExtractor{
		clientFactory: gosseract.NewClient,
		languages:     langs,
		logger:        logger.Named("ocr"),
	}
}

// ExtractText performs OCR on a single image.
func (e *TesseractExtractor) ExtractText(ctx context.Context, image []byte) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return Result{}, fmt.Errorf("set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}

	res := Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanWordConfidence(c),
	}

	e.logger.Debug("OCR completed",
		zap.Int("text_len", len(res.Text)),
		zap.Float64("confidence", res.Confidence))

	return res, nil
}

// meanWordConfidence averages word-level confidences, normalized to [0,1].
func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

// Ensure TesseractExtractor implements TextExtractor at compile time.
var _ TextExtractor = (*TesseractExtractor)(nil)
