package ocr

import "context"

// MockExtractor is a configurable mock for testing OCR-dependent code.
type MockExtractor struct {
	// ExtractTextFunc is called when ExtractText is invoked.
	// If nil, returns a zero Result and nil error.
	ExtractTextFunc func(ctx context.Context, image []byte) (Result, error)

	// ExtractTextCalls counts invocations for verification.
	ExtractTextCalls int
}

// ExtractText implements TextExtractor.
func (m *MockExtractor) ExtractText(ctx context.Context, image []byte) (Result, error) {
	m.ExtractTextCalls++
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, image)
	}
	return Result{}, nil
}

// Ensure MockExtractor implements TextExtractor at compile time.
var _ TextExtractor = (*MockExtractor)(nil)
