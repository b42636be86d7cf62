package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyName       = errors.New("name is required")
	ErrInvalidIndustry = errors.New("invalid industry")
	ErrFileTooLarge    = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType = errors.New("unsupported file type")
)
