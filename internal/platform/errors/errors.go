package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrFormat           = errors.New("invalid notebook format")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrControllerClosed = errors.New("controller closed")
)
