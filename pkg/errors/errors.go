package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrMeetingExists      = errors.New("meeting already indexed")
	ErrActionItemNotFound = errors.New("action item not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrShuttingDown       = errors.New("service shutting down")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrMeetingNotFound), errors.Is(err, ErrActionItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMeetingExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrShuttingDown), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
