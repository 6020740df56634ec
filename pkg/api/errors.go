package api

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when the backend answers 404 for a session.
var ErrSessionNotFound = errors.New("session not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend error (status %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend error (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// AppError is returned when the backend answers 2xx with success=false or an
// error message in the body.
type AppError struct {
	Op      string
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
