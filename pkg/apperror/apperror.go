package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal server error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConfiguration       = errors.New("configuration error")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstream            = errors.New("upstream error")
)

// AppError is the single error shape that crosses layer boundaries.
// Status, when non-zero, overrides the status derived from BaseError and is
// used to propagate upstream HTTP codes to the client unchanged.
type AppError struct {
	BaseError error
	Message   string
	Details   string
	Status    int
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewInvalidInput(msg string, err error) *AppError {
	return NewAppError(ErrInvalidInput, msg, "", err)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

func NewConfiguration(details string) *AppError {
	return NewAppError(ErrConfiguration, "Server configuration error", details, nil)
}

func NewUnauthorized(details string) *AppError {
	e := NewAppError(ErrUnauthorized, "Authentication failed. Please check your API credentials.", details, nil)
	e.Status = http.StatusUnauthorized
	return e
}

func NewRateLimited(details string) *AppError {
	e := NewAppError(ErrRateLimited, "Rate limit exceeded. Please wait before retrying.", details, nil)
	e.Status = http.StatusTooManyRequests
	return e
}

func NewUpstreamUnavailable(details string, err error) *AppError {
	e := NewAppError(ErrUpstreamUnavailable, "Upstream service is temporarily unavailable. Please try again later.", details, err)
	e.Status = http.StatusInternalServerError
	return e
}

func NewUpstream(status int, body string) *AppError {
	msg := fmt.Sprintf("Upstream request failed with status %d", status)
	e := NewAppError(ErrUpstream, msg, body, nil)
	e.Status = status
	return e
}

// StatusOf returns the explicit status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

func ToHTTPStatus(err error) int {
	if status := StatusOf(err); status != 0 {
		return status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// WithoutDetails returns a copy of err with Details cleared, so the rendered
// body carries only the message. Non-AppError values are returned as is.
func WithoutDetails(err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Details == "" {
		return err
	}
	stripped := *appErr
	stripped.Details = ""
	return &stripped
}

func (e *AppError) ToJSON() gin.H {
	body := gin.H{"error": e.Message}
	if e.Details != "" {
		body["details"] = e.Details
	}
	return body
}
