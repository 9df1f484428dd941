package domain

import "errors"

// Sentinel errors shared across the service and HTTP layers
var (
	// ErrNotFound is returned when a blob, run or row does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when a submitted form or upload fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when credentials are missing or wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the user lacks the data scientist role
	ErrForbidden = errors.New("forbidden")

	// ErrMissingColumn is returned when an input file lacks a required column
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoDataset is returned when a labelling action needs a selected input file
	ErrNoDataset = errors.New("no input file selected")

	// ErrLoginRequired is returned when saving results without a logged-in user
	ErrLoginRequired = errors.New("login required to save results")

	// ErrUserExists is returned when registering an already taken username
	ErrUserExists = errors.New("username already registered")
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"oneof":    "Must be one of the allowed values",
	"alphanum": "Must contain only alphanumeric characters",
	"numeric":  "Must be a numeric value",
	"dive":     "Contains an invalid value",
	"password": "Password does not meet the criteria",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeRateLimited  = "rate_limited"
	ErrorTypeInternal     = "internal_error"
)
