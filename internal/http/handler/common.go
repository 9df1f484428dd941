package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/forms"
	"github.com/straye-as/labelling-app/internal/web"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondValidationError sends field-keyed messages of a rejected form or
// registration
func respondValidationError(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fieldErrors(err),
	})
}

// fieldErrors flattens validator and form errors into field -> message
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	var fe *forms.ValidationError
	if errors.As(err, &fe) {
		for k, v := range fe.Fields {
			out[k] = v
		}
	}
	return out
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "username":
		return "Use 1-20 letters, digits, '_' or '-'"
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var fe *forms.ValidationError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &fe), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrMissingColumn):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// handleError answers err as JSON. Internal errors hide their message.
func handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusBadRequest && len(fieldErrors(err)) > 0 {
		respondValidationError(w, err)
		return
	}
	if status == http.StatusInternalServerError {
		respondWithError(w, status, "An internal error occurred")
		return
	}
	respondWithError(w, status, err.Error())
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return domain.ErrorTypeRateLimited
	default:
		return domain.ErrorTypeInternal
	}
}

// newPage starts a page for the user of r
func newPage(r *http.Request, title string, data any) *web.Page {
	user, _ := auth.FromContext(r.Context())
	return &web.Page{Title: title, User: user, Data: data}
}
