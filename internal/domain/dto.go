package domain

import "github.com/google/uuid"

// DTOs for API responses

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// UserDTO is the identity of the calling user
type UserDTO struct {
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Email         string `json:"email,omitempty"`
	Initials      string `json:"initials"`
	DataScientist bool   `json:"dataScientist"`
}

// InputFileDTO is one labelling input file in the container root
type InputFileDTO struct {
	Name  string `json:"name"`
	RunID string `json:"runId"`
}

// ResultFileDTO is one persisted results file
type ResultFileDTO struct {
	Name     string `json:"name"`
	RunID    string `json:"runId"`
	UserName string `json:"userName"`
	SavedAt  string `json:"savedAt,omitempty"` // ISO 8601
	Legacy   bool   `json:"legacy,omitempty"`
}

// RunDTO groups the results files of one run
type RunDTO struct {
	RunID string          `json:"runId"`
	Users []string        `json:"users"`
	Files []ResultFileDTO `json:"files"`
}

// SaveEventDTO is one entry of the save audit trail
type SaveEventDTO struct {
	ID            uuid.UUID `json:"id"`
	RunID         string    `json:"runId"`
	UserName      string    `json:"userName"`
	BlobName      string    `json:"blobName"`
	RowCount      int       `json:"rowCount"`
	LabelledCount int       `json:"labelledCount"`
	PrunedCount   int       `json:"prunedCount"`
	SavedAt       string    `json:"savedAt"` // ISO 8601
}

// SaveEventListResponse wraps the audit trail listing
type SaveEventListResponse struct {
	Enabled bool           `json:"enabled"`
	Events  []SaveEventDTO `json:"events"`
}

// RefreshResponse reports an analysis cache refresh
type RefreshResponse struct {
	Runs        int      `json:"runs"`
	Files       int      `json:"files"`
	Warnings    []string `json:"warnings,omitempty"`
	RefreshedAt string   `json:"refreshedAt"` // ISO 8601
}

// CorrelationDTO is a correlation matrix with undefined cells as null
type CorrelationDTO struct {
	Columns []string     `json:"columns"`
	R       [][]*float64 `json:"r"`
	P       [][]*float64 `json:"p"`
}
