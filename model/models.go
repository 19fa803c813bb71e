package model

import (
	"sync/atomic"
	"time"
)

const (
	StatusSuccess          = "success"
	StatusValidationIssues = "validation_issues"

	FindingTypeError   = "error"
	FindingTypeWarning = "warning"
)

// StagedUpload is a client supplied file persisted to scratch storage for the
// duration of one request
type StagedUpload struct {
	ID         string
	SourceName string // as claimed by the client, untrusted
	Path       string
	Size       int64
	CreatedAt  time.Time

	released atomic.Bool
}

// MarkReleased reports whether this call is the first to release the upload
func (u *StagedUpload) MarkReleased() bool {
	return u.released.CompareAndSwap(false, true)
}

// Released reports whether the upload has been released
func (u *StagedUpload) Released() bool {
	return u.released.Load()
}

// ValidationFinding is one problem reported by the linter
type ValidationFinding struct {
	Element string `json:"element"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Rule    string `json:"rule"`
}

// ValidationResult is the normalised report of one linter run
type ValidationResult struct {
	Status   string               `json:"status"`
	Problems []*ValidationFinding `json:"problems"`
	Summary  *string              `json:"summary,omitempty"`

	// Raw linter output, kept for the raw response mapper
	Stdout   string `json:"-"`
	Stderr   string `json:"-"`
	ExitCode int    `json:"-"`
}

// ErrorResponse is the body of every non 2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}
