// Package apierr defines the gateway's error taxonomy and the JSON
// error envelope returned to clients.
package apierr

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Type categorizes a failure for the client-facing envelope.
type Type string

const (
	TypeValidation Type = "validation_error"
	TypeProcessing Type = "processing_error" // scoring or asset failure on an input item
	TypeInternal   Type = "internal_error"
)

// Error is a failure with a client-facing type. Store outages never
// become an Error; those are absorbed where they happen.
type Error struct {
	Type    Type
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Scoring wraps a backend scoring failure.
func Scoring(err error) *Error {
	return &Error{Type: TypeProcessing, Message: "scoring backend failed", Err: err}
}

// Asset wraps an image fetch/decode/validation failure.
func Asset(err error) *Error {
	return &Error{Type: TypeProcessing, Message: err.Error(), Err: err}
}

// TypeOf returns the envelope type for err, defaulting to internal_error.
func TypeOf(err error) Type {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Type
	}
	return TypeInternal
}

// Detail describes one field-level validation issue.
type Detail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Type      Type     `json:"type"`
	Message   string   `json:"message"`
	Details   []Detail `json:"details,omitempty"`
	RequestID string   `json:"request_id"`
	Timestamp string   `json:"timestamp"`
}

// NewRequestID returns an id in the form req_<hex12>.
func NewRequestID() string {
	u := uuid.New()
	return "req_" + hex.EncodeToString(u[:])[:12]
}

// NewErrorID returns an id in the form req_error_<hex8>.
func NewErrorID() string {
	u := uuid.New()
	return "req_error_" + hex.EncodeToString(u[:])[:8]
}

// Timestamp returns the current UTC time as ISO 8601 with millisecond
// precision, e.g. 2025-09-29T22:10:05.123Z.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Write sends the error envelope with the given status.
func Write(w http.ResponseWriter, status int, typ Type, msg string, details ...Detail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Error: body{
			Type:      typ,
			Message:   msg,
			Details:   details,
			RequestID: NewErrorID(),
			Timestamp: Timestamp(),
		},
	})
}
