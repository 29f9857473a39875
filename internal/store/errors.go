package store

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
)

// Kind classifies a store failure.
type Kind int

const (
	// KindNotInitialized marks an operation attempted before Initialize
	// or after Close. A sequencing bug in the caller, not a data error.
	KindNotInitialized Kind = iota
	// KindConnectionFailed marks an Initialize that could not reach the store.
	KindConnectionFailed
	// KindReadFailed marks a failed GetAll or GetByID, including not-found.
	KindReadFailed
	// KindWriteFailed marks a failed Create, Update or Delete,
	// including revision conflicts.
	KindWriteFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotInitialized:
		return "NotInitialized"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindReadFailed:
		return "ReadFailed"
	case KindWriteFailed:
		return "WriteFailed"
	}
	return "Unknown"
}

// StoreError is the uniform shape every store failure is normalized to.
// Status is HTTP-like: 404 for missing documents, 409 for revision
// conflicts, 500 when the underlying store supplies nothing better.
type StoreError struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a StoreError of the given kind.
func IsKind(err error, k Kind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == k
}

// StatusOf extracts the HTTP-like status from a store error,
// defaulting to 500 for anything else.
func StatusOf(err error) int {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Status
	}
	return http.StatusInternalServerError
}

func notInitialized(op string) *StoreError {
	return &StoreError{
		Kind:    KindNotInitialized,
		Status:  http.StatusInternalServerError,
		Message: "store not initialized: cannot " + op,
	}
}

func connectionFailed(cause error) *StoreError {
	return &StoreError{
		Kind:    KindConnectionFailed,
		Status:  statusFromCause(cause),
		Message: "failed to connect to store",
		Cause:   cause,
	}
}

func readFailed(msg string, cause error) *StoreError {
	return &StoreError{
		Kind:    KindReadFailed,
		Status:  statusFromCause(cause),
		Message: msg,
		Cause:   cause,
	}
}

func writeFailed(msg string, cause error) *StoreError {
	return &StoreError{
		Kind:    KindWriteFailed,
		Status:  statusFromCause(cause),
		Message: msg,
		Cause:   cause,
	}
}

func conflict(msg string) *StoreError {
	return &StoreError{
		Kind:    KindWriteFailed,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

// statusFromCause maps underlying store errors to an HTTP-like status.
// Anything unrecognized is a 500, per the contract.
func statusFromCause(cause error) int {
	if errors.Is(cause, sql.ErrNoRows) {
		return http.StatusNotFound
	}
	var pqErr *pq.Error
	if errors.As(cause, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation: duplicate document id
			return http.StatusConflict
		case "28P01", "28000": // bad credentials
			return http.StatusUnauthorized
		}
	}
	return http.StatusInternalServerError
}
