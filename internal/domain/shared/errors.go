// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// Gate errors (user-correctable, not bugs)
	ErrGateNotMet = errors.New("unlock gate not met")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUniqueViolation        = errors.New("unique constraint violation")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "skilltree", "challenge"
	Op      string // Operation that failed, e.g., "Award", "Unlock"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrProgressNotFound = NewDomainError("progression", "Find", ErrNotFound, "user progress not found")
	ErrInvalidXPAmount  = NewDomainError("progression", "Award", ErrNegativeValue, "award amount must be positive")
	ErrUnknownReason    = NewDomainError("progression", "Award", ErrInvalidInput, "unknown ledger reason code")
	ErrLedgerAppend     = NewDomainError("progression", "Append", ErrInvalidEntity, "ledger entry rejected")
)

// Skill tree domain errors. Unlock failures carry the specific unmet gate so
// callers can show the user why, not just that the unlock was refused.
var (
	ErrNodeNotFound      = NewDomainError("skilltree", "Find", ErrNotFound, "skill node not found")
	ErrInsufficientLevel = NewDomainError("skilltree", "Unlock", ErrGateNotMet, "user level below node requirement")
	ErrInsufficientXP    = NewDomainError("skilltree", "Unlock", ErrGateNotMet, "user XP below node requirement")
	ErrParentNotUnlocked = NewDomainError("skilltree", "Unlock", ErrGateNotMet, "parent node is not unlocked")
)

// Daily challenge domain errors
var (
	ErrChallengeNotFound = NewDomainError("challenge", "Find", ErrNotFound, "daily challenge not found")
	ErrChallengeExpired  = NewDomainError("challenge", "Complete", ErrExpired, "daily challenge is not today's challenge")
	ErrNoActiveQuestions = NewDomainError("challenge", "Create", ErrNotFound, "no active questions available for selection")
)

// Catalog (external collaborator) errors
var (
	ErrQuestionNotFound = NewDomainError("catalog", "Find", ErrNotFound, "question not found")
	ErrTopicNotFound    = NewDomainError("catalog", "Find", ErrNotFound, "topic not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsGateNotMet checks if the error is an unlock gate failure.
func IsGateNotMet(err error) bool {
	return errors.Is(err, ErrGateNotMet)
}

// IsUniqueViolation checks if the error is a uniqueness conflict. Callers that
// race on insert treat this as "already done" rather than a hard failure.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrAlreadyExists)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
