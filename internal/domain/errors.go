package domain

import (
	"errors"
	"fmt"
)

var (
	// Base errors
	ErrInvalidInput = errors.New("invalid input")

	// Filter specific errors
	ErrFilterNotFound      = errors.New("filter not found")
	ErrDuplicateFilterID   = errors.New("duplicate filter id")
	ErrUnknownFilterType   = errors.New("unknown filter type")
	ErrInvalidFrequency    = errors.New("frequency must be positive")
	ErrInvalidQ            = errors.New("q must be positive")
	ErrNoSelection         = errors.New("no filter selected")
	ErrSelectionOutOfRange = errors.New("selection index out of range")

	// Plot errors
	ErrInvalidGeometry   = errors.New("plot geometry must be positive")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// Engine errors
	ErrEngineUnavailable = errors.New("processing engine unavailable")
	ErrSessionClosed     = errors.New("session closed")
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code string, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewDomainErrorWithDetails(code string, message string, details string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// Error codes for consistent error handling
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeFilterNotFound  = "FILTER_NOT_FOUND"
	ErrCodeDuplicateFilter = "DUPLICATE_FILTER"
	ErrCodeUnknownType     = "UNKNOWN_FILTER_TYPE"
	ErrCodeGeometry        = "INVALID_GEOMETRY"
	ErrCodeSelection       = "SELECTION"
	ErrCodeEngine          = "ENGINE"
	ErrCodeConfig          = "CONFIG"
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrFilterNotFound)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidQ) || errors.Is(err, ErrDuplicateFilterID) ||
		errors.Is(err, ErrUnknownFilterType)
}

func IsSelectionError(err error) bool {
	return errors.Is(err, ErrNoSelection) || errors.Is(err, ErrSelectionOutOfRange)
}

func IsGeometryError(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) || errors.Is(err, ErrInvalidSampleRate)
}
