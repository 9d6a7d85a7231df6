package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRecord    = errors.New("invalid team record")
	ErrConfiguration    = errors.New("configuration error")
	ErrSimulationFailed = errors.New("simulation failed")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInvalidRecord = "INVALID_RECORD"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeSimulation    = "SIMULATION_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// CodeFor maps a wrapped sentinel to its API error code
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRecord):
		return ErrCodeInvalidRecord
	case errors.Is(err, ErrConfiguration):
		return ErrCodeConfiguration
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrCodeRateLimited
	case errors.Is(err, ErrSimulationFailed):
		return ErrCodeSimulation
	default:
		return ErrCodeInternal
	}
}
