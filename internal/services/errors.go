package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Handlers map these to HTTP statuses with errors.Is.
var (
	// ErrValidation marks malformed or incomplete client input.
	ErrValidation = errors.New("invalid input")
	// ErrConflict marks a registration that collides with an existing unique field.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized covers missing, invalid or expired tokens and missing or inactive accounts.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is the single login failure for unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInfrastructure marks store or model unavailability. Not client-fixable.
	ErrInfrastructure = errors.New("service unavailable")
	// ErrPredictionFailed marks a model fault on otherwise valid input.
	ErrPredictionFailed = errors.New("prediction failed")
)

// ValidationError describes why input was rejected. It matches ErrValidation.
type ValidationError struct {
	Reason  string
	Columns []string
}

func (e *ValidationError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Columns, ", "))
	}
	return e.Reason
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError names the unique field a registration collided on. It matches ErrConflict.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Validation reasons.
const (
	ReasonFeatureCount   = "feature count"
	ReasonNonNumeric     = "non-numeric"
	ReasonMissingColumns = "missing columns"
)

func infrastructure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}
