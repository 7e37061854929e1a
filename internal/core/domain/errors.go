package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is the single outcome of every failed login,
	// whether the username is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTooManyAttempts is returned while a username is locked out after repeated failures.
	ErrTooManyAttempts = errors.New("too many failed attempts")

	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("insufficient role")
	ErrForbidden       = errors.New("access forbidden")

	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmployeeHasAccount is returned by the store when a second account
	// would be linked to the same employee.
	ErrEmployeeHasAccount = errors.New("employee already has an account")

	ErrAccountNotFound    = errors.New("account not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceTypeNotFound = errors.New("device type not found")
	ErrRoleNotFound       = errors.New("role not found")
)

// ValidationError reports constraint-violating input field by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
