package accesskit

import (
	"errors"
	"fmt"
)

// Sentinel errors for accesskit operations.
var (
	// ErrNotFound is returned when a referenced entity id does not exist.
	ErrNotFound = errors.New("accesskit: not found")

	// ErrConflict is returned when a create or update would violate a
	// uniqueness invariant (name, (resource, action), username, email).
	ErrConflict = errors.New("accesskit: conflict")

	// ErrProtectedRole is returned when attempting to delete a system role.
	ErrProtectedRole = errors.New("accesskit: protected role")

	// ErrInvalidState is returned on an illegal user status transition,
	// such as activating a locked user.
	ErrInvalidState = errors.New("accesskit: invalid state")

	// ErrInvalidInput is returned when create/update parameters fail validation.
	ErrInvalidInput = errors.New("accesskit: invalid input")

	// ErrAuthenticationRequired is returned by the enforcement layer when no
	// authenticated principal is present.
	ErrAuthenticationRequired = errors.New("accesskit: authentication required")

	// ErrAuthorizationDenied is returned by the enforcement layer when the
	// engine decides against the principal.
	ErrAuthorizationDenied = errors.New("accesskit: authorization denied")

	// ErrStore is returned when a storage operation fails.
	ErrStore = errors.New("accesskit: store error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err          error  // Underlying sentinel error
	Message      string // Additional context
	UserID       string // User involved (if applicable)
	RoleID       string // Role involved (if applicable)
	PermissionID string // Permission involved (if applicable)
	Resource     string // Required resource (enforcement errors)
	Action       string // Required action (enforcement errors)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(roleID string) *Error {
	e.RoleID = roleID
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permissionID string) *Error {
	e.PermissionID = permissionID
	return e
}

// WithRequirement adds the required (resource, action) pair to the error.
// Set on authorization denials for diagnostics.
func (e *Error) WithRequirement(resource, action string) *Error {
	e.Resource = resource
	e.Action = action
	return e
}

// IsNotFound checks if an error is a missing-entity error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsProtectedRole checks if an error is a system-role protection error.
func IsProtectedRole(err error) bool {
	return errors.Is(err, ErrProtectedRole)
}

// IsInvalidState checks if an error is an illegal status transition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsInvalidInput checks if an error is a validation failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAuthenticationRequired checks if an error is a missing-principal rejection.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// IsAuthorizationDenied checks if an error is a negative-decision rejection.
func IsAuthorizationDenied(err error) bool {
	return errors.Is(err, ErrAuthorizationDenied)
}
