package accesskit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorWrapping tests Unwrap and errors.Is through the wrapper
func TestErrorWrapping(t *testing.T) {
	err := NewError(ErrNotFound, "role does not exist").WithRole("r1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, ErrNotFound, errors.Unwrap(err))
	assert.Equal(t, "r1", err.RoleID)
}

// TestErrorMessage tests the formatted message
func TestErrorMessage(t *testing.T) {
	err := NewError(ErrConflict, "role name already exists")
	assert.Contains(t, err.Error(), "accesskit: conflict")
	assert.Contains(t, err.Error(), "role name already exists")

	bare := NewError(ErrNotFound, "")
	assert.Equal(t, ErrNotFound.Error(), bare.Error())
}

// TestErrorBuilders tests the fluent detail setters
func TestErrorBuilders(t *testing.T) {
	err := NewError(ErrAuthorizationDenied, "missing required permission").
		WithUser("u1").
		WithRole("r1").
		WithPermission("p1").
		WithRequirement("article", "delete")

	assert.Equal(t, "u1", err.UserID)
	assert.Equal(t, "r1", err.RoleID)
	assert.Equal(t, "p1", err.PermissionID)
	assert.Equal(t, "article", err.Resource)
	assert.Equal(t, "delete", err.Action)
}

// TestErrorPredicates tests the classification helpers
func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"NotFound", ErrNotFound, IsNotFound},
		{"Conflict", ErrConflict, IsConflict},
		{"ProtectedRole", ErrProtectedRole, IsProtectedRole},
		{"InvalidState", ErrInvalidState, IsInvalidState},
		{"InvalidInput", ErrInvalidInput, IsInvalidInput},
		{"AuthenticationRequired", ErrAuthenticationRequired, IsAuthenticationRequired},
		{"AuthorizationDenied", ErrAuthorizationDenied, IsAuthorizationDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// bare sentinel
			assert.True(t, tt.predicate(tt.err))
			// wrapped in the rich error
			assert.True(t, tt.predicate(NewError(tt.err, "detail")))
			// wrapped again with fmt
			assert.True(t, tt.predicate(fmt.Errorf("outer: %w", NewError(tt.err, "detail"))))
			// unrelated errors do not match
			assert.False(t, tt.predicate(errors.New("something else")))
			assert.False(t, tt.predicate(nil))
		})
	}
}

// TestErrorAs tests extraction of the detail struct
func TestErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewError(ErrNotFound, "user does not exist").WithUser("u1"))

	var detail *Error
	assert.True(t, errors.As(wrapped, &detail))
	assert.Equal(t, "u1", detail.UserID)
}
