package accesskit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Users is the registry owning User entities, their lifecycle status and
// the user-role membership set. Passwords are opaque here: hashing and
// verification belong to the host's credential service.
type Users struct {
	store Store
}

// NewUsers creates the user registry on top of a store.
func NewUsers(store Store) *Users {
	return &Users{store: store}
}

// CreateUser are the parameters for Users.Create. Status defaults to
// active when empty.
type CreateUser struct {
	Username     string `validate:"required,min=3,max=100"`
	Email        string `validate:"required,email,max=255"`
	PasswordHash string
	FullName     string `validate:"max=255"`
	AvatarURL    string `validate:"omitempty,url,max=500"`
	Status       UserStatus
}

// Create registers a new user. It fails with ErrConflict on a duplicate
// username or email.
func (u *Users) Create(ctx context.Context, params CreateUser) (*User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	if err := validateInput(params); err != nil {
		return nil, err
	}
	if params.Status == "" {
		params.Status = UserStatusActive
	}
	if !params.Status.Valid() {
		return nil, NewError(ErrInvalidInput, "unknown user status")
	}

	if existing, err := u.store.FindUserByUsername(ctx, params.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrConflict, "username already exists").WithUser(existing.ID)
	}
	if existing, err := u.store.FindUserByEmail(ctx, params.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrConflict, "email already exists").WithUser(existing.ID)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		FullName:     params.FullName,
		AvatarURL:    params.AvatarURL,
		Status:       params.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser are the parameters for Users.Update. Nil fields are left
// unchanged. Status transitions go through Lock/Unlock/Activate/Deactivate,
// not through Update.
type UpdateUser struct {
	Username     *string `validate:"omitempty,min=3,max=100"`
	Email        *string `validate:"omitempty,email,max=255"`
	PasswordHash *string
	FullName     *string `validate:"omitempty,max=255"`
	AvatarURL    *string `validate:"omitempty,url,max=500"`
}

// Update applies profile changes to an existing user.
func (u *Users) Update(ctx context.Context, id string, changes UpdateUser) (*User, error) {
	if err := validateInput(changes); err != nil {
		return nil, err
	}
	user, err := u.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewError(ErrNotFound, "user does not exist").WithUser(id)
	}

	if changes.Username != nil {
		user.Username = strings.TrimSpace(*changes.Username)
	}
	if changes.Email != nil {
		user.Email = strings.TrimSpace(*changes.Email)
	}
	if changes.PasswordHash != nil {
		user.PasswordHash = *changes.PasswordHash
	}
	if changes.FullName != nil {
		user.FullName = *changes.FullName
	}
	if changes.AvatarURL != nil {
		user.AvatarURL = *changes.AvatarURL
	}

	if other, err := u.store.FindUserByUsername(ctx, user.Username); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, NewError(ErrConflict, "username already exists").WithUser(other.ID)
	}
	if other, err := u.store.FindUserByEmail(ctx, user.Email); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, NewError(ErrConflict, "email already exists").WithUser(other.ID)
	}

	user.UpdatedAt = time.Now().UTC()
	if err := u.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and its role edges. Roles themselves survive.
func (u *Users) Delete(ctx context.Context, id string) error {
	user, err := u.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return NewError(ErrNotFound, "user does not exist").WithUser(id)
	}
	if err := u.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	_ = u.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditUserDeleted,
		TargetID:  id,
	}))
	return nil
}

// AssignRole adds a role to a user. Idempotent: assigning a role the user
// already has is a no-op success. Fails with ErrNotFound if either id does
// not resolve.
func (u *Users) AssignRole(ctx context.Context, userID, roleID string) error {
	if err := u.store.AddUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	_ = u.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditRoleAssigned,
		TargetID:  userID,
		SubjectID: roleID,
	}))
	return nil
}

// RemoveRole removes a role from a user. Removing a role the user does not
// have is a no-op success.
func (u *Users) RemoveRole(ctx context.Context, userID, roleID string) error {
	if err := u.store.RemoveUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	_ = u.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditRoleRemoved,
		TargetID:  userID,
		SubjectID: roleID,
	}))
	return nil
}

// GetRoles returns the names of the roles currently on the user. A user
// without roles, or an unknown user id, yields an empty set.
func (u *Users) GetRoles(ctx context.Context, userID string) ([]string, error) {
	roles, err := u.store.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// LockUser sets the user's status to locked. No-op if already locked.
func (u *Users) LockUser(ctx context.Context, id string) error {
	user, err := u.requireUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status == UserStatusLocked {
		return nil
	}
	user.Status = UserStatusLocked
	user.UpdatedAt = time.Now().UTC()
	if err := u.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	_ = u.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditUserLocked,
		TargetID:  id,
	}))
	return nil
}

// UnlockUser restores a locked user to active. No-op if already active.
func (u *Users) UnlockUser(ctx context.Context, id string) error {
	user, err := u.requireUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status == UserStatusActive {
		return nil
	}
	user.Status = UserStatusActive
	user.UpdatedAt = time.Now().UTC()
	if err := u.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	_ = u.store.AppendAudit(ctx, auditStamp(ctx, &AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    AuditUserUnlocked,
		TargetID:  id,
	}))
	return nil
}

// ActivateUser moves an inactive user to active. Fails with
// ErrInvalidState if the user is locked; unlock first.
func (u *Users) ActivateUser(ctx context.Context, id string) error {
	return u.setActive(ctx, id, UserStatusActive)
}

// DeactivateUser moves an active user to inactive. Fails with
// ErrInvalidState if the user is locked.
func (u *Users) DeactivateUser(ctx context.Context, id string) error {
	return u.setActive(ctx, id, UserStatusInactive)
}

func (u *Users) setActive(ctx context.Context, id string, target UserStatus) error {
	user, err := u.requireUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status == UserStatusLocked {
		return NewError(ErrInvalidState, "user is locked").WithUser(id)
	}
	if user.Status == target {
		return nil
	}
	user.Status = target
	user.UpdatedAt = time.Now().UTC()
	return u.store.UpdateUser(ctx, user)
}

// RecordLogin stamps lastLoginAt with the current time. It silently no-ops
// when the user does not exist so that a delete racing a login never fails
// the login flow.
func (u *Users) RecordLogin(ctx context.Context, id string) error {
	user, err := u.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	err = u.store.UpdateUser(ctx, user)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// GetByID returns the user, or nil if absent.
func (u *Users) GetByID(ctx context.Context, id string) (*User, error) {
	return u.store.FindUserByID(ctx, id)
}

// GetByUsername returns the user with the given username, or nil.
func (u *Users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return u.store.FindUserByUsername(ctx, username)
}

// GetByEmail returns the user with the given email, or nil.
func (u *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return u.store.FindUserByEmail(ctx, email)
}

// List returns a stable page of users, ascending by id.
func (u *Users) List(ctx context.Context, page PageParams) ([]User, error) {
	return u.store.ListUsers(ctx, page)
}

func (u *Users) requireUser(ctx context.Context, id string) (*User, error) {
	user, err := u.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewError(ErrNotFound, "user does not exist").WithUser(id)
	}
	return user, nil
}
