package accesskit

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// SQLStore is the PostgreSQL-backed Store. It speaks to the database through
// dbkit and bun; unique violations raised by the schema's constraints are
// mapped to ErrConflict so that racing creates behave like pre-checked ones.
//
// Cascading deletes and bulk association writes run inside a dbkit
// transaction: a concurrent Decide observes either the pre- or
// post-mutation association set.
type SQLStore struct {
	db        dbkit.IDB
	pageLimit int
}

// NewSQLStore wraps an existing dbkit connection.
func NewSQLStore(db dbkit.IDB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore connects to PostgreSQL using the given configuration. The
// configured page limit bounds listings whose callers pass none.
//
// Example:
//
//	cfg, _ := accesskit.ConfigFromEnv()
//	store, err := accesskit.OpenSQLStore(cfg)
func OpenSQLStore(cfg Config) (*SQLStore, error) {
	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("accesskit: failed to connect: %w", err)
	}
	s := NewSQLStore(db)
	s.pageLimit = cfg.PageLimit
	return s, nil
}

// Migrate runs the accesskit schema migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("accesskit: migrations require a *dbkit.DBKit connection")
	}
	_, err := db.Migrate(ctx, Migrations())
	return err
}

// inTx runs fn inside a transaction, reusing the surrounding one when the
// store already wraps a dbkit.Tx (savepoint semantics).
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *dbkit.Tx) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, fn)
	case *dbkit.DBKit:
		return db.Transaction(ctx, fn)
	default:
		return fmt.Errorf("accesskit: transactions require a dbkit.DBKit or dbkit.Tx instance")
	}
}

func (s *SQLStore) storeErr(err error, op string) error {
	err = dbkit.WithErr1(err, op).Err()
	if err == nil {
		return nil
	}
	if dbkit.IsDuplicate(err) {
		return NewError(ErrConflict, op+": uniqueness violation")
	}
	return NewError(ErrStore, err.Error())
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func (s *SQLStore) InsertPermission(ctx context.Context, p *Permission) error {
	_, err := s.db.NewInsert().Model(p).Exec(ctx)
	return s.storeErr(err, "InsertPermission")
}

func (s *SQLStore) FindPermissionByID(ctx context.Context, id string) (*Permission, error) {
	var p Permission
	err := s.db.NewSelect().Model(&p).Where("id = ?", id).Limit(1).Scan(ctx)
	return finishFind(&p, err, "FindPermissionByID")
}

func (s *SQLStore) FindPermissionByName(ctx context.Context, name string) (*Permission, error) {
	var p Permission
	err := s.db.NewSelect().Model(&p).Where("name = ?", name).Limit(1).Scan(ctx)
	return finishFind(&p, err, "FindPermissionByName")
}

func (s *SQLStore) FindPermissionByPair(ctx context.Context, resource, action string) (*Permission, error) {
	var p Permission
	err := s.db.NewSelect().Model(&p).Where("resource = ? AND action = ?", resource, action).Limit(1).Scan(ctx)
	return finishFind(&p, err, "FindPermissionByPair")
}

func (s *SQLStore) UpdatePermission(ctx context.Context, p *Permission) error {
	res, err := s.db.NewUpdate().
		Table("permissions").
		Set("name = ?", p.Name).
		Set("resource = ?", p.Resource).
		Set("action = ?", p.Action).
		Set("description = ?", p.Description).
		Where("id = ?", p.ID).
		Exec(ctx)
	if err := s.storeErr(err, "UpdatePermission"); err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(p.ID)
	}
	return nil
}

func (s *SQLStore) DeletePermission(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *dbkit.Tx) error {
		_, err := tx.NewDelete().Table("role_permissions").Where("permission_id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeletePermissionEdges"); err != nil {
			return err
		}
		res, err := tx.NewDelete().Table("permissions").Where("id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeletePermission"); err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return NewError(ErrNotFound, "permission does not exist").WithPermission(id)
		}
		return nil
	})
}

func (s *SQLStore) ListPermissions(ctx context.Context, page PageParams) ([]Permission, error) {
	page = normalizePage(page, s.pageLimit)
	var out []Permission
	err := s.db.NewSelect().Model(&out).Order("id ASC").Limit(page.Limit).Offset(page.Offset).Scan(ctx)
	if err := s.storeErr(err, "ListPermissions"); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ListResources(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.NewRaw("SELECT DISTINCT resource FROM permissions ORDER BY resource").Scan(ctx, &out)
	if err := s.storeErr(err, "ListResources"); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ListActions(ctx context.Context, resource string) ([]string, error) {
	var out []string
	err := s.db.NewRaw("SELECT DISTINCT action FROM permissions WHERE resource = ? ORDER BY action", resource).Scan(ctx, &out)
	if err := s.storeErr(err, "ListActions"); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// ROLES
// ============================================================================

func (s *SQLStore) InsertRole(ctx context.Context, r *Role) error {
	_, err := s.db.NewInsert().Model(r).Exec(ctx)
	return s.storeErr(err, "InsertRole")
}

func (s *SQLStore) FindRoleByID(ctx context.Context, id string) (*Role, error) {
	var r Role
	err := s.db.NewSelect().Model(&r).Where("id = ?", id).Limit(1).Scan(ctx)
	return finishFind(&r, err, "FindRoleByID")
}

func (s *SQLStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	var r Role
	err := s.db.NewSelect().Model(&r).Where("name = ?", name).Limit(1).Scan(ctx)
	return finishFind(&r, err, "FindRoleByName")
}

func (s *SQLStore) UpdateRole(ctx context.Context, r *Role) error {
	res, err := s.db.NewUpdate().
		Table("roles").
		Set("name = ?", r.Name).
		Set("description = ?", r.Description).
		Set("is_system = ?", r.IsSystem).
		Where("id = ?", r.ID).
		Exec(ctx)
	if err := s.storeErr(err, "UpdateRole"); err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return NewError(ErrNotFound, "role does not exist").WithRole(r.ID)
	}
	return nil
}

func (s *SQLStore) DeleteRole(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *dbkit.Tx) error {
		_, err := tx.NewDelete().Table("role_permissions").Where("role_id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeleteRolePermissionEdges"); err != nil {
			return err
		}
		_, err = tx.NewDelete().Table("user_roles").Where("role_id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeleteRoleUserEdges"); err != nil {
			return err
		}
		res, err := tx.NewDelete().Table("roles").Where("id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeleteRole"); err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return NewError(ErrNotFound, "role does not exist").WithRole(id)
		}
		return nil
	})
}

func (s *SQLStore) ListRoles(ctx context.Context, page PageParams) ([]Role, error) {
	page = normalizePage(page, s.pageLimit)
	var out []Role
	err := s.db.NewSelect().Model(&out).Order("id ASC").Limit(page.Limit).Offset(page.Offset).Scan(ctx)
	if err := s.storeErr(err, "ListRoles"); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ListRolesBySystem(ctx context.Context, isSystem bool) ([]Role, error) {
	var out []Role
	err := s.db.NewSelect().Model(&out).Where("is_system = ?", isSystem).Order("id ASC").Scan(ctx)
	if err := s.storeErr(err, "ListRolesBySystem"); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) AddRolePermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.requireRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.requirePermission(ctx, permissionID); err != nil {
		return err
	}
	edge := &RolePermission{RoleID: roleID, PermissionID: permissionID}
	// Idempotent set-add: re-assigning an existing edge is a no-op.
	_, err := s.db.NewInsert().
		Model(edge).
		On("CONFLICT (role_id, permission_id) DO NOTHING").
		Exec(ctx)
	return s.storeErr(err, "AddRolePermission")
}

func (s *SQLStore) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return s.inTx(ctx, func(tx *dbkit.Tx) error {
		txStore := NewSQLStore(tx)
		if err := txStore.requireRole(ctx, roleID); err != nil {
			return err
		}
		// Validate the whole batch before inserting: all-or-nothing.
		for _, id := range permissionIDs {
			if err := txStore.requirePermission(ctx, id); err != nil {
				return NewError(ErrNotFound, "permission does not exist").WithRole(roleID).WithPermission(id)
			}
		}
		for _, id := range permissionIDs {
			edge := &RolePermission{RoleID: roleID, PermissionID: id}
			_, err := tx.NewInsert().
				Model(edge).
				On("CONFLICT (role_id, permission_id) DO NOTHING").
				Exec(ctx)
			if err := s.storeErr(err, "AddRolePermissions"); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) RemoveRolePermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.requireRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.requirePermission(ctx, permissionID); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Table("role_permissions").
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Exec(ctx)
	return s.storeErr(err, "RemoveRolePermission")
}

func (s *SQLStore) ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	var out []Permission
	err := s.db.NewRaw(
		"SELECT p.* FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id WHERE rp.role_id = ? ORDER BY p.id",
		roleID,
	).Scan(ctx, &out)
	if err := s.storeErr(err, "ListRolePermissions"); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// USERS
// ============================================================================

func (s *SQLStore) InsertUser(ctx context.Context, u *User) error {
	_, err := s.db.NewInsert().Model(u).Exec(ctx)
	return s.storeErr(err, "InsertUser")
}

func (s *SQLStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx)
	return finishFind(&u, err, "FindUserByID")
}

func (s *SQLStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("username = ?", username).Limit(1).Scan(ctx)
	return finishFind(&u, err, "FindUserByUsername")
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("email = ?", email).Limit(1).Scan(ctx)
	return finishFind(&u, err, "FindUserByEmail")
}

func (s *SQLStore) UpdateUser(ctx context.Context, u *User) error {
	res, err := s.db.NewUpdate().
		Table("users").
		Set("username = ?", u.Username).
		Set("email = ?", u.Email).
		Set("password_hash = ?", u.PasswordHash).
		Set("full_name = ?", u.FullName).
		Set("avatar_url = ?", u.AvatarURL).
		Set("status = ?", u.Status).
		Set("updated_at = ?", u.UpdatedAt).
		Set("last_login_at = ?", u.LastLoginAt).
		Where("id = ?", u.ID).
		Exec(ctx)
	if err := s.storeErr(err, "UpdateUser"); err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return NewError(ErrNotFound, "user does not exist").WithUser(u.ID)
	}
	return nil
}

func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *dbkit.Tx) error {
		_, err := tx.NewDelete().Table("user_roles").Where("user_id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeleteUserEdges"); err != nil {
			return err
		}
		res, err := tx.NewDelete().Table("users").Where("id = ?", id).Exec(ctx)
		if err := s.storeErr(err, "DeleteUser"); err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return NewError(ErrNotFound, "user does not exist").WithUser(id)
		}
		return nil
	})
}

func (s *SQLStore) ListUsers(ctx context.Context, page PageParams) ([]User, error) {
	page = normalizePage(page, s.pageLimit)
	var out []User
	err := s.db.NewSelect().Model(&out).Order("id ASC").Limit(page.Limit).Offset(page.Offset).Scan(ctx)
	if err := s.storeErr(err, "ListUsers"); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) AddUserRole(ctx context.Context, userID, roleID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.requireRole(ctx, roleID); err != nil {
		return err
	}
	edge := &UserRole{UserID: userID, RoleID: roleID}
	_, err := s.db.NewInsert().
		Model(edge).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	return s.storeErr(err, "AddUserRole")
}

func (s *SQLStore) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.requireRole(ctx, roleID); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Table("user_roles").
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Exec(ctx)
	return s.storeErr(err, "RemoveUserRole")
}

func (s *SQLStore) ListUserRoles(ctx context.Context, userID string) ([]Role, error) {
	var out []Role
	err := s.db.NewRaw(
		"SELECT r.* FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ? ORDER BY r.id",
		userID,
	).Scan(ctx, &out)
	if err := s.storeErr(err, "ListUserRoles"); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// AUDIT
// ============================================================================

func (s *SQLStore) AppendAudit(ctx context.Context, rec *AuditRecord) error {
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return s.storeErr(err, "AppendAudit")
}

func (s *SQLStore) ListAudit(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	var out []AuditRecord
	q := s.db.NewSelect().Model(&out)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.TargetID != "" {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.pageLimit
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.Order("timestamp DESC")

	if err := s.storeErr(q.Scan(ctx), "ListAudit"); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *SQLStore) requireRole(ctx context.Context, id string) error {
	exists, err := dbkit.Exists[Role](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err := s.storeErr(err, "RequireRole"); err != nil {
		return err
	}
	if !exists {
		return NewError(ErrNotFound, "role does not exist").WithRole(id)
	}
	return nil
}

func (s *SQLStore) requirePermission(ctx context.Context, id string) error {
	exists, err := dbkit.Exists[Permission](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err := s.storeErr(err, "RequirePermission"); err != nil {
		return err
	}
	if !exists {
		return NewError(ErrNotFound, "permission does not exist").WithPermission(id)
	}
	return nil
}

func (s *SQLStore) requireUser(ctx context.Context, id string) error {
	exists, err := dbkit.Exists[User](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err := s.storeErr(err, "RequireUser"); err != nil {
		return err
	}
	if !exists {
		return NewError(ErrNotFound, "user does not exist").WithUser(id)
	}
	return nil
}

// finishFind maps a single-row select to the optional-result contract:
// absence returns (nil, nil), everything else is a store error.
func finishFind[T any](dst *T, err error, op string) (*T, error) {
	err = dbkit.WithErr1(err, op).Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, NewError(ErrStore, err.Error())
	}
	return dst, nil
}
