package accesskit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for accesskit.
// Use SQLStore.Migrate(ctx) to run them, or feed them into an existing
// dbkit migration pipeline.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "accesskit-001",
			Description: "Create permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permissions (
                    id UUID PRIMARY KEY,
                    name TEXT NOT NULL,
                    resource TEXT NOT NULL,
                    action TEXT NOT NULL,
                    description TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT permissions_name_key UNIQUE (name),
                    CONSTRAINT permissions_resource_action_key UNIQUE (resource, action)
                )`,
		},
		{
			ID:          "accesskit-002",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY,
                    name TEXT NOT NULL,
                    description TEXT,
                    is_system BOOLEAN NOT NULL DEFAULT false,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT roles_name_key UNIQUE (name)
                )`,
		},
		{
			ID:          "accesskit-003",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY,
                    username TEXT NOT NULL,
                    email TEXT NOT NULL,
                    password_hash TEXT,
                    full_name TEXT,
                    avatar_url TEXT,
                    status TEXT NOT NULL DEFAULT 'active',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    last_login_at TIMESTAMPTZ,
                    CONSTRAINT users_username_key UNIQUE (username),
                    CONSTRAINT users_email_key UNIQUE (email)
                )`,
		},
		{
			ID:          "accesskit-004",
			Description: "Create role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_permissions (
                    role_id UUID NOT NULL REFERENCES roles (id),
                    permission_id UUID NOT NULL REFERENCES permissions (id),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (role_id, permission_id)
                )`,
		},
		{
			ID:          "accesskit-005",
			Description: "Create user_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS user_roles (
                    user_id UUID NOT NULL REFERENCES users (id),
                    role_id UUID NOT NULL REFERENCES roles (id),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (user_id, role_id)
                )`,
		},
		{
			ID:          "accesskit-006",
			Description: "Create audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS audit_log (
                    id UUID PRIMARY KEY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT,
                    action TEXT NOT NULL,
                    target_id TEXT NOT NULL,
                    subject_id TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                )`,
		},
	}
}
