package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255)    NOT NULL,
		name          VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		user_type     VARCHAR(16)     NOT NULL DEFAULT 'parent',
		created_at    DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS children (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		parent_id  BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(255)    NOT NULL,
		grade      VARCHAR(64)     NOT NULL,
		created_at DATETIME(6)     NOT NULL,
		KEY idx_children_parent (parent_id),
		CONSTRAINT fk_children_parent FOREIGN KEY (parent_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS requests (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		parent_id       BIGINT UNSIGNED NOT NULL,
		child_name      VARCHAR(255)    NOT NULL,
		child_grade     VARCHAR(64)     NOT NULL,
		request_type    ENUM('checkin','checkout') NOT NULL,
		request_message TEXT            NOT NULL,
		status          ENUM('pending','approved','rejected') NOT NULL DEFAULT 'pending',
		feedback        TEXT            NULL,
		response_time   DATETIME(6)     NULL,
		created_at      DATETIME(6)     NOT NULL,
		updated_at      DATETIME(6)     NOT NULL,
		KEY idx_requests_parent_created (parent_id, created_at),
		KEY idx_requests_created (created_at),
		CONSTRAINT fk_requests_parent FOREIGN KEY (parent_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		must_rotate   BOOLEAN         NOT NULL DEFAULT FALSE,
		created_at    DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_admins_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sessions (
		token_hash CHAR(64)        NOT NULL PRIMARY KEY,
		role       VARCHAR(16)     NOT NULL,
		subject_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME(6)     NOT NULL,
		expires_at DATETIME(6)     NOT NULL,
		revoked_at DATETIME(6)     NULL,
		KEY idx_sessions_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
