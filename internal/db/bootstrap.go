package db

import (
	"fmt"

	"gorm.io/gorm"
)

// usersTableSQL holds the raw CREATE statement per dialect. Columns mirror domain.User.
var usersTableSQL = map[string]string{
	"mysql": `CREATE TABLE IF NOT EXISTS users (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255),
	email VARCHAR(255) NOT NULL UNIQUE,
	password LONGTEXT NOT NULL,
	role VARCHAR(16) DEFAULT 'user',
	session_token VARCHAR(512),
	wallet_address VARCHAR(64),
	reset_token VARCHAR(128),
	reset_token_expiry DATETIME(3) NULL,
	created_at DATETIME(3) NULL,
	updated_at DATETIME(3) NULL,
	INDEX idx_users_reset_token (reset_token)
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255),
	email VARCHAR(255) NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role VARCHAR(16) DEFAULT 'user',
	session_token VARCHAR(512),
	wallet_address VARCHAR(64),
	reset_token VARCHAR(128),
	reset_token_expiry TIMESTAMPTZ NULL,
	created_at TIMESTAMPTZ NULL,
	updated_at TIMESTAMPTZ NULL
)`,
	"sqlite": `CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role TEXT DEFAULT 'user',
	session_token TEXT,
	wallet_address TEXT,
	reset_token TEXT,
	reset_token_expiry DATETIME NULL,
	created_at DATETIME NULL,
	updated_at DATETIME NULL
)`,
}

// BootstrapUsersTable creates the users table with raw SQL when it does not exist
func BootstrapUsersTable(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	stmt, ok := usersTableSQL[dialect]
	if !ok {
		return fmt.Errorf("no bootstrap statement for dialect %q", dialect)
	}
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}
