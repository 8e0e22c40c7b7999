package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and creates missing tables.
func ConnectPostgres(postgresURI string, log *zap.Logger) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return err
	}
	PostgresDB = db
	log.Info("✅ Connected to PostgreSQL")

	if err = InitPostgresTables(db); err != nil {
		return err
	}
	log.Info("✅ PostgreSQL tables initialized")
	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(20) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Per-user secrets, encrypted with ENCRYPTION_KEY
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			gemini_key_encrypted TEXT,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS signs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(120) NOT NULL,
			description TEXT,
			category VARCHAR(32) NOT NULL,
			severity SMALLINT NOT NULL CHECK (severity BETWEEN 1 AND 5),
			zone VARCHAR(8) NOT NULL DEFAULT 'point',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			radius_m DOUBLE PRECISION NOT NULL DEFAULT 0,
			action_type VARCHAR(32),
			action_goal TEXT,
			action_deadline TIMESTAMP,
			source VARCHAR(16) NOT NULL DEFAULT 'user',
			place_id VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sign_participants (
			sign_id UUID NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (sign_id, user_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_signs_lat_lng ON signs(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_signs_owner_id ON signs(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signs_created_at ON signs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_participants_user_id ON sign_participants(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_signs_place_id ON signs(place_id) WHERE place_id IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
