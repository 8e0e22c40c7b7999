package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnshRaj112/civicquest-backend/pkg/utils"
)

// SettingsService keeps per-user secrets in user_settings, sealed with the
// server encryption key.
type SettingsService struct {
	db     *sql.DB
	cipher *utils.Cipher
}

func NewSettingsService(db *sql.DB, cipher *utils.Cipher) *SettingsService {
	return &SettingsService{db: db, cipher: cipher}
}

// SetGeminiKey stores or clears (when key is empty) the user's own API key.
func (s *SettingsService) SetGeminiKey(ctx context.Context, userID uuid.UUID, key string) error {
	if key == "" {
		_, err := s.db.ExecContext(ctx, `
			UPDATE user_settings SET gemini_key_encrypted = NULL, updated_at = NOW() WHERE user_id = $1
		`, userID)
		return err
	}
	sealed, err := s.cipher.Encrypt(key)
	if err != nil {
		return fmt.Errorf("encrypt gemini key: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, gemini_key_encrypted, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET gemini_key_encrypted = EXCLUDED.gemini_key_encrypted, updated_at = NOW()
	`, userID, sealed)
	return err
}

// GeminiKey returns the user's decrypted key, or "" when none is stored.
func (s *SettingsService) GeminiKey(ctx context.Context, userID uuid.UUID) (string, error) {
	var sealed sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT gemini_key_encrypted FROM user_settings WHERE user_id = $1
	`, userID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !sealed.Valid {
		return "", nil
	}
	return s.cipher.Decrypt(sealed.String)
}
