package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionService stores one bearer session per user in Redis.
type SessionService struct {
	client redis.Cmdable
}

func NewSessionService(client redis.Cmdable) *SessionService {
	return &SessionService{client: client}
}

// Create issues a new token for userID. Any previous session of the user is
// invalidated so the 7-day timer restarts at each login.
func (s *SessionService) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SessionKeyPrefix+token, userID.String(), SessionDuration)
		pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), token, SessionDuration)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a token to its user. ok is false for unknown or expired
// tokens.
func (s *SessionService) Validate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}
	raw, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, true, nil
}

// Invalidate removes a single session token.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	userID, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if err == nil && userID != "" {
		s.client.Del(ctx, UserSessionKeyPrefix+userID)
	}
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

// InvalidateUser drops whatever session the user currently holds.
func (s *SessionService) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	key := UserSessionKeyPrefix + userID.String()
	token, err := s.client.Get(ctx, key).Result()
	if err == nil && token != "" {
		s.client.Del(ctx, SessionKeyPrefix+token)
	}
	return s.client.Del(ctx, key).Err()
}
