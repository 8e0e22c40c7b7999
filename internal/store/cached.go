package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

// CachedRepository fronts another Repository with a write-through cache.
// Cache failures are logged and never fail the call.
type CachedRepository struct {
	next  Repository
	cache *services.CacheService
	log   *zap.Logger
}

func NewCachedRepository(next Repository, cache *services.CacheService, log *zap.Logger) *CachedRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRepository{next: next, cache: cache, log: log}
}

func profileKey(userID string) string {
	return services.CacheKey("profile", userID)
}

func (r *CachedRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	hit, err := r.cache.Get(ctx, profileKey(userID), &p)
	if err != nil {
		r.log.Warn("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	if hit {
		return &p, nil
	}

	loaded, err := r.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, profileKey(userID), loaded); err != nil {
		r.log.Warn("profile cache fill failed", zap.String("user_id", userID), zap.Error(err))
	}
	return loaded, nil
}

func (r *CachedRepository) Save(ctx context.Context, p *models.UserProfile) error {
	if err := r.next.Save(ctx, p); err != nil {
		// Drop the entry so a stale copy is not served after a failed write.
		_ = r.cache.Delete(ctx, profileKey(p.ID))
		return err
	}
	if err := r.cache.Set(ctx, profileKey(p.ID), p); err != nil {
		r.log.Warn("profile cache write failed", zap.String("user_id", p.ID), zap.Error(err))
		if err := r.cache.Delete(ctx, profileKey(p.ID)); err != nil {
			r.log.Warn("profile cache evict failed", zap.String("user_id", p.ID), zap.Error(err))
		}
	}
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, userID string) error {
	if err := r.cache.Delete(ctx, profileKey(userID)); err != nil {
		r.log.Warn("profile cache evict failed", zap.String("user_id", userID), zap.Error(err))
	}
	return r.next.Delete(ctx, userID)
}
